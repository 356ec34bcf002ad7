package leagues

import (
	"errors"
	"fmt"
	"sort"
)

type PointRule struct {
	Outcome Outcome `json:"outcome"`
	Points  int     `json:"points"`
}

type BonusPointRule struct {
	Condition Condition `json:"condition"`
	Points    int       `json:"points"`
}

// PointSystemConfig awards base points per outcome plus any bonus whose
// condition the match satisfies.
type PointSystemConfig struct {
	Rules       []PointRule      `json:"rules"`
	BonusPoints []BonusPointRule `json:"bonusPoints"`
}

type TieBreakerRule struct {
	Order int       `json:"order"`
	Rule  Metric    `json:"rule"`
	Sort  SortOrder `json:"sort"`
}

// TieBreakerConfig is applied in ascending Order.
type TieBreakerConfig []TieBreakerRule

// RuleSet is the active configuration for one league.
type RuleSet struct {
	Sport       Sport             `json:"sport"`
	Version     int64             `json:"version"`
	PointSystem PointSystemConfig `json:"pointSystem"`
	TieBreakers TieBreakerConfig  `json:"tieBreakers"`
}

func (c PointSystemConfig) Clone() PointSystemConfig {
	return PointSystemConfig{
		Rules:       append([]PointRule(nil), c.Rules...),
		BonusPoints: append([]BonusPointRule(nil), c.BonusPoints...),
	}
}

func (c TieBreakerConfig) Clone() TieBreakerConfig {
	if c == nil {
		return nil
	}
	return append(TieBreakerConfig(nil), c...)
}

// Ordered returns the rules sorted by Order.
func (c TieBreakerConfig) Ordered() TieBreakerConfig {
	out := c.Clone()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Validate checks the point system against the sport's outcome vocabulary.
// Every reachable outcome needs exactly one rule.
func (c PointSystemConfig) Validate(sport Sport) error {
	rules, ok := catalog[sport]
	if !ok {
		return configError("sport", "%q is not supported", sport)
	}

	seen := make(map[Outcome]struct{}, len(c.Rules))
	for i, rule := range c.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if rule.Outcome == "" {
			return configError(field, "outcome is required")
		}
		if !rules.reachable(rule.Outcome) {
			return configError(field, "outcome %s is not produced for %s", rule.Outcome, sport)
		}
		if _, dup := seen[rule.Outcome]; dup {
			return configError(field, "outcome %s is defined more than once", rule.Outcome)
		}
		seen[rule.Outcome] = struct{}{}
	}
	for _, outcome := range rules.Outcomes {
		if _, ok := seen[outcome]; !ok {
			return &MissingPointRuleError{Outcome: outcome}
		}
	}

	conditions := make(map[Condition]struct{}, len(c.BonusPoints))
	for i, bonus := range c.BonusPoints {
		field := fmt.Sprintf("bonusPoints[%d]", i)
		if bonus.Condition == "" {
			return configError(field, "condition is required")
		}
		if !rules.supportsCondition(bonus.Condition) {
			return configError(field, "condition %s is not evaluated for %s", bonus.Condition, sport)
		}
		if _, dup := conditions[bonus.Condition]; dup {
			return configError(field, "condition %s is defined more than once", bonus.Condition)
		}
		conditions[bonus.Condition] = struct{}{}
	}
	return nil
}

// Validate checks ordering and metric vocabulary. Orders must run 1..N with
// no gaps and "random" may only be the final rule.
func (c TieBreakerConfig) Validate(sport Sport) error {
	rules, ok := catalog[sport]
	if !ok {
		return configError("sport", "%q is not supported", sport)
	}

	ordered := c.Ordered()
	for i, rule := range ordered {
		field := fmt.Sprintf("tieBreakers[order=%d]", rule.Order)
		if rule.Order != i+1 {
			if rule.Order < 1 {
				return configError(field, "order must be 1 or greater")
			}
			if i > 0 && ordered[i-1].Order == rule.Order {
				return configError(field, "order is used more than once")
			}
			return configError(field, "orders must be contiguous starting at 1")
		}
		switch rule.Sort {
		case SortAsc, SortDesc:
			if rule.Rule == MetricRandom {
				return configError(field, "RANDOM requires sort \"random\"")
			}
			if !rules.SupportsMetric(rule.Rule) {
				return configError(field, "metric %s is not available for %s", rule.Rule, sport)
			}
		case SortRandom:
			if i != len(ordered)-1 {
				return configError(field, "random may only be the last tiebreaker")
			}
		default:
			return configError(field, "sort %q must be asc, desc or random", rule.Sort)
		}
	}
	return nil
}

// Validate checks both halves of the rule set.
func (r RuleSet) Validate() error {
	return errors.Join(r.PointSystem.Validate(r.Sport), r.TieBreakers.Validate(r.Sport))
}

func (c PointSystemConfig) pointsFor(outcome Outcome) (int, bool) {
	for _, rule := range c.Rules {
		if rule.Outcome == outcome {
			return rule.Points, true
		}
	}
	return 0, false
}
