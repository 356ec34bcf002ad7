package leagues

import (
	"encoding/json"
	"fmt"
	"strings"
)

// metricAliases maps names older league forms stored to canonical metrics.
var metricAliases = map[string]Metric{
	"GD":              MetricGoalDifference,
	"GOAL_DIFF":       MetricGoalDifference,
	"GF":              MetricGoalsScored,
	"GOALS_FOR":       MetricGoalsScored,
	"GA":              MetricGoalsConceded,
	"GOALS_AGAINST":   MetricGoalsConceded,
	"PD":              MetricPointDifference,
	"POINT_DIFF":      MetricPointDifference,
	"POINTS_FOR":      MetricPointsScored,
	"POINTS_AGAINST":  MetricPointsConceded,
	"SD":              MetricSetDifference,
	"SET_DIFF":        MetricSetDifference,
	"SETS_FOR":        MetricSetsWon,
	"SETS_AGAINST":    MetricSetsLost,
	"TOTAL_POINTS":    MetricPoints,
	"GAMES_PLAYED":    MetricPlayed,
	"H2H":             MetricHeadToHeadPoints,
	"HEAD_TO_HEAD":    MetricHeadToHeadPoints,
	"OT_LOSSES":       MetricOvertimeLosses,
	"COIN_TOSS":       MetricRandom,
	"DRAWING_OF_LOTS": MetricRandom,
}

var sortAliases = map[string]SortOrder{
	"asc":        SortAsc,
	"ascending":  SortAsc,
	"desc":       SortDesc,
	"descending": SortDesc,
	"random":     SortRandom,
}

// storedTieBreaker accepts both the canonical {order, rule, sort} shape and
// the legacy {metric, priority, direction} shape.
type storedTieBreaker struct {
	Order     *int   `json:"order"`
	Priority  *int   `json:"priority"`
	Rule      string `json:"rule"`
	Metric    string `json:"metric"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
}

// DecodeTieBreakers parses a stored or submitted tiebreaker chain. Legacy
// metric-keyed entries and alias names are rewritten to the canonical
// vocabulary; migrated reports whether anything had to be rewritten. The
// result is not validated.
func DecodeTieBreakers(raw []byte) (config TieBreakerConfig, migrated bool, err error) {
	var stored []storedTieBreaker
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false, configError("tieBreakers", "invalid JSON: %v", err)
	}

	config = make(TieBreakerConfig, 0, len(stored))
	for i, entry := range stored {
		rule, legacy, err := entry.canonical(i)
		if err != nil {
			return nil, false, err
		}
		migrated = migrated || legacy
		config = append(config, rule)
	}
	return config, migrated, nil
}

func (s storedTieBreaker) canonical(index int) (TieBreakerRule, bool, error) {
	field := fmt.Sprintf("tieBreakers[%d]", index)
	legacy := s.Metric != "" || s.Priority != nil || s.Direction != ""

	name := s.Rule
	if name == "" {
		name = s.Metric
	} else if s.Metric != "" && !strings.EqualFold(s.Metric, s.Rule) {
		return TieBreakerRule{}, false, configError(field, "rule %q and metric %q disagree", s.Rule, s.Metric)
	}
	if strings.TrimSpace(name) == "" {
		return TieBreakerRule{}, false, configError(field, "rule is required")
	}
	metric, renamed := normalizeMetric(name)

	order := index + 1
	switch {
	case s.Order != nil:
		order = *s.Order
	case s.Priority != nil:
		order = *s.Priority
	default:
		legacy = true
	}

	rawSort := s.Sort
	if rawSort == "" {
		rawSort = s.Direction
	}
	var sortOrder SortOrder
	if rawSort == "" {
		legacy = true
		sortOrder = SortDesc
		if metric == MetricRandom {
			sortOrder = SortRandom
		}
	} else {
		var ok bool
		sortOrder, ok = sortAliases[strings.ToLower(strings.TrimSpace(rawSort))]
		if !ok {
			return TieBreakerRule{}, false, configError(field, "sort %q must be asc, desc or random", rawSort)
		}
		if string(sortOrder) != rawSort {
			legacy = true
		}
	}
	if metric == MetricRandom && sortOrder != SortRandom {
		legacy = true
		sortOrder = SortRandom
	}

	return TieBreakerRule{Order: order, Rule: metric, Sort: sortOrder}, legacy || renamed, nil
}

// normalizeMetric upper-cases a metric name and resolves aliases, including
// the short H2H_ prefix.
func normalizeMetric(raw string) (Metric, bool) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	name = strings.NewReplacer("-", "_", " ", "_").Replace(name)

	if rest, ok := strings.CutPrefix(name, "H2H_"); ok {
		name = headToHeadPrefix + rest
	}
	if alias, ok := metricAliases[name]; ok {
		return alias, true
	}
	if rest, ok := strings.CutPrefix(name, headToHeadPrefix); ok {
		if alias, ok := metricAliases[rest]; ok {
			return headToHead(alias), true
		}
	}
	return Metric(name), name != raw
}
