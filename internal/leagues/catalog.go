package leagues

import "sort"

// ScoringKind groups sports that classify results the same way.
type ScoringKind string

const (
	ScoringDifferential ScoringKind = "differential"
	ScoringOvertime     ScoringKind = "overtime"
	ScoringSets         ScoringKind = "sets"
)

// SportRules is the catalog entry for one sport: the outcome, metric and
// bonus-condition vocabulary the classifier works with plus the default
// configuration new leagues start from.
type SportRules struct {
	Sport             Sport       `json:"sport"`
	Scoring           ScoringKind `json:"scoring"`
	AllowsDraw        bool        `json:"allowsDraw"`
	RegulationPeriods int         `json:"regulationPeriods,omitempty"`
	SetsToWin         int         `json:"setsToWin,omitempty"`
	Outcomes          []Outcome   `json:"outcomes"`
	Metrics           []Metric    `json:"metrics"`
	Conditions        []Condition `json:"conditions"`

	ScoreFor        Metric `json:"scoreFor"`
	ScoreAgainst    Metric `json:"scoreAgainst"`
	ScoreDifference Metric `json:"scoreDifference"`

	DefaultPointSystem PointSystemConfig `json:"defaultPointSystem"`
	DefaultTieBreakers TieBreakerConfig  `json:"defaultTieBreakers"`
}

var (
	baseMetrics  = []Metric{MetricPoints, MetricPlayed, MetricWins, MetricLosses, MetricForfeits, MetricRandom}
	goalMetrics  = []Metric{MetricGoalsScored, MetricGoalsConceded, MetricGoalDifference}
	rallyMetrics = []Metric{MetricPointsScored, MetricPointsConceded, MetricPointDifference}
	setMetrics   = []Metric{MetricSetsWon, MetricSetsLost, MetricSetDifference}
)

func metricList(groups ...[]Metric) []Metric {
	var out []Metric
	for _, group := range groups {
		out = append(out, group...)
	}
	return out
}

var catalog = map[Sport]SportRules{
	SportSoccer: {
		Sport:      SportSoccer,
		Scoring:    ScoringDifferential,
		AllowsDraw: true,
		Outcomes: []Outcome{
			OutcomeWin, OutcomeDraw, OutcomeLoss, OutcomeWinForfeit, OutcomeLossForfeit,
		},
		Metrics:         metricList(baseMetrics, []Metric{MetricDraws}, goalMetrics),
		Conditions:      []Condition{ConditionCleanSheet, ConditionWinBy3Plus, ConditionScored4Plus, ConditionLossBy1},
		ScoreFor:        MetricGoalsScored,
		ScoreAgainst:    MetricGoalsConceded,
		ScoreDifference: MetricGoalDifference,
		DefaultPointSystem: PointSystemConfig{
			Rules: []PointRule{
				{Outcome: OutcomeWin, Points: 3},
				{Outcome: OutcomeDraw, Points: 1},
				{Outcome: OutcomeLoss, Points: 0},
				{Outcome: OutcomeWinForfeit, Points: 3},
				{Outcome: OutcomeLossForfeit, Points: 0},
			},
		},
		DefaultTieBreakers: TieBreakerConfig{
			{Order: 1, Rule: MetricGoalDifference, Sort: SortDesc},
			{Order: 2, Rule: MetricGoalsScored, Sort: SortDesc},
			{Order: 3, Rule: MetricHeadToHeadPoints, Sort: SortDesc},
			{Order: 4, Rule: MetricForfeits, Sort: SortAsc},
		},
	},
	SportHockey: {
		Sport:             SportHockey,
		Scoring:           ScoringOvertime,
		RegulationPeriods: 3,
		Outcomes: []Outcome{
			OutcomeWin, OutcomeWinOT, OutcomeLossOT, OutcomeLoss, OutcomeWinForfeit, OutcomeLossForfeit,
		},
		Metrics:         metricList(baseMetrics, []Metric{MetricOvertimeLosses}, goalMetrics),
		Conditions:      []Condition{ConditionCleanSheet, ConditionWinBy3Plus, ConditionScored4Plus, ConditionLossBy1},
		ScoreFor:        MetricGoalsScored,
		ScoreAgainst:    MetricGoalsConceded,
		ScoreDifference: MetricGoalDifference,
		DefaultPointSystem: PointSystemConfig{
			Rules: []PointRule{
				{Outcome: OutcomeWin, Points: 2},
				{Outcome: OutcomeWinOT, Points: 2},
				{Outcome: OutcomeLossOT, Points: 1},
				{Outcome: OutcomeLoss, Points: 0},
				{Outcome: OutcomeWinForfeit, Points: 2},
				{Outcome: OutcomeLossForfeit, Points: 0},
			},
		},
		DefaultTieBreakers: TieBreakerConfig{
			{Order: 1, Rule: MetricWins, Sort: SortDesc},
			{Order: 2, Rule: MetricHeadToHeadPoints, Sort: SortDesc},
			{Order: 3, Rule: MetricGoalDifference, Sort: SortDesc},
			{Order: 4, Rule: MetricGoalsScored, Sort: SortDesc},
		},
	},
	SportBasketball: {
		Sport:   SportBasketball,
		Scoring: ScoringDifferential,
		Outcomes: []Outcome{
			OutcomeWin, OutcomeLoss, OutcomeWinForfeit, OutcomeLossForfeit,
		},
		Metrics:         metricList(baseMetrics, rallyMetrics),
		Conditions:      []Condition{ConditionWinBy10Plus, ConditionLossBy5OrLess},
		ScoreFor:        MetricPointsScored,
		ScoreAgainst:    MetricPointsConceded,
		ScoreDifference: MetricPointDifference,
		DefaultPointSystem: PointSystemConfig{
			Rules: []PointRule{
				{Outcome: OutcomeWin, Points: 2},
				{Outcome: OutcomeLoss, Points: 1},
				{Outcome: OutcomeWinForfeit, Points: 2},
				{Outcome: OutcomeLossForfeit, Points: 0},
			},
		},
		DefaultTieBreakers: TieBreakerConfig{
			{Order: 1, Rule: MetricHeadToHeadPoints, Sort: SortDesc},
			{Order: 2, Rule: headToHead(MetricPointDifference), Sort: SortDesc},
			{Order: 3, Rule: MetricPointDifference, Sort: SortDesc},
			{Order: 4, Rule: MetricPointsScored, Sort: SortDesc},
		},
	},
	SportVolleyball: {
		Sport:     SportVolleyball,
		Scoring:   ScoringSets,
		SetsToWin: 3,
		Outcomes: []Outcome{
			OutcomeWin30, OutcomeWin31, OutcomeWin32, OutcomeLoss23, OutcomeLoss13, OutcomeLoss03,
			OutcomeWinForfeit, OutcomeLossForfeit,
		},
		Metrics:         metricList(baseMetrics, setMetrics, rallyMetrics),
		Conditions:      []Condition{ConditionSweep, ConditionLossInDecider},
		ScoreFor:        MetricSetsWon,
		ScoreAgainst:    MetricSetsLost,
		ScoreDifference: MetricSetDifference,
		DefaultPointSystem: PointSystemConfig{
			Rules: []PointRule{
				{Outcome: OutcomeWin30, Points: 3},
				{Outcome: OutcomeWin31, Points: 3},
				{Outcome: OutcomeWin32, Points: 2},
				{Outcome: OutcomeLoss23, Points: 1},
				{Outcome: OutcomeLoss13, Points: 0},
				{Outcome: OutcomeLoss03, Points: 0},
				{Outcome: OutcomeWinForfeit, Points: 3},
				{Outcome: OutcomeLossForfeit, Points: 0},
			},
		},
		DefaultTieBreakers: TieBreakerConfig{
			{Order: 1, Rule: MetricWins, Sort: SortDesc},
			{Order: 2, Rule: MetricSetDifference, Sort: SortDesc},
			{Order: 3, Rule: MetricPointDifference, Sort: SortDesc},
			{Order: 4, Rule: MetricHeadToHeadPoints, Sort: SortDesc},
		},
	},
	SportPickleball: {
		Sport:     SportPickleball,
		Scoring:   ScoringSets,
		SetsToWin: 2,
		Outcomes: []Outcome{
			OutcomeWin20, OutcomeWin21, OutcomeLoss12, OutcomeLoss02, OutcomeWinForfeit, OutcomeLossForfeit,
		},
		Metrics:         metricList(baseMetrics, setMetrics, rallyMetrics),
		Conditions:      []Condition{ConditionSweep, ConditionLossInDecider},
		ScoreFor:        MetricSetsWon,
		ScoreAgainst:    MetricSetsLost,
		ScoreDifference: MetricSetDifference,
		DefaultPointSystem: PointSystemConfig{
			Rules: []PointRule{
				{Outcome: OutcomeWin20, Points: 2},
				{Outcome: OutcomeWin21, Points: 2},
				{Outcome: OutcomeLoss12, Points: 1},
				{Outcome: OutcomeLoss02, Points: 0},
				{Outcome: OutcomeWinForfeit, Points: 2},
				{Outcome: OutcomeLossForfeit, Points: 0},
			},
		},
		DefaultTieBreakers: TieBreakerConfig{
			{Order: 1, Rule: MetricWins, Sort: SortDesc},
			{Order: 2, Rule: MetricHeadToHeadWins, Sort: SortDesc},
			{Order: 3, Rule: MetricPointDifference, Sort: SortDesc},
			{Order: 4, Rule: headToHead(MetricPointDifference), Sort: SortDesc},
		},
	},
}

func headToHead(m Metric) Metric {
	return Metric(headToHeadPrefix + string(m))
}

// Sports lists the catalog's sports in name order.
func Sports() []Sport {
	out := make([]Sport, 0, len(catalog))
	for sport := range catalog {
		out = append(out, sport)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LookupSport returns a copy of the catalog entry for sport.
func LookupSport(sport Sport) (SportRules, bool) {
	rules, ok := catalog[sport]
	if !ok {
		return SportRules{}, false
	}
	rules.Outcomes = append([]Outcome(nil), rules.Outcomes...)
	rules.Metrics = append([]Metric(nil), rules.Metrics...)
	rules.Conditions = append([]Condition(nil), rules.Conditions...)
	rules.DefaultPointSystem = rules.DefaultPointSystem.Clone()
	rules.DefaultTieBreakers = rules.DefaultTieBreakers.Clone()
	return rules, true
}

// DefaultPointSystem returns the template point system for sport.
func DefaultPointSystem(sport Sport) (PointSystemConfig, bool) {
	rules, ok := catalog[sport]
	if !ok {
		return PointSystemConfig{}, false
	}
	return rules.DefaultPointSystem.Clone(), true
}

// DefaultTieBreakers returns the template tiebreaker chain for sport.
func DefaultTieBreakers(sport Sport) (TieBreakerConfig, bool) {
	rules, ok := catalog[sport]
	if !ok {
		return nil, false
	}
	return rules.DefaultTieBreakers.Clone(), true
}

func (s SportRules) reachable(outcome Outcome) bool {
	for _, candidate := range s.Outcomes {
		if candidate == outcome {
			return true
		}
	}
	return false
}

func (s SportRules) supportsCondition(condition Condition) bool {
	for _, candidate := range s.Conditions {
		if candidate == condition {
			return true
		}
	}
	return false
}

// SupportsMetric reports whether a tiebreaker rule may order by m for this
// sport. Head-to-head variants are valid for every non-random base metric.
func (s SportRules) SupportsMetric(m Metric) bool {
	if base, ok := headToHeadBase(m); ok {
		if base == MetricRandom || base == MetricPlayed {
			return false
		}
		if _, nested := headToHeadBase(base); nested {
			return false
		}
		m = base
	}
	for _, candidate := range s.Metrics {
		if candidate == m {
			return true
		}
	}
	return false
}
