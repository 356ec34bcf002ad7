package leagues

import "strings"

// Sport identifies the rule module a league is played under.
type Sport string

const (
	SportSoccer     Sport = "soccer"
	SportHockey     Sport = "hockey"
	SportBasketball Sport = "basketball"
	SportVolleyball Sport = "volleyball"
	SportPickleball Sport = "pickleball"
)

// ParseSport normalizes a raw sport name.
func ParseSport(raw string) (Sport, bool) {
	sport := Sport(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := catalog[sport]
	return sport, ok
}

// Outcome is the symbolic result of one match from one team's perspective.
// It is the lookup key into PointSystemConfig.Rules.
type Outcome string

const (
	OutcomeWin         Outcome = "WIN"
	OutcomeDraw        Outcome = "DRAW"
	OutcomeLoss        Outcome = "LOSS"
	OutcomeWinForfeit  Outcome = "WIN_FORFEIT"
	OutcomeLossForfeit Outcome = "LOSS_FORFEIT"
	OutcomeWinOT       Outcome = "WIN_OT"
	OutcomeLossOT      Outcome = "LOSS_OT"

	OutcomeWin30  Outcome = "WIN_3_0"
	OutcomeWin31  Outcome = "WIN_3_1"
	OutcomeWin32  Outcome = "WIN_3_2"
	OutcomeLoss23 Outcome = "LOSS_2_3"
	OutcomeLoss13 Outcome = "LOSS_1_3"
	OutcomeLoss03 Outcome = "LOSS_0_3"

	OutcomeWin20  Outcome = "WIN_2_0"
	OutcomeWin21  Outcome = "WIN_2_1"
	OutcomeLoss12 Outcome = "LOSS_1_2"
	OutcomeLoss02 Outcome = "LOSS_0_2"
)

type resultKind int

const (
	resultWin resultKind = iota + 1
	resultDraw
	resultLoss
)

type outcomeMeta struct {
	result  resultKind
	forfeit bool
	ot      bool
}

var outcomes = map[Outcome]outcomeMeta{
	OutcomeWin:         {result: resultWin},
	OutcomeDraw:        {result: resultDraw},
	OutcomeLoss:        {result: resultLoss},
	OutcomeWinForfeit:  {result: resultWin, forfeit: true},
	OutcomeLossForfeit: {result: resultLoss, forfeit: true},
	OutcomeWinOT:       {result: resultWin, ot: true},
	OutcomeLossOT:      {result: resultLoss, ot: true},
	OutcomeWin30:       {result: resultWin},
	OutcomeWin31:       {result: resultWin},
	OutcomeWin32:       {result: resultWin},
	OutcomeLoss23:      {result: resultLoss},
	OutcomeLoss13:      {result: resultLoss},
	OutcomeLoss03:      {result: resultLoss},
	OutcomeWin20:       {result: resultWin},
	OutcomeWin21:       {result: resultWin},
	OutcomeLoss12:      {result: resultLoss},
	OutcomeLoss02:      {result: resultLoss},
}

// setOutcomes maps (sets to win, winner sets, loser sets) to the winner and
// loser outcome tags.
var setOutcomes = map[[3]int][2]Outcome{
	{3, 3, 0}: {OutcomeWin30, OutcomeLoss03},
	{3, 3, 1}: {OutcomeWin31, OutcomeLoss13},
	{3, 3, 2}: {OutcomeWin32, OutcomeLoss23},
	{2, 2, 0}: {OutcomeWin20, OutcomeLoss02},
	{2, 2, 1}: {OutcomeWin21, OutcomeLoss12},
}

// Metric names a per-team value a tiebreaker rule can order by.
type Metric string

const (
	MetricPoints         Metric = "POINTS"
	MetricPlayed         Metric = "PLAYED"
	MetricWins           Metric = "WINS"
	MetricDraws          Metric = "DRAWS"
	MetricLosses         Metric = "LOSSES"
	MetricForfeits       Metric = "FORFEITS"
	MetricOvertimeLosses Metric = "OVERTIME_LOSSES"

	MetricGoalsScored    Metric = "GOALS_SCORED"
	MetricGoalsConceded  Metric = "GOALS_CONCEDED"
	MetricGoalDifference Metric = "GOAL_DIFFERENCE"

	MetricPointsScored    Metric = "POINTS_SCORED"
	MetricPointsConceded  Metric = "POINTS_CONCEDED"
	MetricPointDifference Metric = "POINT_DIFFERENCE"

	MetricSetsWon       Metric = "SETS_WON"
	MetricSetsLost      Metric = "SETS_LOST"
	MetricSetDifference Metric = "SET_DIFFERENCE"

	MetricHeadToHeadPoints Metric = "HEAD_TO_HEAD_POINTS"
	MetricHeadToHeadWins   Metric = "HEAD_TO_HEAD_WINS"

	MetricRandom Metric = "RANDOM"
)

const headToHeadPrefix = "HEAD_TO_HEAD_"

// headToHeadBase returns the metric a head-to-head metric is computed from.
func headToHeadBase(m Metric) (Metric, bool) {
	name := string(m)
	if !strings.HasPrefix(name, headToHeadPrefix) {
		return "", false
	}
	base := Metric(strings.TrimPrefix(name, headToHeadPrefix))
	if base == "" {
		return "", false
	}
	return base, true
}

// Condition is a bonus-point predicate tag evaluated by the classifier.
type Condition string

const (
	ConditionCleanSheet    Condition = "CLEAN_SHEET"
	ConditionWinBy3Plus    Condition = "WIN_BY_3_PLUS"
	ConditionScored4Plus   Condition = "SCORED_4_PLUS"
	ConditionLossBy1       Condition = "LOSS_BY_1"
	ConditionWinBy10Plus   Condition = "WIN_BY_10_PLUS"
	ConditionLossBy5OrLess Condition = "LOSS_BY_5_OR_LESS"
	ConditionSweep         Condition = "SWEEP"
	ConditionLossInDecider Condition = "LOSS_IN_DECIDER"
)

// SortOrder is the direction a tiebreaker rule orders its metric.
type SortOrder string

const (
	SortAsc    SortOrder = "asc"
	SortDesc   SortOrder = "desc"
	SortRandom SortOrder = "random"
)
