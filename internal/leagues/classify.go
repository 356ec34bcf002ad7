package leagues

import "strings"

// Perspective is one team's view of a classified match: the outcome tag, the
// raw metric deltas it contributes and the bonus conditions it satisfied.
type Perspective struct {
	MatchID    string
	TeamID     string
	OpponentID string
	Outcome    Outcome
	Metrics    map[Metric]int
	Conditions []Condition
}

// Classification holds both perspectives of one match.
type Classification struct {
	Home Perspective
	Away Perspective
}

// scoreLine is the match detail bonus conditions are tested against.
type scoreLine struct {
	For       int
	Against   int
	SetsToWin int
}

var conditionChecks = map[Condition]func(scoreLine) bool{
	ConditionCleanSheet:    func(l scoreLine) bool { return l.Against == 0 },
	ConditionWinBy3Plus:    func(l scoreLine) bool { return l.For-l.Against >= 3 },
	ConditionScored4Plus:   func(l scoreLine) bool { return l.For >= 4 },
	ConditionLossBy1:       func(l scoreLine) bool { return l.Against-l.For == 1 },
	ConditionWinBy10Plus:   func(l scoreLine) bool { return l.For-l.Against >= 10 },
	ConditionLossBy5OrLess: func(l scoreLine) bool { return l.Against > l.For && l.Against-l.For <= 5 },
	ConditionSweep: func(l scoreLine) bool {
		return l.SetsToWin > 0 && l.For == l.SetsToWin && l.Against == 0
	},
	ConditionLossInDecider: func(l scoreLine) bool {
		return l.SetsToWin > 0 && l.Against == l.SetsToWin && l.For == l.SetsToWin-1
	},
}

// Classify maps one match result to an outcome per team using the sport's
// rules. Results that are not COMPLETED or FORFEIT, or whose scores disagree
// with the sport's format, return an *UnclassifiableResultError.
func Classify(sport Sport, m MatchResult) (Classification, error) {
	rules, ok := catalog[sport]
	if !ok {
		return Classification{}, configError("sport", "%q is not supported", sport)
	}
	if err := checkParticipants(m); err != nil {
		return Classification{}, err
	}

	switch m.Status {
	case StatusForfeit:
		return classifyForfeit(rules, m)
	case StatusCompleted:
	default:
		return Classification{}, unclassifiable(m.MatchID, "status %q is not a final result", m.Status)
	}

	switch rules.Scoring {
	case ScoringDifferential:
		return classifyDifferential(rules, m)
	case ScoringOvertime:
		return classifyOvertime(rules, m)
	case ScoringSets:
		return classifySets(rules, m)
	default:
		return Classification{}, configError("sport", "%q has no classifier", sport)
	}
}

func checkParticipants(m MatchResult) error {
	home := strings.TrimSpace(m.HomeTeamID)
	away := strings.TrimSpace(m.AwayTeamID)
	switch {
	case home == "" || away == "":
		return unclassifiable(m.MatchID, "both team IDs are required")
	case home == away:
		return unclassifiable(m.MatchID, "team %s cannot play itself", home)
	case m.HomeScore < 0 || m.AwayScore < 0:
		return unclassifiable(m.MatchID, "scores cannot be negative")
	}
	for i, period := range m.Periods {
		if period.Home < 0 || period.Away < 0 {
			return unclassifiable(m.MatchID, "period %d has a negative score", i+1)
		}
	}
	return nil
}

func classifyForfeit(rules SportRules, m MatchResult) (Classification, error) {
	forfeiter := strings.TrimSpace(m.ForfeitTeamID)
	switch forfeiter {
	case "":
		switch {
		case m.HomeScore < m.AwayScore:
			forfeiter = m.HomeTeamID
		case m.AwayScore < m.HomeScore:
			forfeiter = m.AwayTeamID
		default:
			return Classification{}, unclassifiable(m.MatchID, "forfeit without a forfeiting team or awarded score")
		}
	case m.HomeTeamID:
		if m.HomeScore > m.AwayScore {
			return Classification{}, unclassifiable(m.MatchID, "forfeiting team %s cannot outscore its opponent", forfeiter)
		}
	case m.AwayTeamID:
		if m.AwayScore > m.HomeScore {
			return Classification{}, unclassifiable(m.MatchID, "forfeiting team %s cannot outscore its opponent", forfeiter)
		}
	default:
		return Classification{}, unclassifiable(m.MatchID, "forfeiting team %s did not play this match", forfeiter)
	}

	home := newPerspective(m, true)
	away := newPerspective(m, false)
	home.Metrics[rules.ScoreFor] = m.HomeScore
	home.Metrics[rules.ScoreAgainst] = m.AwayScore
	away.Metrics[rules.ScoreFor] = m.AwayScore
	away.Metrics[rules.ScoreAgainst] = m.HomeScore

	if forfeiter == m.HomeTeamID {
		home.Outcome, away.Outcome = OutcomeLossForfeit, OutcomeWinForfeit
		home.Metrics[MetricForfeits] = 1
	} else {
		home.Outcome, away.Outcome = OutcomeWinForfeit, OutcomeLossForfeit
		away.Metrics[MetricForfeits] = 1
	}
	return Classification{Home: home, Away: away}, nil
}

func classifyDifferential(rules SportRules, m MatchResult) (Classification, error) {
	if err := checkPeriodTotals(m); err != nil {
		return Classification{}, err
	}

	home := newPerspective(m, true)
	away := newPerspective(m, false)
	switch {
	case m.HomeScore > m.AwayScore:
		home.Outcome, away.Outcome = OutcomeWin, OutcomeLoss
	case m.HomeScore < m.AwayScore:
		home.Outcome, away.Outcome = OutcomeLoss, OutcomeWin
	case rules.AllowsDraw:
		home.Outcome, away.Outcome = OutcomeDraw, OutcomeDraw
	default:
		return Classification{}, unclassifiable(m.MatchID, "%s matches cannot end level (%d-%d)", rules.Sport, m.HomeScore, m.AwayScore)
	}

	applyScores(rules, &home, &away, m.HomeScore, m.AwayScore, 0)
	return Classification{Home: home, Away: away}, nil
}

func classifyOvertime(rules SportRules, m MatchResult) (Classification, error) {
	if len(m.Periods) > 0 && len(m.Periods) < rules.RegulationPeriods {
		return Classification{}, unclassifiable(m.MatchID, "expected at least %d periods, got %d", rules.RegulationPeriods, len(m.Periods))
	}
	if err := checkPeriodTotals(m); err != nil {
		return Classification{}, err
	}
	if m.HomeScore == m.AwayScore {
		return Classification{}, unclassifiable(m.MatchID, "%s matches cannot end level (%d-%d)", rules.Sport, m.HomeScore, m.AwayScore)
	}

	overtime := len(m.Periods) > rules.RegulationPeriods
	if overtime {
		var regHome, regAway int
		for _, period := range m.Periods[:rules.RegulationPeriods] {
			regHome += period.Home
			regAway += period.Away
		}
		if regHome != regAway {
			return Classification{}, unclassifiable(m.MatchID, "overtime recorded after a decided regulation (%d-%d)", regHome, regAway)
		}
	}

	home := newPerspective(m, true)
	away := newPerspective(m, false)
	win, loss := OutcomeWin, OutcomeLoss
	if overtime {
		win, loss = OutcomeWinOT, OutcomeLossOT
	}
	if m.HomeScore > m.AwayScore {
		home.Outcome, away.Outcome = win, loss
		if overtime {
			away.Metrics[MetricOvertimeLosses] = 1
		}
	} else {
		home.Outcome, away.Outcome = loss, win
		if overtime {
			home.Metrics[MetricOvertimeLosses] = 1
		}
	}

	applyScores(rules, &home, &away, m.HomeScore, m.AwayScore, 0)
	return Classification{Home: home, Away: away}, nil
}

func classifySets(rules SportRules, m MatchResult) (Classification, error) {
	if len(m.Periods) == 0 {
		return Classification{}, unclassifiable(m.MatchID, "%s results need a set breakdown", rules.Sport)
	}

	var homeSets, awaySets, homeRally, awayRally int
	for i, set := range m.Periods {
		if homeSets == rules.SetsToWin || awaySets == rules.SetsToWin {
			return Classification{}, unclassifiable(m.MatchID, "set %d was played after the match was decided", i+1)
		}
		switch {
		case set.Home > set.Away:
			homeSets++
		case set.Away > set.Home:
			awaySets++
		default:
			return Classification{}, unclassifiable(m.MatchID, "set %d has no winner (%d-%d)", i+1, set.Home, set.Away)
		}
		homeRally += set.Home
		awayRally += set.Away
	}
	if homeSets != rules.SetsToWin && awaySets != rules.SetsToWin {
		return Classification{}, unclassifiable(m.MatchID, "no team reached %d sets (%d-%d)", rules.SetsToWin, homeSets, awaySets)
	}
	// A 0-0 set count means the feed left the totals to the breakdown.
	if (m.HomeScore != 0 || m.AwayScore != 0) && (m.HomeScore != homeSets || m.AwayScore != awaySets) {
		return Classification{}, unclassifiable(m.MatchID, "set score %d-%d disagrees with breakdown %d-%d", m.HomeScore, m.AwayScore, homeSets, awaySets)
	}

	home := newPerspective(m, true)
	away := newPerspective(m, false)
	if homeSets > awaySets {
		tags := setOutcomes[[3]int{rules.SetsToWin, homeSets, awaySets}]
		home.Outcome, away.Outcome = tags[0], tags[1]
	} else {
		tags := setOutcomes[[3]int{rules.SetsToWin, awaySets, homeSets}]
		home.Outcome, away.Outcome = tags[1], tags[0]
	}
	if home.Outcome == "" || away.Outcome == "" {
		return Classification{}, unclassifiable(m.MatchID, "set score %d-%d has no outcome for %s", homeSets, awaySets, rules.Sport)
	}

	home.Metrics[MetricPointsScored] = homeRally
	home.Metrics[MetricPointsConceded] = awayRally
	away.Metrics[MetricPointsScored] = awayRally
	away.Metrics[MetricPointsConceded] = homeRally
	applyScores(rules, &home, &away, homeSets, awaySets, rules.SetsToWin)
	return Classification{Home: home, Away: away}, nil
}

func checkPeriodTotals(m MatchResult) error {
	if len(m.Periods) == 0 {
		return nil
	}
	var home, away int
	for _, period := range m.Periods {
		home += period.Home
		away += period.Away
	}
	if home != m.HomeScore || away != m.AwayScore {
		return unclassifiable(m.MatchID, "period totals %d-%d disagree with final score %d-%d", home, away, m.HomeScore, m.AwayScore)
	}
	return nil
}

func newPerspective(m MatchResult, home bool) Perspective {
	p := Perspective{
		MatchID:    m.MatchID,
		TeamID:     m.HomeTeamID,
		OpponentID: m.AwayTeamID,
		Metrics:    make(map[Metric]int, 8),
	}
	if !home {
		p.TeamID, p.OpponentID = m.AwayTeamID, m.HomeTeamID
	}
	return p
}

// applyScores records the sport's scored/conceded metrics and evaluates the
// bonus conditions the sport supports.
func applyScores(rules SportRules, home, away *Perspective, homeScore, awayScore, setsToWin int) {
	home.Metrics[rules.ScoreFor] = homeScore
	home.Metrics[rules.ScoreAgainst] = awayScore
	away.Metrics[rules.ScoreFor] = awayScore
	away.Metrics[rules.ScoreAgainst] = homeScore

	home.Conditions = satisfied(rules, scoreLine{For: homeScore, Against: awayScore, SetsToWin: setsToWin})
	away.Conditions = satisfied(rules, scoreLine{For: awayScore, Against: homeScore, SetsToWin: setsToWin})
}

func satisfied(rules SportRules, line scoreLine) []Condition {
	var out []Condition
	for _, condition := range rules.Conditions {
		check, ok := conditionChecks[condition]
		if ok && check(line) {
			out = append(out, condition)
		}
	}
	return out
}
