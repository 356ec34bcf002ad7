package leagues

import (
	"errors"
	"testing"
)

func completed(id, home, away string, homeScore, awayScore int) MatchResult {
	return MatchResult{
		MatchID:    id,
		LeagueID:   "L1",
		SeasonID:   "S1",
		HomeTeamID: home,
		AwayTeamID: away,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Status:     StatusCompleted,
	}
}

func sets(scores ...[2]int) []PeriodScore {
	out := make([]PeriodScore, 0, len(scores))
	for _, s := range scores {
		out = append(out, PeriodScore{Home: s[0], Away: s[1]})
	}
	return out
}

func TestClassifyOutcomes(t *testing.T) {
	overtime := completed("m-ot", "H", "A", 3, 2)
	overtime.Periods = []PeriodScore{{1, 0}, {0, 1}, {1, 1}, {1, 0}}

	volleyball := completed("m-vb", "H", "A", 0, 0)
	volleyball.Periods = sets([2]int{25, 20}, [2]int{20, 25}, [2]int{25, 22}, [2]int{18, 25}, [2]int{12, 15})

	pickleball := completed("m-pb", "H", "A", 2, 0)
	pickleball.Periods = sets([2]int{11, 4}, [2]int{11, 9})

	forfeit := completed("m-ff", "H", "A", 0, 3)
	forfeit.Status = StatusForfeit

	tests := []struct {
		name     string
		sport    Sport
		match    MatchResult
		wantHome Outcome
		wantAway Outcome
	}{
		{"soccer home win", SportSoccer, completed("m1", "H", "A", 2, 1), OutcomeWin, OutcomeLoss},
		{"soccer draw", SportSoccer, completed("m2", "H", "A", 1, 1), OutcomeDraw, OutcomeDraw},
		{"basketball away win", SportBasketball, completed("m3", "H", "A", 88, 97), OutcomeLoss, OutcomeWin},
		{"hockey regulation", SportHockey, completed("m4", "H", "A", 4, 1), OutcomeWin, OutcomeLoss},
		{"hockey overtime", SportHockey, overtime, OutcomeWinOT, OutcomeLossOT},
		{"volleyball five sets", SportVolleyball, volleyball, OutcomeLoss23, OutcomeWin32},
		{"pickleball sweep", SportPickleball, pickleball, OutcomeWin20, OutcomeLoss02},
		{"forfeit inferred from score", SportSoccer, forfeit, OutcomeLossForfeit, OutcomeWinForfeit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.sport, tt.match)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Home.Outcome != tt.wantHome || got.Away.Outcome != tt.wantAway {
				t.Fatalf("Classify() = %s/%s, want %s/%s", got.Home.Outcome, got.Away.Outcome, tt.wantHome, tt.wantAway)
			}
			if got.Home.TeamID != "H" || got.Home.OpponentID != "A" || got.Away.TeamID != "A" {
				t.Fatalf("Classify() perspectives = %+v / %+v", got.Home, got.Away)
			}
		})
	}
}

func TestClassifyMetrics(t *testing.T) {
	overtime := completed("m-ot", "H", "A", 2, 3)
	overtime.Periods = []PeriodScore{{1, 1}, {1, 0}, {0, 1}, {0, 1}}
	got, err := Classify(SportHockey, overtime)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Home.Metrics[MetricOvertimeLosses] != 1 || got.Away.Metrics[MetricOvertimeLosses] != 0 {
		t.Fatalf("overtime losses = %d/%d, want 1/0", got.Home.Metrics[MetricOvertimeLosses], got.Away.Metrics[MetricOvertimeLosses])
	}
	if got.Away.Metrics[MetricGoalsScored] != 3 || got.Away.Metrics[MetricGoalsConceded] != 2 {
		t.Fatalf("away goals = %v, want 3 scored 2 conceded", got.Away.Metrics)
	}

	volleyball := completed("m-vb", "H", "A", 3, 1)
	volleyball.Periods = sets([2]int{25, 23}, [2]int{22, 25}, [2]int{25, 20}, [2]int{25, 21})
	got, err = Classify(SportVolleyball, volleyball)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got.Home.Metrics[MetricSetsWon] != 3 || got.Home.Metrics[MetricSetsLost] != 1 {
		t.Fatalf("home sets = %v, want 3-1", got.Home.Metrics)
	}
	if got.Home.Metrics[MetricPointsScored] != 97 || got.Home.Metrics[MetricPointsConceded] != 89 {
		t.Fatalf("home rally points = %d-%d, want 97-89", got.Home.Metrics[MetricPointsScored], got.Home.Metrics[MetricPointsConceded])
	}
}

func TestClassifyConditions(t *testing.T) {
	got, err := Classify(SportSoccer, completed("m1", "H", "A", 4, 0))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	want := map[Condition]bool{ConditionCleanSheet: true, ConditionWinBy3Plus: true, ConditionScored4Plus: true}
	if len(got.Home.Conditions) != len(want) {
		t.Fatalf("home conditions = %v, want %v", got.Home.Conditions, want)
	}
	for _, c := range got.Home.Conditions {
		if !want[c] {
			t.Fatalf("unexpected home condition %s", c)
		}
	}
	if len(got.Away.Conditions) != 0 {
		t.Fatalf("away conditions = %v, want none", got.Away.Conditions)
	}

	forfeit := completed("m2", "H", "A", 3, 0)
	forfeit.Status = StatusForfeit
	forfeit.ForfeitTeamID = "A"
	got, err = Classify(SportSoccer, forfeit)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(got.Home.Conditions) != 0 {
		t.Fatalf("forfeit conditions = %v, want none", got.Home.Conditions)
	}
	if got.Away.Metrics[MetricForfeits] != 1 {
		t.Fatalf("forfeiting team FORFEITS = %d, want 1", got.Away.Metrics[MetricForfeits])
	}
}

func TestClassifyRejectsMalformedResults(t *testing.T) {
	scheduled := completed("m1", "H", "A", 0, 0)
	scheduled.Status = StatusScheduled

	noBreakdown := completed("m2", "H", "A", 3, 0)

	extraSet := completed("m3", "H", "A", 0, 0)
	extraSet.Periods = sets([2]int{11, 3}, [2]int{11, 5}, [2]int{4, 11})

	tiedSet := completed("m4", "H", "A", 0, 0)
	tiedSet.Periods = sets([2]int{11, 11})

	wrongTotals := completed("m5", "H", "A", 3, 1)
	wrongTotals.Periods = []PeriodScore{{1, 0}, {1, 1}}

	decidedOT := completed("m6", "H", "A", 4, 1)
	decidedOT.Periods = []PeriodScore{{1, 0}, {1, 1}, {1, 0}, {1, 0}}

	shortHockey := completed("m7", "H", "A", 2, 1)
	shortHockey.Periods = []PeriodScore{{1, 0}, {1, 1}}

	badForfeit := completed("m8", "H", "A", 0, 0)
	badForfeit.Status = StatusForfeit

	strangerForfeit := completed("m9", "H", "A", 0, 3)
	strangerForfeit.Status = StatusForfeit
	strangerForfeit.ForfeitTeamID = "X"

	setScoreMismatch := completed("m10", "H", "A", 3, 0)
	setScoreMismatch.Periods = sets([2]int{25, 20}, [2]int{20, 25}, [2]int{25, 20}, [2]int{25, 20})

	tests := []struct {
		name  string
		sport Sport
		match MatchResult
	}{
		{"non terminal status", SportSoccer, scheduled},
		{"same team", SportSoccer, completed("m0", "H", "H", 1, 0)},
		{"missing team", SportSoccer, completed("m0", "", "A", 1, 0)},
		{"negative score", SportSoccer, completed("m0", "H", "A", -1, 0)},
		{"basketball draw", SportBasketball, completed("m0", "H", "A", 80, 80)},
		{"hockey draw", SportHockey, completed("m0", "H", "A", 2, 2)},
		{"volleyball without breakdown", SportVolleyball, noBreakdown},
		{"set after decided match", SportPickleball, extraSet},
		{"tied set", SportPickleball, tiedSet},
		{"period totals disagree", SportSoccer, wrongTotals},
		{"overtime after decided regulation", SportHockey, decidedOT},
		{"too few periods", SportHockey, shortHockey},
		{"forfeit without loser", SportSoccer, badForfeit},
		{"forfeit by outsider", SportSoccer, strangerForfeit},
		{"set score disagrees", SportVolleyball, setScoreMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.sport, tt.match)
			if !errors.Is(err, ErrUnclassifiable) {
				t.Fatalf("Classify() error = %v, want ErrUnclassifiable", err)
			}
			var typed *UnclassifiableResultError
			if !errors.As(err, &typed) || typed.MatchID != tt.match.MatchID {
				t.Fatalf("Classify() error = %#v, want match %s", err, tt.match.MatchID)
			}
		})
	}
}

func TestClassifyUnknownSport(t *testing.T) {
	_, err := Classify(Sport("curling"), completed("m1", "H", "A", 1, 0))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("Classify() error = %v, want ErrConfiguration", err)
	}
}
