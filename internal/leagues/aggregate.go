package leagues

import "sort"

// TeamStandingRow is one team's derived line in a standings table.
type TeamStandingRow struct {
	TeamID  string         `json:"teamId"`
	Rank    int            `json:"rank"`
	Tied    bool           `json:"tied,omitempty"`
	Points  int            `json:"points"`
	Played  int            `json:"played"`
	Won     int            `json:"won"`
	Drawn   int            `json:"drawn"`
	Lost    int            `json:"lost"`
	Metrics map[Metric]int `json:"metrics"`
}

// Value returns the row's value for a non-head-to-head metric.
func (r TeamStandingRow) Value(m Metric) int {
	switch m {
	case MetricPoints:
		return r.Points
	case MetricPlayed:
		return r.Played
	case MetricWins:
		return r.Won
	case MetricDraws:
		return r.Drawn
	case MetricLosses:
		return r.Lost
	default:
		return r.Metrics[m]
	}
}

// Clone returns a deep copy of the row.
func (r TeamStandingRow) Clone() TeamStandingRow {
	out := r
	out.Metrics = make(map[Metric]int, len(r.Metrics))
	for k, v := range r.Metrics {
		out.Metrics[k] = v
	}
	return out
}

// differences are derived after summation so folding stays associative.
var differences = map[Metric][2]Metric{
	MetricGoalDifference:  {MetricGoalsScored, MetricGoalsConceded},
	MetricPointDifference: {MetricPointsScored, MetricPointsConceded},
	MetricSetDifference:   {MetricSetsWon, MetricSetsLost},
}

// rowMetrics lists the metrics a row carries in its Metrics map for sport.
func rowMetrics(rules SportRules) []Metric {
	var out []Metric
	for _, m := range rules.Metrics {
		switch m {
		case MetricPoints, MetricPlayed, MetricWins, MetricDraws, MetricLosses, MetricRandom:
			continue
		}
		out = append(out, m)
	}
	return out
}

// Aggregate folds per-match deltas into one row per team. Every team in
// teamIDs gets a row even without matches; teams only seen in deltas are
// added too. Rows are returned in team ID order with Rank unset.
func Aggregate(sport Sport, teamIDs []string, deltas []PointDelta) []TeamStandingRow {
	rules := catalog[sport]
	tracked := rowMetrics(rules)

	rows := make(map[string]*TeamStandingRow, len(teamIDs))
	rowFor := func(teamID string) *TeamStandingRow {
		row, ok := rows[teamID]
		if !ok {
			row = &TeamStandingRow{TeamID: teamID, Metrics: make(map[Metric]int, len(tracked))}
			for _, m := range tracked {
				row.Metrics[m] = 0
			}
			rows[teamID] = row
		}
		return row
	}
	for _, teamID := range teamIDs {
		rowFor(teamID)
	}

	for _, delta := range deltas {
		row := rowFor(delta.TeamID)
		row.Played++
		row.Points += delta.Total()
		switch outcomes[delta.Outcome].result {
		case resultWin:
			row.Won++
		case resultDraw:
			row.Drawn++
		case resultLoss:
			row.Lost++
		}
		for m, v := range delta.Metrics {
			row.Metrics[m] += v
		}
	}

	out := make([]TeamStandingRow, 0, len(rows))
	for _, row := range rows {
		for diff, parts := range differences {
			if _, ok := row.Metrics[diff]; !ok {
				if _, scored := row.Metrics[parts[0]]; !scored {
					continue
				}
			}
			row.Metrics[diff] = row.Metrics[parts[0]] - row.Metrics[parts[1]]
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}
