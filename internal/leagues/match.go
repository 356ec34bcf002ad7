package leagues

import "strings"

type MatchStatus string

const (
	StatusScheduled  MatchStatus = "SCHEDULED"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusPostponed  MatchStatus = "POSTPONED"
	StatusCancelled  MatchStatus = "CANCELLED"
	StatusCompleted  MatchStatus = "COMPLETED"
	StatusForfeit    MatchStatus = "FORFEIT"
)

// ParseMatchStatus normalizes a raw status name.
func ParseMatchStatus(raw string) (MatchStatus, bool) {
	status := MatchStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch status {
	case StatusScheduled, StatusInProgress, StatusPostponed, StatusCancelled, StatusCompleted, StatusForfeit:
		return status, true
	}
	return "", false
}

// Eligible reports whether a match with this status counts toward standings.
func (s MatchStatus) Eligible() bool {
	return s == StatusCompleted || s == StatusForfeit
}

// PeriodScore is one period, set or game of a match.
type PeriodScore struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// MatchResult is an immutable, already validated result handed over by the
// results subsystem. For set-based sports HomeScore and AwayScore count sets
// won and Periods carries the per-set rally points.
type MatchResult struct {
	MatchID       string        `json:"matchId"`
	LeagueID      string        `json:"leagueId"`
	SeasonID      string        `json:"seasonId"`
	HomeTeamID    string        `json:"homeTeamId"`
	AwayTeamID    string        `json:"awayTeamId"`
	HomeScore     int           `json:"homeScore"`
	AwayScore     int           `json:"awayScore"`
	Periods       []PeriodScore `json:"periodBreakdown,omitempty"`
	Status        MatchStatus   `json:"status"`
	ForfeitTeamID string        `json:"forfeitTeamId,omitempty"`
}

func (m MatchResult) equal(other MatchResult) bool {
	if m.MatchID != other.MatchID ||
		m.LeagueID != other.LeagueID ||
		m.SeasonID != other.SeasonID ||
		m.HomeTeamID != other.HomeTeamID ||
		m.AwayTeamID != other.AwayTeamID ||
		m.HomeScore != other.HomeScore ||
		m.AwayScore != other.AwayScore ||
		m.Status != other.Status ||
		m.ForfeitTeamID != other.ForfeitTeamID ||
		len(m.Periods) != len(other.Periods) {
		return false
	}
	for i := range m.Periods {
		if m.Periods[i] != other.Periods[i] {
			return false
		}
	}
	return true
}
