package dbgen

import (
	"database/sql"
	"time"
)

type League struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sport     string    `json:"sport"`
	CreatedAt time.Time `json:"created_at"`
}

type LeagueRuleConfig struct {
	ID          int64     `json:"id"`
	LeagueID    string    `json:"league_id"`
	Version     int64     `json:"version"`
	PointSystem string    `json:"point_system"`
	TieBreakers string    `json:"tie_breakers"`
	CreatedAt   time.Time `json:"created_at"`
}

type Season struct {
	ID              string    `json:"id"`
	LeagueID        string    `json:"league_id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	ResultsRevision int64     `json:"results_revision"`
	CreatedAt       time.Time `json:"created_at"`
}

type SeasonTeam struct {
	SeasonID string `json:"season_id"`
	TeamID   string `json:"team_id"`
}

type MatchResult struct {
	MatchID         string         `json:"match_id"`
	LeagueID        string         `json:"league_id"`
	SeasonID        string         `json:"season_id"`
	HomeTeamID      string         `json:"home_team_id"`
	AwayTeamID      string         `json:"away_team_id"`
	HomeScore       int64          `json:"home_score"`
	AwayScore       int64          `json:"away_score"`
	PeriodBreakdown sql.NullString `json:"period_breakdown"`
	Status          string         `json:"status"`
	ForfeitTeamID   sql.NullString `json:"forfeit_team_id"`
	RecordedAt      time.Time      `json:"recorded_at"`
}

type StandingsSnapshot struct {
	LeagueID        string    `json:"league_id"`
	SeasonID        string    `json:"season_id"`
	MatchCount      int64     `json:"match_count"`
	ResultsRevision int64     `json:"results_revision"`
	ConfigVersion   int64     `json:"config_version"`
	Payload         string    `json:"payload"`
	ComputedAt      time.Time `json:"computed_at"`
}
