package dbgen

import (
	"context"
	"database/sql"
)

const upsertMatchResult = `
INSERT INTO match_results (
    match_id, league_id, season_id, home_team_id, away_team_id,
    home_score, away_score, period_breakdown, status, forfeit_team_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (match_id) DO UPDATE SET
    home_team_id = excluded.home_team_id,
    away_team_id = excluded.away_team_id,
    home_score = excluded.home_score,
    away_score = excluded.away_score,
    period_breakdown = excluded.period_breakdown,
    status = excluded.status,
    forfeit_team_id = excluded.forfeit_team_id,
    recorded_at = CURRENT_TIMESTAMP
WHERE match_results.league_id = excluded.league_id
  AND match_results.season_id = excluded.season_id
RETURNING match_id, league_id, season_id, home_team_id, away_team_id,
    home_score, away_score, period_breakdown, status, forfeit_team_id, recorded_at
`

type UpsertMatchResultParams struct {
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
}

// UpsertMatchResult inserts a result or corrects an existing one. A match ID
// already recorded for another league or season yields sql.ErrNoRows.
func (q *Queries) UpsertMatchResult(ctx context.Context, arg UpsertMatchResultParams) (MatchResult, error) {
	row := q.db.QueryRowContext(ctx, upsertMatchResult,
		arg.MatchID,
		arg.LeagueID,
		arg.SeasonID,
		arg.HomeTeamID,
		arg.AwayTeamID,
		arg.HomeScore,
		arg.AwayScore,
		arg.PeriodBreakdown,
		arg.Status,
		arg.ForfeitTeamID,
	)
	var i MatchResult
	err := row.Scan(
		&i.MatchID,
		&i.LeagueID,
		&i.SeasonID,
		&i.HomeTeamID,
		&i.AwayTeamID,
		&i.HomeScore,
		&i.AwayScore,
		&i.PeriodBreakdown,
		&i.Status,
		&i.ForfeitTeamID,
		&i.RecordedAt,
	)
	return i, err
}

const listSeasonMatchResults = `
SELECT match_id, league_id, season_id, home_team_id, away_team_id,
    home_score, away_score, period_breakdown, status, forfeit_team_id, recorded_at
FROM match_results
WHERE league_id = $1 AND season_id = $2
ORDER BY match_id
`

type ListSeasonMatchResultsParams struct {
	LeagueID string `json:"league_id"`
	SeasonID string `json:"season_id"`
}

func (q *Queries) ListSeasonMatchResults(ctx context.Context, arg ListSeasonMatchResultsParams) ([]MatchResult, error) {
	rows, err := q.db.QueryContext(ctx, listSeasonMatchResults, arg.LeagueID, arg.SeasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchResult
	for rows.Next() {
		var i MatchResult
		if err := rows.Scan(
			&i.MatchID,
			&i.LeagueID,
			&i.SeasonID,
			&i.HomeTeamID,
			&i.AwayTeamID,
			&i.HomeScore,
			&i.AwayScore,
			&i.PeriodBreakdown,
			&i.Status,
			&i.ForfeitTeamID,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSeasonResultsState = `
SELECT s.results_revision,
    (SELECT COUNT(*) FROM match_results m WHERE m.league_id = s.league_id AND m.season_id = s.id)
FROM seasons s
WHERE s.league_id = $1 AND s.id = $2
`

type GetSeasonResultsStateParams struct {
	LeagueID string `json:"league_id"`
	SeasonID string `json:"season_id"`
}

type GetSeasonResultsStateRow struct {
	ResultsRevision int64 `json:"results_revision"`
	MatchCount      int64 `json:"match_count"`
}

// GetSeasonResultsState returns the cheap freshness stamp of a season's results.
func (q *Queries) GetSeasonResultsState(ctx context.Context, arg GetSeasonResultsStateParams) (GetSeasonResultsStateRow, error) {
	row := q.db.QueryRowContext(ctx, getSeasonResultsState, arg.LeagueID, arg.SeasonID)
	var i GetSeasonResultsStateRow
	err := row.Scan(&i.ResultsRevision, &i.MatchCount)
	return i, err
}
