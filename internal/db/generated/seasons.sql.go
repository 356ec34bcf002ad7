package dbgen

import (
	"context"
)

const createSeason = `
INSERT INTO seasons (id, league_id, name)
VALUES ($1, $2, $3)
RETURNING id, league_id, name, status, results_revision, created_at
`

type CreateSeasonParams struct {
	ID       string `json:"id"`
	LeagueID string `json:"league_id"`
	Name     string `json:"name"`
}

func (q *Queries) CreateSeason(ctx context.Context, arg CreateSeasonParams) (Season, error) {
	row := q.db.QueryRowContext(ctx, createSeason, arg.ID, arg.LeagueID, arg.Name)
	var i Season
	err := row.Scan(
		&i.ID,
		&i.LeagueID,
		&i.Name,
		&i.Status,
		&i.ResultsRevision,
		&i.CreatedAt,
	)
	return i, err
}

const getSeason = `
SELECT id, league_id, name, status, results_revision, created_at
FROM seasons
WHERE id = $1 AND league_id = $2
`

type GetSeasonParams struct {
	ID       string `json:"id"`
	LeagueID string `json:"league_id"`
}

func (q *Queries) GetSeason(ctx context.Context, arg GetSeasonParams) (Season, error) {
	row := q.db.QueryRowContext(ctx, getSeason, arg.ID, arg.LeagueID)
	var i Season
	err := row.Scan(
		&i.ID,
		&i.LeagueID,
		&i.Name,
		&i.Status,
		&i.ResultsRevision,
		&i.CreatedAt,
	)
	return i, err
}

const listActiveSeasons = `
SELECT id, league_id, name, status, results_revision, created_at
FROM seasons
WHERE status = 'active'
ORDER BY league_id, id
`

func (q *Queries) ListActiveSeasons(ctx context.Context) ([]Season, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSeasons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Season
	for rows.Next() {
		var i Season
		if err := rows.Scan(
			&i.ID,
			&i.LeagueID,
			&i.Name,
			&i.Status,
			&i.ResultsRevision,
			&i.CreatedAt,
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

const bumpResultsRevision = `
UPDATE seasons
SET results_revision = results_revision + 1
WHERE id = $1
RETURNING results_revision
`

func (q *Queries) BumpResultsRevision(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, bumpResultsRevision, id)
	var revision int64
	err := row.Scan(&revision)
	return revision, err
}

const addSeasonTeam = `
INSERT INTO season_teams (season_id, team_id)
VALUES ($1, $2)
ON CONFLICT (season_id, team_id) DO NOTHING
`

type AddSeasonTeamParams struct {
	SeasonID string `json:"season_id"`
	TeamID   string `json:"team_id"`
}

func (q *Queries) AddSeasonTeam(ctx context.Context, arg AddSeasonTeamParams) error {
	_, err := q.db.ExecContext(ctx, addSeasonTeam, arg.SeasonID, arg.TeamID)
	return err
}

const listSeasonTeams = `
SELECT team_id
FROM season_teams
WHERE season_id = $1
ORDER BY team_id
`

func (q *Queries) ListSeasonTeams(ctx context.Context, seasonID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listSeasonTeams, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var teamID string
		if err := rows.Scan(&teamID); err != nil {
			return nil, err
		}
		items = append(items, teamID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
