package dbgen

import (
	"context"
)

const createLeague = `
INSERT INTO leagues (id, name, sport)
VALUES ($1, $2, $3)
RETURNING id, name, sport, created_at
`

type CreateLeagueParams struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Sport string `json:"sport"`
}

func (q *Queries) CreateLeague(ctx context.Context, arg CreateLeagueParams) (League, error) {
	row := q.db.QueryRowContext(ctx, createLeague, arg.ID, arg.Name, arg.Sport)
	var i League
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Sport,
		&i.CreatedAt,
	)
	return i, err
}

const getLeague = `
SELECT id, name, sport, created_at
FROM leagues
WHERE id = $1
`

func (q *Queries) GetLeague(ctx context.Context, id string) (League, error) {
	row := q.db.QueryRowContext(ctx, getLeague, id)
	var i League
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Sport,
		&i.CreatedAt,
	)
	return i, err
}

const insertRuleConfig = `
INSERT INTO league_rule_configs (league_id, version, point_system, tie_breakers)
SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3
FROM league_rule_configs
WHERE league_id = $1
RETURNING id, league_id, version, point_system, tie_breakers, created_at
`

type InsertRuleConfigParams struct {
	LeagueID    string `json:"league_id"`
	PointSystem string `json:"point_system"`
	TieBreakers string `json:"tie_breakers"`
}

// InsertRuleConfig stores a new configuration version for the league. The
// newest version is the active one.
func (q *Queries) InsertRuleConfig(ctx context.Context, arg InsertRuleConfigParams) (LeagueRuleConfig, error) {
	row := q.db.QueryRowContext(ctx, insertRuleConfig, arg.LeagueID, arg.PointSystem, arg.TieBreakers)
	var i LeagueRuleConfig
	err := row.Scan(
		&i.ID,
		&i.LeagueID,
		&i.Version,
		&i.PointSystem,
		&i.TieBreakers,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveRuleConfig = `
SELECT id, league_id, version, point_system, tie_breakers, created_at
FROM league_rule_configs
WHERE league_id = $1
ORDER BY version DESC
LIMIT 1
`

func (q *Queries) GetActiveRuleConfig(ctx context.Context, leagueID string) (LeagueRuleConfig, error) {
	row := q.db.QueryRowContext(ctx, getActiveRuleConfig, leagueID)
	var i LeagueRuleConfig
	err := row.Scan(
		&i.ID,
		&i.LeagueID,
		&i.Version,
		&i.PointSystem,
		&i.TieBreakers,
		&i.CreatedAt,
	)
	return i, err
}

const getActiveRuleVersion = `
SELECT COALESCE(MAX(version), 0)
FROM league_rule_configs
WHERE league_id = $1
`

func (q *Queries) GetActiveRuleVersion(ctx context.Context, leagueID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, getActiveRuleVersion, leagueID)
	var version int64
	err := row.Scan(&version)
	return version, err
}
