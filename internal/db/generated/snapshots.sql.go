package dbgen

import (
	"context"
	"time"
)

const upsertStandingsSnapshot = `
INSERT INTO standings_snapshots (
    league_id, season_id, match_count, results_revision, config_version, payload, computed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (league_id, season_id) DO UPDATE SET
    match_count = excluded.match_count,
    results_revision = excluded.results_revision,
    config_version = excluded.config_version,
    payload = excluded.payload,
    computed_at = excluded.computed_at
`

type UpsertStandingsSnapshotParams struct {
	LeagueID        string    `json:"league_id"`
	SeasonID        string    `json:"season_id"`
	MatchCount      int64     `json:"match_count"`
	ResultsRevision int64     `json:"results_revision"`
	ConfigVersion   int64     `json:"config_version"`
	Payload         string    `json:"payload"`
	ComputedAt      time.Time `json:"computed_at"`
}

func (q *Queries) UpsertStandingsSnapshot(ctx context.Context, arg UpsertStandingsSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertStandingsSnapshot,
		arg.LeagueID,
		arg.SeasonID,
		arg.MatchCount,
		arg.ResultsRevision,
		arg.ConfigVersion,
		arg.Payload,
		arg.ComputedAt,
	)
	return err
}

const getStandingsSnapshot = `
SELECT league_id, season_id, match_count, results_revision, config_version, payload, computed_at
FROM standings_snapshots
WHERE league_id = $1 AND season_id = $2
`

type GetStandingsSnapshotParams struct {
	LeagueID string `json:"league_id"`
	SeasonID string `json:"season_id"`
}

func (q *Queries) GetStandingsSnapshot(ctx context.Context, arg GetStandingsSnapshotParams) (StandingsSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getStandingsSnapshot, arg.LeagueID, arg.SeasonID)
	var i StandingsSnapshot
	err := row.Scan(
		&i.LeagueID,
		&i.SeasonID,
		&i.MatchCount,
		&i.ResultsRevision,
		&i.ConfigVersion,
		&i.Payload,
		&i.ComputedAt,
	)
	return i, err
}
