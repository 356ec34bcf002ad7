package standings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codr1/leaguestandings/internal/db"
	dbgen "github.com/codr1/leaguestandings/internal/db/generated"
	"github.com/codr1/leaguestandings/internal/leagues"
)

// DBStore implements Store and SnapshotStore on the application database.
type DBStore struct {
	db *db.DB
}

func NewDBStore(database *db.DB) (*DBStore, error) {
	if database == nil {
		return nil, errors.New("standings store requires a database")
	}
	return &DBStore{db: database}, nil
}

func (s *DBStore) Stamp(ctx context.Context, key Key) (Stamp, error) {
	state, err := s.db.Queries.GetSeasonResultsState(ctx, dbgen.GetSeasonResultsStateParams{
		LeagueID: key.LeagueID,
		SeasonID: key.SeasonID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Stamp{}, ErrNotFound
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("read results state: %w", err)
	}
	version, err := s.db.Queries.GetActiveRuleVersion(ctx, key.LeagueID)
	if err != nil {
		return Stamp{}, fmt.Errorf("read rule version: %w", err)
	}
	return Stamp{
		MatchCount:      int(state.MatchCount),
		ResultsRevision: state.ResultsRevision,
		ConfigVersion:   version,
	}, nil
}

// LoadSeason reads rules, roster and results in one transaction so the
// returned stamp describes exactly the data returned.
func (s *DBStore) LoadSeason(ctx context.Context, key Key) (SeasonData, error) {
	var data SeasonData
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		season, err := txdb.Queries.GetSeason(ctx, dbgen.GetSeasonParams{ID: key.SeasonID, LeagueID: key.LeagueID})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load season: %w", err)
		}

		rules, err := activeRules(ctx, txdb.Queries, key.LeagueID)
		if err != nil {
			return err
		}

		teams, err := txdb.Queries.ListSeasonTeams(ctx, key.SeasonID)
		if err != nil {
			return fmt.Errorf("load season teams: %w", err)
		}

		rows, err := txdb.Queries.ListSeasonMatchResults(ctx, dbgen.ListSeasonMatchResultsParams{
			LeagueID: key.LeagueID,
			SeasonID: key.SeasonID,
		})
		if err != nil {
			return fmt.Errorf("load match results: %w", err)
		}
		results := make([]leagues.MatchResult, 0, len(rows))
		for _, row := range rows {
			result, err := matchResultFromRow(row)
			if err != nil {
				return err
			}
			results = append(results, result)
		}

		data = SeasonData{
			Stamp: Stamp{
				MatchCount:      len(rows),
				ResultsRevision: season.ResultsRevision,
				ConfigVersion:   rules.Version,
			},
			Rules:   rules,
			TeamIDs: teams,
			Results: results,
		}
		return nil
	})
	return data, err
}

func (s *DBStore) ActiveSeasons(ctx context.Context) ([]Key, error) {
	seasons, err := s.db.Queries.ListActiveSeasons(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, 0, len(seasons))
	for _, season := range seasons {
		keys = append(keys, Key{LeagueID: season.LeagueID, SeasonID: season.ID})
	}
	return keys, nil
}

// SaveResult upserts the result and bumps the season's results revision.
func (s *DBStore) SaveResult(ctx context.Context, result leagues.MatchResult) error {
	params, err := upsertParams(result)
	if err != nil {
		return err
	}
	return s.db.RunInTx(ctx, func(txdb *db.DB) error {
		if _, err := txdb.Queries.GetSeason(ctx, dbgen.GetSeasonParams{ID: result.SeasonID, LeagueID: result.LeagueID}); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("load season: %w", err)
		}
		if _, err := txdb.Queries.UpsertMatchResult(ctx, params); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: match %s", ErrConflict, result.MatchID)
			}
			return fmt.Errorf("upsert match result: %w", err)
		}
		if _, err := txdb.Queries.BumpResultsRevision(ctx, result.SeasonID); err != nil {
			return fmt.Errorf("bump results revision: %w", err)
		}
		return nil
	})
}

func (s *DBStore) ActiveRules(ctx context.Context, leagueID string) (leagues.RuleSet, error) {
	return activeRules(ctx, s.db.Queries, leagueID)
}

// SaveRules validates the configuration against the league's sport and
// stores it as the next version.
func (s *DBStore) SaveRules(ctx context.Context, leagueID string, points leagues.PointSystemConfig, tieBreakers leagues.TieBreakerConfig) (leagues.RuleSet, error) {
	var rules leagues.RuleSet
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		sport, err := leagueSport(ctx, txdb.Queries, leagueID)
		if err != nil {
			return err
		}
		rules = leagues.RuleSet{Sport: sport, PointSystem: points, TieBreakers: tieBreakers.Ordered()}
		if err := rules.Validate(); err != nil {
			return err
		}

		pointJSON, err := json.Marshal(rules.PointSystem)
		if err != nil {
			return fmt.Errorf("encode point system: %w", err)
		}
		tieJSON, err := json.Marshal(rules.TieBreakers)
		if err != nil {
			return fmt.Errorf("encode tiebreakers: %w", err)
		}

		row, err := txdb.Queries.InsertRuleConfig(ctx, dbgen.InsertRuleConfigParams{
			LeagueID:    leagueID,
			PointSystem: string(pointJSON),
			TieBreakers: string(tieJSON),
		})
		if err != nil {
			return fmt.Errorf("insert rule config: %w", err)
		}
		rules.Version = row.Version
		return nil
	})
	return rules, err
}

func (s *DBStore) LoadSnapshot(ctx context.Context, key Key) (*Snapshot, error) {
	row, err := s.db.Queries.GetStandingsSnapshot(ctx, dbgen.GetStandingsSnapshotParams{
		LeagueID: key.LeagueID,
		SeasonID: key.SeasonID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var table leagues.Table
	if err := json.Unmarshal([]byte(row.Payload), &table); err != nil {
		return nil, fmt.Errorf("decode snapshot payload: %w", err)
	}
	return &Snapshot{
		Table: table,
		Stamp: Stamp{
			MatchCount:      int(row.MatchCount),
			ResultsRevision: row.ResultsRevision,
			ConfigVersion:   row.ConfigVersion,
		},
		ComputedAt: row.ComputedAt,
	}, nil
}

func (s *DBStore) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	payload, err := json.Marshal(snapshot.Table)
	if err != nil {
		return fmt.Errorf("encode snapshot payload: %w", err)
	}
	return s.db.Queries.UpsertStandingsSnapshot(ctx, dbgen.UpsertStandingsSnapshotParams{
		LeagueID:        snapshot.Table.LeagueID,
		SeasonID:        snapshot.Table.SeasonID,
		MatchCount:      int64(snapshot.Stamp.MatchCount),
		ResultsRevision: snapshot.Stamp.ResultsRevision,
		ConfigVersion:   snapshot.Stamp.ConfigVersion,
		Payload:         string(payload),
		ComputedAt:      snapshot.ComputedAt,
	})
}

func leagueSport(ctx context.Context, q *dbgen.Queries, leagueID string) (leagues.Sport, error) {
	league, err := q.GetLeague(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load league: %w", err)
	}
	sport, ok := leagues.ParseSport(league.Sport)
	if !ok {
		return "", &leagues.ConfigurationError{Field: "sport", Reason: fmt.Sprintf("league %s has unknown sport %q", leagueID, league.Sport)}
	}
	return sport, nil
}

// activeRules loads the newest rule configuration. A league without one is a
// configuration error; defaults are never substituted.
func activeRules(ctx context.Context, q *dbgen.Queries, leagueID string) (leagues.RuleSet, error) {
	sport, err := leagueSport(ctx, q, leagueID)
	if err != nil {
		return leagues.RuleSet{}, err
	}
	row, err := q.GetActiveRuleConfig(ctx, leagueID)
	if errors.Is(err, sql.ErrNoRows) {
		return leagues.RuleSet{}, &leagues.ConfigurationError{Reason: fmt.Sprintf("league %s has no rule configuration", leagueID)}
	}
	if err != nil {
		return leagues.RuleSet{}, fmt.Errorf("load rule config: %w", err)
	}

	var points leagues.PointSystemConfig
	if err := json.Unmarshal([]byte(row.PointSystem), &points); err != nil {
		return leagues.RuleSet{}, &leagues.ConfigurationError{Field: "pointSystem", Reason: err.Error()}
	}
	tieBreakers, _, err := leagues.DecodeTieBreakers([]byte(row.TieBreakers))
	if err != nil {
		return leagues.RuleSet{}, err
	}
	return leagues.RuleSet{
		Sport:       sport,
		Version:     row.Version,
		PointSystem: points,
		TieBreakers: tieBreakers,
	}, nil
}

func upsertParams(result leagues.MatchResult) (dbgen.UpsertMatchResultParams, error) {
	params := dbgen.UpsertMatchResultParams{
		MatchID:    result.MatchID,
		LeagueID:   result.LeagueID,
		SeasonID:   result.SeasonID,
		HomeTeamID: result.HomeTeamID,
		AwayTeamID: result.AwayTeamID,
		HomeScore:  int64(result.HomeScore),
		AwayScore:  int64(result.AwayScore),
		Status:     string(result.Status),
	}
	if len(result.Periods) > 0 {
		raw, err := json.Marshal(result.Periods)
		if err != nil {
			return params, fmt.Errorf("encode period breakdown: %w", err)
		}
		params.PeriodBreakdown = sql.NullString{String: string(raw), Valid: true}
	}
	if result.ForfeitTeamID != "" {
		params.ForfeitTeamID = sql.NullString{String: result.ForfeitTeamID, Valid: true}
	}
	return params, nil
}

func matchResultFromRow(row dbgen.MatchResult) (leagues.MatchResult, error) {
	result := leagues.MatchResult{
		MatchID:       row.MatchID,
		LeagueID:      row.LeagueID,
		SeasonID:      row.SeasonID,
		HomeTeamID:    row.HomeTeamID,
		AwayTeamID:    row.AwayTeamID,
		HomeScore:     int(row.HomeScore),
		AwayScore:     int(row.AwayScore),
		Status:        leagues.MatchStatus(row.Status),
		ForfeitTeamID: row.ForfeitTeamID.String,
	}
	if row.PeriodBreakdown.Valid && row.PeriodBreakdown.String != "" {
		if err := json.Unmarshal([]byte(row.PeriodBreakdown.String), &result.Periods); err != nil {
			return result, fmt.Errorf("decode period breakdown of match %s: %w", row.MatchID, err)
		}
	}
	return result, nil
}
