package standings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/codr1/leaguestandings/internal/config"
	"github.com/codr1/leaguestandings/internal/leagues"
)

var (
	ErrNotFound = errors.New("league or season not found")
	// ErrConflict reports a match ID already recorded for another league or season.
	ErrConflict      = errors.New("match result conflicts with an existing record")
	ErrInvalidResult = errors.New("invalid match result")
	ErrTimeout       = errors.New("standings computation timed out")
)

// ComputationError is returned by GetStandings when no table can be served.
type ComputationError struct {
	LeagueID string
	SeasonID string
	Err      error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("standings for league %s season %s: %v", e.LeagueID, e.SeasonID, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

type Key struct {
	LeagueID string
	SeasonID string
}

func (k Key) String() string {
	return k.LeagueID + "/" + k.SeasonID
}

// Stamp identifies the inputs a table was computed from. ResultsRevision
// moves on every recorded result, including corrections that leave the
// match count unchanged.
type Stamp struct {
	MatchCount      int   `json:"matchCount"`
	ResultsRevision int64 `json:"resultsRevision"`
	ConfigVersion   int64 `json:"configVersion"`
}

// Supersedes reports whether s is strictly newer than other.
func (s Stamp) Supersedes(other Stamp) bool {
	return s != other &&
		s.ResultsRevision >= other.ResultsRevision &&
		s.ConfigVersion >= other.ConfigVersion
}

// Snapshot is one computed table. Snapshots held by the service are never
// mutated; callers receive copies.
type Snapshot struct {
	Table      leagues.Table `json:"table"`
	Stamp      Stamp         `json:"stamp"`
	ComputedAt time.Time     `json:"computedAt"`
}

func (s *Snapshot) Key() Key {
	return Key{LeagueID: s.Table.LeagueID, SeasonID: s.Table.SeasonID}
}

func (s *Snapshot) clone() *Snapshot {
	out := *s
	out.Table = s.Table.Clone()
	return &out
}

// SeasonData is everything loaded for one computation.
type SeasonData struct {
	Stamp   Stamp
	Rules   leagues.RuleSet
	TeamIDs []string
	Results []leagues.MatchResult
}

// Store is the persistence the service reads from and writes through.
type Store interface {
	Stamp(ctx context.Context, key Key) (Stamp, error)
	LoadSeason(ctx context.Context, key Key) (SeasonData, error)
	ActiveSeasons(ctx context.Context) ([]Key, error)
	SaveResult(ctx context.Context, result leagues.MatchResult) error
	ActiveRules(ctx context.Context, leagueID string) (leagues.RuleSet, error)
	SaveRules(ctx context.Context, leagueID string, points leagues.PointSystemConfig, tieBreakers leagues.TieBreakerConfig) (leagues.RuleSet, error)
}

// SnapshotStore persists computed tables so a restarted service can serve
// them while their stamp still matches.
type SnapshotStore interface {
	LoadSnapshot(ctx context.Context, key Key) (*Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error
}

// Listener receives every snapshot that replaces a cached one. Listeners run
// on the computing goroutine and must not block.
type Listener func(snapshot *Snapshot)

type Options struct {
	ComputeTimeout     time.Duration
	EagerRecompute     bool
	RefreshConcurrency int
	Rand               leagues.RandSource
}

func OptionsFromConfig(cfg config.StandingsConfig) Options {
	return Options{
		ComputeTimeout:     cfg.ComputeTimeout,
		EagerRecompute:     cfg.EagerRecompute,
		RefreshConcurrency: cfg.RefreshConcurrency,
	}
}

type Service struct {
	store     Store
	snapshots SnapshotStore
	opts      Options
	now       func() time.Time

	cache sync.Map // Key -> *Snapshot
	group singleflight.Group

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int

	background sync.WaitGroup
}

// NewService builds a standings service over store. snapshots may be nil.
func NewService(store Store, snapshots SnapshotStore, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("standings service requires a store")
	}
	if opts.ComputeTimeout <= 0 {
		opts.ComputeTimeout = 5 * time.Second
	}
	if opts.RefreshConcurrency <= 0 {
		opts.RefreshConcurrency = 4
	}
	if opts.Rand == nil {
		opts.Rand = leagues.PCGSource
	}
	return &Service{
		store:     store,
		snapshots: snapshots,
		opts:      opts,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}, nil
}

// GetStandings returns the current table for a season, recomputing it when
// the cached stamp no longer matches the store.
func (s *Service) GetStandings(ctx context.Context, leagueID, seasonID string) (*Snapshot, error) {
	key := Key{LeagueID: leagueID, SeasonID: seasonID}
	if strings.TrimSpace(leagueID) == "" || strings.TrimSpace(seasonID) == "" {
		return nil, &ComputationError{LeagueID: leagueID, SeasonID: seasonID, Err: ErrNotFound}
	}

	stamp, err := s.store.Stamp(ctx, key)
	if err != nil {
		return nil, &ComputationError{LeagueID: leagueID, SeasonID: seasonID, Err: err}
	}

	if cached, ok := s.cached(key); ok && cached.Stamp == stamp {
		return cached.clone(), nil
	}
	if persisted := s.persisted(ctx, key, stamp); persisted != nil {
		return s.remember(persisted).clone(), nil
	}

	snapshot, err := s.recompute(ctx, key, stamp)
	if err != nil {
		return nil, &ComputationError{LeagueID: leagueID, SeasonID: seasonID, Err: err}
	}
	return snapshot.clone(), nil
}

// Cached returns the cached snapshot without consulting the store.
func (s *Service) Cached(leagueID, seasonID string) (*Snapshot, bool) {
	snapshot, ok := s.cached(Key{LeagueID: leagueID, SeasonID: seasonID})
	if !ok {
		return nil, false
	}
	return snapshot.clone(), true
}

func (s *Service) cached(key Key) (*Snapshot, bool) {
	value, ok := s.cache.Load(key)
	if !ok {
		return nil, false
	}
	return value.(*Snapshot), true
}

func (s *Service) persisted(ctx context.Context, key Key, stamp Stamp) *Snapshot {
	if s.snapshots == nil {
		return nil
	}
	snapshot, err := s.snapshots.LoadSnapshot(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("season", key.String()).Msg("Failed to load persisted standings snapshot")
		return nil
	}
	if snapshot == nil || snapshot.Stamp != stamp {
		return nil
	}
	return snapshot
}

// recompute collapses concurrent requests for the same inputs into one run.
// The run outlives a cancelled caller so the others still get a table.
func (s *Service) recompute(ctx context.Context, key Key, stamp Stamp) (*Snapshot, error) {
	flight := fmt.Sprintf("%s\x00%s\x00%d\x00%d\x00%d",
		key.LeagueID, key.SeasonID, stamp.MatchCount, stamp.ResultsRevision, stamp.ConfigVersion)

	ch := s.group.DoChan(flight, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), key)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type computed struct {
	table leagues.Table
	err   error
}

func (s *Service) compute(ctx context.Context, key Key) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ComputeTimeout)
	defer cancel()

	logger := log.Ctx(ctx).With().
		Str("component", "standings_service").
		Str("league_id", key.LeagueID).
		Str("season_id", key.SeasonID).
		Logger()
	start := s.now()

	season, err := s.store.LoadSeason(ctx, key)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s loading season: %v", ErrTimeout, s.opts.ComputeTimeout, err)
		}
		return nil, fmt.Errorf("load season: %w", err)
	}

	done := make(chan computed, 1)
	go func() {
		table, err := leagues.Compute(leagues.Input{
			LeagueID: key.LeagueID,
			SeasonID: key.SeasonID,
			Rules:    season.Rules,
			TeamIDs:  season.TeamIDs,
			Results:  season.Results,
		}, leagues.WithRandSource(s.opts.Rand))
		done <- computed{table: table, err: err}
	}()

	var out computed
	select {
	case out = <-done:
	case <-ctx.Done():
		logger.Error().Dur("timeout", s.opts.ComputeTimeout).Msg("Standings computation timed out")
		return nil, fmt.Errorf("%w after %s", ErrTimeout, s.opts.ComputeTimeout)
	}
	if out.err != nil {
		logger.Error().Err(out.err).Msg("Standings computation failed")
		return nil, out.err
	}

	snapshot := &Snapshot{Table: out.table, Stamp: season.Stamp, ComputedAt: s.now().UTC()}
	logger.Info().
		Int("match_count", season.Stamp.MatchCount).
		Int64("results_revision", season.Stamp.ResultsRevision).
		Int64("config_version", season.Stamp.ConfigVersion).
		Int("warnings", len(out.table.Warnings)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("Computed standings")

	// A result recorded while this run was loading or computing makes the
	// table stale already; hand it to the caller but keep it out of the
	// cache and away from listeners.
	if latest, err := s.store.Stamp(ctx, key); err == nil && latest.Supersedes(season.Stamp) {
		logger.Debug().
			Int64("results_revision", season.Stamp.ResultsRevision).
			Int64("latest_revision", latest.ResultsRevision).
			Msg("Standings inputs changed during computation")
		return snapshot, nil
	}

	kept := s.remember(snapshot)
	if kept == snapshot && s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
			logger.Warn().Err(err).Msg("Failed to persist standings snapshot")
		}
	}
	return snapshot, nil
}

// remember installs snapshot unless the cache already holds the same or a
// newer stamp, and returns the snapshot left in the cache.
func (s *Service) remember(snapshot *Snapshot) *Snapshot {
	key := snapshot.Key()
	for {
		previous, loaded := s.cache.LoadOrStore(key, snapshot)
		if !loaded {
			s.notify(snapshot)
			return snapshot
		}
		current := previous.(*Snapshot)
		if current.Stamp == snapshot.Stamp || current.Stamp.Supersedes(snapshot.Stamp) {
			return current
		}
		if s.cache.CompareAndSwap(key, current, snapshot) {
			s.notify(snapshot)
			return snapshot
		}
	}
}

// Invalidate drops the cached table of one season.
func (s *Service) Invalidate(leagueID, seasonID string) {
	s.cache.Delete(Key{LeagueID: leagueID, SeasonID: seasonID})
}

// InvalidateLeague drops the cached tables of every season of a league.
func (s *Service) InvalidateLeague(leagueID string) {
	s.cache.Range(func(k, _ any) bool {
		if key := k.(Key); key.LeagueID == leagueID {
			s.cache.Delete(key)
		}
		return true
	})
}

// Subscribe registers fn for snapshot updates and returns its cancel func.
func (s *Service) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify(snapshot *Snapshot) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(snapshot.clone())
	}
}

// RecordResult stores a new or corrected match result and invalidates the
// season it belongs to. A missing match ID is generated.
func (s *Service) RecordResult(ctx context.Context, result leagues.MatchResult) (leagues.MatchResult, error) {
	if result.LeagueID == "" || result.SeasonID == "" {
		return result, fmt.Errorf("%w: league and season are required", ErrInvalidResult)
	}
	if result.HomeTeamID == "" || result.AwayTeamID == "" {
		return result, fmt.Errorf("%w: both teams are required", ErrInvalidResult)
	}
	status, ok := leagues.ParseMatchStatus(string(result.Status))
	if !ok {
		return result, fmt.Errorf("%w: unknown status %q", ErrInvalidResult, result.Status)
	}
	result.Status = status
	if result.MatchID == "" {
		result.MatchID = uuid.NewString()
	}

	logger := log.Ctx(ctx).With().
		Str("component", "standings_service").
		Str("league_id", result.LeagueID).
		Str("season_id", result.SeasonID).
		Str("match_id", result.MatchID).
		Logger()

	if err := s.store.SaveResult(ctx, result); err != nil {
		logger.Error().Err(err).Msg("Failed to record match result")
		return result, err
	}
	s.Invalidate(result.LeagueID, result.SeasonID)
	logger.Info().Str("status", string(result.Status)).Msg("Recorded match result")

	if s.opts.EagerRecompute {
		s.refreshInBackground(ctx, Key{LeagueID: result.LeagueID, SeasonID: result.SeasonID})
	}
	return result, nil
}

// Rules returns the active rule set of a league.
func (s *Service) Rules(ctx context.Context, leagueID string) (leagues.RuleSet, error) {
	return s.store.ActiveRules(ctx, leagueID)
}

// UpdateRules validates and stores a new rule configuration version, then
// invalidates every season of the league.
func (s *Service) UpdateRules(ctx context.Context, leagueID string, points leagues.PointSystemConfig, tieBreakers leagues.TieBreakerConfig) (leagues.RuleSet, error) {
	rules, err := s.store.SaveRules(ctx, leagueID, points, tieBreakers)
	if err != nil {
		return leagues.RuleSet{}, err
	}
	s.InvalidateLeague(leagueID)
	log.Ctx(ctx).Info().
		Str("component", "standings_service").
		Str("league_id", leagueID).
		Int64("config_version", rules.Version).
		Msg("Stored league rule configuration")

	if s.opts.EagerRecompute {
		seasons, err := s.store.ActiveSeasons(ctx)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Failed to list seasons for eager recompute")
			return rules, nil
		}
		for _, key := range seasons {
			if key.LeagueID == leagueID {
				s.refreshInBackground(ctx, key)
			}
		}
	}
	return rules, nil
}

func (s *Service) refreshInBackground(ctx context.Context, key Key) {
	logger := log.Ctx(ctx).With().Str("season", key.String()).Logger()
	bg := logger.WithContext(context.Background())

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.GetStandings(bg, key.LeagueID, key.SeasonID); err != nil {
			logger.Warn().Err(err).Msg("Eager standings recompute failed")
		}
	}()
}

// RefreshAll recomputes every stale active season, a bounded number at a
// time. It returns how many seasons were refreshed and the joined failures.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	seasons, err := s.store.ActiveSeasons(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active seasons: %w", err)
	}

	var (
		mu       sync.Mutex
		failures []error
		done     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.RefreshConcurrency)
	for _, key := range seasons {
		g.Go(func() error {
			_, err := s.GetStandings(gctx, key.LeagueID, key.SeasonID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return nil
			}
			done++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return done, err
	}
	return done, errors.Join(failures...)
}

// Wait blocks until background recomputes have finished.
func (s *Service) Wait() {
	s.background.Wait()
}
