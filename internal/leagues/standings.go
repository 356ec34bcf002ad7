package leagues

import (
	"errors"
	"fmt"
	"sort"
)

type WarningKind string

const (
	WarningExcludedMatch WarningKind = "excluded_match"
	WarningUnresolvedTie WarningKind = "unresolved_tie"
)

// Warning is a non-fatal finding of a computation.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	MatchID string      `json:"matchId,omitempty"`
	Rank    int         `json:"rank,omitempty"`
	TeamIDs []string    `json:"teamIds,omitempty"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Table is the ranked standings of one season. It is stamped with the number
// of match results it was computed from so callers can detect staleness.
type Table struct {
	LeagueID        string            `json:"leagueId"`
	SeasonID        string            `json:"seasonId"`
	Sport           Sport             `json:"sport"`
	ConfigVersion   int64             `json:"configVersion"`
	MatchCount      int               `json:"matchCount"`
	EligibleMatches int               `json:"eligibleMatches"`
	Rows            []TeamStandingRow `json:"rows"`
	Warnings        []Warning         `json:"warnings,omitempty"`
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := t
	if t.Rows != nil {
		out.Rows = make([]TeamStandingRow, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i] = row.Clone()
		}
	}
	if t.Warnings != nil {
		out.Warnings = make([]Warning, len(t.Warnings))
		for i, w := range t.Warnings {
			w.TeamIDs = append([]string(nil), w.TeamIDs...)
			out.Warnings[i] = w
		}
	}
	return out
}

// Input is everything one computation needs.
type Input struct {
	LeagueID string
	SeasonID string
	Rules    RuleSet
	TeamIDs  []string
	Results  []MatchResult
}

type computeOptions struct {
	rand RandSource
}

type Option func(*computeOptions)

// WithRandSource replaces the generator used for random tiebreaks.
func WithRandSource(src RandSource) Option {
	return func(o *computeOptions) {
		if src != nil {
			o.rand = src
		}
	}
}

// Compute classifies, evaluates, aggregates and ranks a season. Configuration
// faults abort the run and no table is returned. Malformed matches are left
// out and reported as warnings, as are ties the chain could not break.
func Compute(in Input, opts ...Option) (Table, error) {
	options := computeOptions{rand: PCGSource}
	for _, opt := range opts {
		opt(&options)
	}

	if err := in.Rules.Validate(); err != nil {
		return Table{}, err
	}
	sport := in.Rules.Sport

	roster := make(map[string]struct{}, len(in.TeamIDs))
	for _, teamID := range in.TeamIDs {
		roster[teamID] = struct{}{}
	}

	results, warnings := dedupeResults(in.Results)
	deltas := make([]PointDelta, 0, 2*len(results))
	eligible := 0
	for _, result := range results {
		if !result.Status.Eligible() {
			continue
		}
		if reason := scopeMismatch(in, result, roster); reason != "" {
			warnings = append(warnings, excluded(&UnclassifiableResultError{MatchID: result.MatchID, Reason: reason}))
			continue
		}

		classification, err := Classify(sport, result)
		if err != nil {
			if errors.Is(err, ErrUnclassifiable) {
				warnings = append(warnings, excluded(err))
				continue
			}
			return Table{}, err
		}
		home, away, err := EvaluateMatch(in.Rules.PointSystem, classification)
		if err != nil {
			return Table{}, fmt.Errorf("match %s: %w", result.MatchID, err)
		}
		deltas = append(deltas, home, away)
		eligible++
	}

	rows := Aggregate(sport, in.TeamIDs, deltas)
	ranked, ties := Resolve(rows, in.Rules.TieBreakers, ResolveContext{
		LeagueID: in.LeagueID,
		SeasonID: in.SeasonID,
		Sport:    sport,
		Deltas:   deltas,
		Rand:     options.rand,
	})
	for _, tie := range ties {
		warnings = append(warnings, Warning{
			Kind:    WarningUnresolvedTie,
			Rank:    tie.Rank,
			TeamIDs: tie.TeamIDs,
			Message: tie.Error(),
			Err:     tie,
		})
	}
	sortWarnings(warnings)

	return Table{
		LeagueID:        in.LeagueID,
		SeasonID:        in.SeasonID,
		Sport:           sport,
		ConfigVersion:   in.Rules.Version,
		MatchCount:      len(in.Results),
		EligibleMatches: eligible,
		Rows:            ranked,
		Warnings:        warnings,
	}, nil
}

// dedupeResults returns one record per match ID in ID order. Identical
// repeats collapse; conflicting repeats are all excluded.
func dedupeResults(results []MatchResult) ([]MatchResult, []Warning) {
	byID := make(map[string][]MatchResult, len(results))
	var warnings []Warning
	for _, result := range results {
		if result.MatchID == "" {
			warnings = append(warnings, excluded(unclassifiable("", "match ID is required")))
			continue
		}
		byID[result.MatchID] = append(byID[result.MatchID], result)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]MatchResult, 0, len(ids))
	for _, id := range ids {
		copies := byID[id]
		conflict := false
		for _, other := range copies[1:] {
			if !copies[0].equal(other) {
				conflict = true
				break
			}
		}
		if conflict {
			warnings = append(warnings, excluded(unclassifiable(id, "%d conflicting records share this match ID", len(copies))))
			continue
		}
		out = append(out, copies[0])
	}
	return out, warnings
}

func scopeMismatch(in Input, result MatchResult, roster map[string]struct{}) string {
	if in.LeagueID != "" && result.LeagueID != in.LeagueID {
		return fmt.Sprintf("belongs to league %q, not %q", result.LeagueID, in.LeagueID)
	}
	if in.SeasonID != "" && result.SeasonID != in.SeasonID {
		return fmt.Sprintf("belongs to season %q, not %q", result.SeasonID, in.SeasonID)
	}
	if len(roster) == 0 {
		return ""
	}
	for _, teamID := range []string{result.HomeTeamID, result.AwayTeamID} {
		if _, ok := roster[teamID]; !ok {
			return fmt.Sprintf("team %q is not registered for the season", teamID)
		}
	}
	return ""
}

func excluded(err error) Warning {
	w := Warning{Kind: WarningExcludedMatch, Message: err.Error(), Err: err}
	var unclassifiable *UnclassifiableResultError
	if errors.As(err, &unclassifiable) {
		w.MatchID = unclassifiable.MatchID
	}
	return w
}

func sortWarnings(warnings []Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.MatchID != b.MatchID {
			return a.MatchID < b.MatchID
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Message < b.Message
	})
}
