package leagues

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// Shuffler is the only capability a random tiebreak needs from a PRNG.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// RandSource builds the generator for one random tiebreak from a seed that
// is derived from stable IDs, never from the clock.
type RandSource func(seed uint64) Shuffler

// PCGSource is the default RandSource.
func PCGSource(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ResolveContext carries what head-to-head and random rules need beyond the
// aggregated rows.
type ResolveContext struct {
	LeagueID string
	SeasonID string
	Sport    Sport
	// Deltas are the evaluated perspectives of every eligible match.
	Deltas []PointDelta
	Rand   RandSource
}

// refiner splits one tied group into ordered sub-groups.
type refiner func(group []TeamStandingRow) [][]TeamStandingRow

// groupKey computes a rule's metric for every team of a group.
type groupKey func(group []TeamStandingRow) map[string]int

// Resolve orders rows by points and then by the tiebreaker chain. Each rule
// only sees groups that are still tied. Teams left level share a rank and are
// returned as unresolved ties.
func Resolve(rows []TeamStandingRow, config TieBreakerConfig, rc ResolveContext) ([]TeamStandingRow, []*UnresolvedTieError) {
	if rc.Rand == nil {
		rc.Rand = PCGSource
	}

	group := make([]TeamStandingRow, len(rows))
	for i := range rows {
		group[i] = rows[i].Clone()
	}
	sort.Slice(group, func(i, j int) bool { return group[i].TeamID < group[j].TeamID })

	pipeline := splitBy(rowKey(MetricPoints), SortDesc)
	for _, rule := range config.Ordered() {
		pipeline = then(pipeline, rc.refinerFor(rule))
	}

	ordered := make([]TeamStandingRow, 0, len(group))
	var ties []*UnresolvedTieError
	if len(group) == 0 {
		return ordered, nil
	}
	for _, tied := range pipeline(group) {
		rank := len(ordered) + 1
		ids := make([]string, 0, len(tied))
		for _, row := range tied {
			row.Rank = rank
			row.Tied = len(tied) > 1
			ordered = append(ordered, row)
			ids = append(ids, row.TeamID)
		}
		if len(tied) > 1 {
			ties = append(ties, &UnresolvedTieError{Rank: rank, TeamIDs: ids})
		}
	}
	return ordered, ties
}

// then composes two refiners: next only runs on sub-groups first left tied.
func then(first, next refiner) refiner {
	return func(group []TeamStandingRow) [][]TeamStandingRow {
		var out [][]TeamStandingRow
		for _, sub := range first(group) {
			if len(sub) < 2 {
				out = append(out, sub)
				continue
			}
			out = append(out, next(sub)...)
		}
		return out
	}
}

func (rc ResolveContext) refinerFor(rule TieBreakerRule) refiner {
	if rule.Sort == SortRandom {
		return rc.drawLots
	}
	if base, ok := headToHeadBase(rule.Rule); ok {
		return splitBy(rc.headToHeadKey(base), rule.Sort)
	}
	return splitBy(rowKey(rule.Rule), rule.Sort)
}

// splitBy orders a group by key and cuts it wherever the key changes. Equal
// keys keep their incoming order.
func splitBy(key groupKey, order SortOrder) refiner {
	return func(group []TeamStandingRow) [][]TeamStandingRow {
		keys := key(group)
		sorted := append([]TeamStandingRow(nil), group...)
		sort.SliceStable(sorted, func(i, j int) bool {
			ki, kj := keys[sorted[i].TeamID], keys[sorted[j].TeamID]
			if order == SortAsc {
				return ki < kj
			}
			return ki > kj
		})

		var out [][]TeamStandingRow
		start := 0
		for i := 1; i <= len(sorted); i++ {
			if i < len(sorted) && keys[sorted[i].TeamID] == keys[sorted[start].TeamID] {
				continue
			}
			out = append(out, sorted[start:i])
			start = i
		}
		return out
	}
}

func rowKey(m Metric) groupKey {
	return func(group []TeamStandingRow) map[string]int {
		keys := make(map[string]int, len(group))
		for _, row := range group {
			keys[row.TeamID] = row.Value(m)
		}
		return keys
	}
}

// headToHeadKey builds a mini-table from the matches played between the
// teams of the group and reads base from it.
func (rc ResolveContext) headToHeadKey(base Metric) groupKey {
	return func(group []TeamStandingRow) map[string]int {
		members := make(map[string]struct{}, len(group))
		ids := make([]string, 0, len(group))
		for _, row := range group {
			members[row.TeamID] = struct{}{}
			ids = append(ids, row.TeamID)
		}

		var among []PointDelta
		for _, delta := range rc.Deltas {
			_, team := members[delta.TeamID]
			_, opponent := members[delta.OpponentID]
			if team && opponent {
				among = append(among, delta)
			}
		}

		keys := make(map[string]int, len(group))
		for _, row := range Aggregate(rc.Sport, ids, among) {
			keys[row.TeamID] = row.Value(base)
		}
		return keys
	}
}

// drawLots shuffles the group with a generator seeded from the league,
// season and sorted team IDs, so the same tie always draws the same order.
func (rc ResolveContext) drawLots(group []TeamStandingRow) [][]TeamStandingRow {
	shuffled := append([]TeamStandingRow(nil), group...)
	sort.Slice(shuffled, func(i, j int) bool { return shuffled[i].TeamID < shuffled[j].TeamID })

	ids := make([]string, len(shuffled))
	for i, row := range shuffled {
		ids[i] = row.TeamID
	}
	rc.Rand(TieSeed(rc.LeagueID, rc.SeasonID, ids)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	out := make([][]TeamStandingRow, len(shuffled))
	for i := range shuffled {
		out[i] = shuffled[i : i+1]
	}
	return out
}

// TieSeed derives the random-tiebreak seed from stable identifiers. teamIDs
// must already be sorted.
func TieSeed(leagueID, seasonID string, teamIDs []string) uint64 {
	h := fnv.New64a()
	write := func(s string) {
		_, _ = h.Write([]byte(s))
		_, _ = h.Write([]byte{0})
	}
	write(leagueID)
	write(seasonID)
	for _, id := range teamIDs {
		write(id)
	}
	return h.Sum64()
}
