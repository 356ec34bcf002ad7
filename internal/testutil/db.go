package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/codr1/leaguestandings/internal/db"
	dbgen "github.com/codr1/leaguestandings/internal/db/generated"
)

// NewTestDB creates a temporary SQLite database with migrations applied.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath)
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// SeedLeague inserts a league without any rule configuration.
func SeedLeague(t *testing.T, database *db.DB, leagueID, sport string) {
	t.Helper()

	_, err := database.Queries.CreateLeague(context.Background(), dbgen.CreateLeagueParams{
		ID:    leagueID,
		Name:  leagueID,
		Sport: sport,
	})
	if err != nil {
		t.Fatalf("seed league %s: %v", leagueID, err)
	}
}

// SeedSeason inserts an active season and registers its teams.
func SeedSeason(t *testing.T, database *db.DB, leagueID, seasonID string, teamIDs ...string) {
	t.Helper()

	ctx := context.Background()
	if _, err := database.Queries.CreateSeason(ctx, dbgen.CreateSeasonParams{
		ID:       seasonID,
		LeagueID: leagueID,
		Name:     seasonID,
	}); err != nil {
		t.Fatalf("seed season %s: %v", seasonID, err)
	}
	for _, teamID := range teamIDs {
		if err := database.Queries.AddSeasonTeam(ctx, dbgen.AddSeasonTeamParams{
			SeasonID: seasonID,
			TeamID:   teamID,
		}); err != nil {
			t.Fatalf("seed team %s: %v", teamID, err)
		}
	}
}
