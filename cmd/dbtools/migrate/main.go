// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/codr1/leaguestandings/internal/config"
)

func main() {
	var (
		driver         = flag.String("driver", config.DriverSQLite, "Database driver (sqlite, postgres)")
		dbTarget       = flag.String("db", "", "SQLite database path or postgres DSN")
		migrationsPath = flag.String("migrations", "", "Migrations directory; defaults to internal/db/migrations/<driver>")
		command        = flag.String("command", "", "Command to run (up, down, version)")
	)
	flag.Parse()

	if *dbTarget == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *migrationsPath == "" {
		*migrationsPath = filepath.Join("internal", "db", "migrations", *driver)
	}

	absMigrations, err := filepath.Abs(*migrationsPath)
	if err != nil {
		log.Fatalf("Invalid migrations path: %v", err)
	}
	if _, err := os.Stat(absMigrations); os.IsNotExist(err) {
		log.Fatalf("Migrations directory does not exist: %s", absMigrations)
	}

	var dbURL string
	switch *driver {
	case config.DriverSQLite:
		absDB, err := filepath.Abs(*dbTarget)
		if err != nil {
			log.Fatalf("Invalid database path: %v", err)
		}
		if err := os.MkdirAll(filepath.Dir(absDB), 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
		dbURL = fmt.Sprintf("sqlite3://%s?_fk=1", absDB)
	case config.DriverPostgres:
		dbURL = *dbTarget
	default:
		log.Fatalf("Unsupported driver: %s", *driver)
	}

	// Initialize migrate
	m, err := migrate.New(fmt.Sprintf("file://%s", absMigrations), dbURL)
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	// Execute command
	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migrations applied")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("Get version failed: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
}
