// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/leaguestandings/internal/api/standings"
	"github.com/codr1/leaguestandings/internal/config"
	"github.com/codr1/leaguestandings/internal/db"
	"github.com/codr1/leaguestandings/internal/ingest"
	"github.com/codr1/leaguestandings/internal/ratelimit"
	"github.com/codr1/leaguestandings/internal/scheduler"
	standingssvc "github.com/codr1/leaguestandings/internal/standings"
)

const shutdownTimeout = 30 * time.Second

func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config/app.yaml"), "Path to the YAML configuration file")
	flag.Parse()
	return config.Load(*configPath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Features.EnableDebug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.With().Str("app", cfg.App.Name).Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer database.Close()

	store, err := standingssvc.NewDBStore(database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create standings store")
	}
	var snapshots standingssvc.SnapshotStore
	if cfg.Standings.PersistSnapshots {
		snapshots = store
	}
	svc, err := standingssvc.NewService(store, snapshots, standingssvc.OptionsFromConfig(cfg.Standings))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create standings service")
	}

	var hub *standings.Hub
	if cfg.Features.EnablePush {
		hub = standings.NewHub(cfg.App.AllowedOrigins)
		svc.Subscribe(hub.Publish)
	}
	standings.InitHandlers(svc, hub)

	var consumer *ingest.ResultsConsumer
	if cfg.Events.Enabled {
		consumer, err = ingest.NewResultsConsumer(cfg.Events, svc)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create results consumer")
		}
	}

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if cfg.Standings.RefreshSchedule != "" {
		if err := scheduler.RegisterStandingsRefreshJob(svc, cfg.Standings.RefreshSchedule, 0); err != nil {
			log.Fatal().Err(err).Msg("Failed to register standings refresh job")
		}
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(&ratelimit.Config{
			Window:       cfg.RateLimit.Window,
			MaxPerClient: cfg.RateLimit.MaxPerClient,
			MaxPerLeague: cfg.RateLimit.MaxPerLeague,
		})
		defer limiter.Close()
	}

	// Create server instance
	server := newServer(cfg, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("driver", database.Driver).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if hub != nil {
		g.Go(func() error {
			hub.Run(ctx)
			return nil
		})
	}

	if consumer != nil {
		g.Go(func() error {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("results consumer: %w", err)
			}
			return nil
		})
	}

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if err := consumer.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close results consumer")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		svc.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
