// cmd/server/server.go
package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/codr1/leaguestandings/internal/api"
	"github.com/codr1/leaguestandings/internal/api/standings"
	"github.com/codr1/leaguestandings/internal/config"
	"github.com/codr1/leaguestandings/internal/ratelimit"
)

func newServer(cfg *config.Config, limiter *ratelimit.Limiter) *http.Server {
	router := http.NewServeMux()

	// Innermost first: the admin check runs last, after the request ID and
	// logger are in place.
	middleware := []api.Middleware{api.WithAdminToken(cfg.App.AdminToken)}
	if limiter != nil {
		middleware = append(middleware, api.WithWriteRateLimit(limiter, cfg.RateLimit.TrustProxy))
	}
	if cfg.Features.EnableCompress {
		middleware = append(middleware, api.WithCompression)
	}
	middleware = append(middleware,
		api.WithCORS(cfg.App.AllowedOrigins),
		api.WithContentType,
		api.WithRecovery,
		api.WithLogging,
		api.WithRequestID,
	)
	handler := api.ChainMiddleware(router, middleware...)

	// Register routes
	registerRoutes(router, cfg)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.App.Port),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// Websocket subscribers hold their connection open; handlers bound
		// their own work with request timeouts.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, cfg *config.Config) {
	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Sport catalog
	mux.HandleFunc("GET /api/v1/catalog/sports", standings.HandleListSports)
	mux.HandleFunc("GET /api/v1/catalog/sports/{sport}", standings.HandleGetSport)

	// League rule configuration
	mux.HandleFunc("GET /api/v1/leagues/{league_id}/rules", standings.HandleGetRules)
	mux.HandleFunc("PUT /api/v1/leagues/{league_id}/rules", standings.HandlePutRules)

	// Season results and standings
	mux.HandleFunc("POST /api/v1/leagues/{league_id}/seasons/{season_id}/results", standings.HandleRecordResult)
	mux.HandleFunc("GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings", standings.HandleGetStandings)
	if cfg.Features.EnablePush {
		mux.HandleFunc("GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings/ws", standings.HandleStandingsSocket)
	}
}
