// internal/api/standings/handlers.go
package standings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguestandings/internal/api/apiutil"
	"github.com/codr1/leaguestandings/internal/leagues"
	standingssvc "github.com/codr1/leaguestandings/internal/standings"
)

const (
	requestTimeout  = 10 * time.Second
	leagueIDPathKey = "league_id"
	seasonIDPathKey = "season_id"
	sportPathKey    = "sport"
)

var (
	service *standingssvc.Service
	hub     *Hub
)

type rulesRequest struct {
	PointSystem leagues.PointSystemConfig `json:"pointSystem"`
	TieBreakers json.RawMessage           `json:"tieBreakers"`
}

type rulesResponse struct {
	leagues.RuleSet
	Migrated bool `json:"migrated,omitempty"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc *standingssvc.Service, h *Hub) {
	service = svc
	hub = h
}

// GET /api/v1/catalog/sports
func HandleListSports(w http.ResponseWriter, r *http.Request) {
	sports := leagues.Sports()
	out := make([]leagues.SportRules, 0, len(sports))
	for _, sport := range sports {
		rules, _ := leagues.LookupSport(sport)
		out = append(out, rules)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// GET /api/v1/catalog/sports/{sport}
func HandleGetSport(w http.ResponseWriter, r *http.Request) {
	sport, ok := leagues.ParseSport(r.PathValue(sportPathKey))
	if !ok {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusNotFound, Message: "Unknown sport"})
		return
	}
	rules, _ := leagues.LookupSport(sport)
	writeJSON(w, r, http.StatusOK, rules)
}

// GET /api/v1/leagues/{league_id}/rules
func HandleGetRules(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	leagueID, err := apiutil.PathID(r, leagueIDPathKey)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid league", Err: err})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rules, err := svc.Rules(ctx, leagueID)
	if err != nil {
		apiutil.WriteError(w, r, handlerError(err, "Failed to load rules"))
		return
	}
	writeJSON(w, r, http.StatusOK, rulesResponse{RuleSet: rules})
}

// PUT /api/v1/leagues/{league_id}/rules
func HandlePutRules(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	leagueID, err := apiutil.PathID(r, leagueIDPathKey)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid league", Err: err})
		return
	}

	var req rulesRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}
	tieBreakers := leagues.TieBreakerConfig{}
	migrated := false
	if len(req.TieBreakers) > 0 {
		tieBreakers, migrated, err = leagues.DecodeTieBreakers(req.TieBreakers)
		if err != nil {
			apiutil.WriteError(w, r, handlerError(err, "Invalid tiebreakers"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	rules, err := svc.UpdateRules(ctx, leagueID, req.PointSystem, tieBreakers)
	if err != nil {
		apiutil.WriteError(w, r, handlerError(err, "Failed to store rules"))
		return
	}
	if migrated {
		logger.Info().Str("league_id", leagueID).Msg("Migrated legacy tiebreaker configuration")
	}
	writeJSON(w, r, http.StatusOK, rulesResponse{RuleSet: rules, Migrated: migrated})
}

// GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings
func HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	leagueID, seasonID, ok := seasonFromPath(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snapshot, err := svc.GetStandings(ctx, leagueID, seasonID)
	if err != nil {
		apiutil.WriteError(w, r, handlerError(err, "Failed to compute standings"))
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot)
}

// POST /api/v1/leagues/{league_id}/seasons/{season_id}/results
func HandleRecordResult(w http.ResponseWriter, r *http.Request) {
	svc := loadService(w, r)
	if svc == nil {
		return
	}
	leagueID, seasonID, ok := seasonFromPath(w, r)
	if !ok {
		return
	}

	var result leagues.MatchResult
	if err := apiutil.DecodeJSON(r, &result); err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid request body", Err: err})
		return
	}
	if (result.LeagueID != "" && result.LeagueID != leagueID) || (result.SeasonID != "" && result.SeasonID != seasonID) {
		apiutil.WriteError(w, r, apiutil.HandlerError{
			Status:  http.StatusBadRequest,
			Message: "Result belongs to a different league or season",
			Err:     apiutil.FieldError{Field: "seasonId", Reason: "does not match the request path"},
		})
		return
	}
	result.LeagueID = leagueID
	result.SeasonID = seasonID

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	recorded, err := svc.RecordResult(ctx, result)
	if err != nil {
		apiutil.WriteError(w, r, handlerError(err, "Failed to record result"))
		return
	}
	writeJSON(w, r, http.StatusCreated, recorded)
}

func seasonFromPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	leagueID, err := apiutil.PathID(r, leagueIDPathKey)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid league", Err: err})
		return "", "", false
	}
	seasonID, err := apiutil.PathID(r, seasonIDPathKey)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Invalid season", Err: err})
		return "", "", false
	}
	return leagueID, seasonID, true
}

// handlerError maps service and engine failures onto HTTP statuses.
func handlerError(err error, fallback string) apiutil.HandlerError {
	switch {
	case errors.Is(err, standingssvc.ErrNotFound):
		return apiutil.HandlerError{Status: http.StatusNotFound, Message: "League or season not found", Err: err}
	case errors.Is(err, leagues.ErrConfiguration):
		herr := apiutil.HandlerError{Status: http.StatusUnprocessableEntity, Message: err.Error(), Err: err}
		if field, ok := configField(err); ok {
			herr.Err = errors.Join(field, err)
		}
		return herr
	case errors.Is(err, standingssvc.ErrInvalidResult):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, standingssvc.ErrConflict):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	case errors.Is(err, standingssvc.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return apiutil.HandlerError{Status: http.StatusGatewayTimeout, Message: "Standings computation timed out", Err: err}
	default:
		return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: fallback, Err: err}
	}
}

// configField names the rule setting a configuration fault points at.
func configField(err error) (apiutil.FieldError, bool) {
	var cfgErr *leagues.ConfigurationError
	if errors.As(err, &cfgErr) && cfgErr.Field != "" {
		return apiutil.FieldError{Field: cfgErr.Field, Reason: cfgErr.Reason}, true
	}
	var missing *leagues.MissingPointRuleError
	if errors.As(err, &missing) {
		return apiutil.FieldError{Field: "pointSystem.rules", Reason: "no rule for outcome " + string(missing.Outcome)}, true
	}
	return apiutil.FieldError{}, false
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if err := apiutil.WriteJSON(w, status, payload); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write response")
	}
}

func loadService(w http.ResponseWriter, r *http.Request) *standingssvc.Service {
	if service == nil {
		log.Ctx(r.Context()).Error().Msg("Standings service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil
	}
	return service
}
