package standings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codr1/leaguestandings/internal/api/apiutil"
	"github.com/codr1/leaguestandings/internal/leagues"
	standingssvc "github.com/codr1/leaguestandings/internal/standings"
	"github.com/codr1/leaguestandings/internal/testutil"
)

func newTestMux(t *testing.T, opts standingssvc.Options) (*http.ServeMux, *standingssvc.Service) {
	t.Helper()

	database := testutil.NewTestDB(t)
	testutil.SeedLeague(t, database, "L1", "soccer")
	testutil.SeedSeason(t, database, "L1", "S1", "T1", "T2", "T3")
	testutil.SeedLeague(t, database, "L2", "volleyball")
	testutil.SeedSeason(t, database, "L2", "S9", "V1", "V2")

	store, err := standingssvc.NewDBStore(database)
	if err != nil {
		t.Fatalf("NewDBStore() error = %v", err)
	}
	svc, err := standingssvc.NewService(store, store, opts)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	t.Cleanup(svc.Wait)

	points, _ := leagues.DefaultPointSystem(leagues.SportSoccer)
	tieBreakers := leagues.TieBreakerConfig{
		{Order: 1, Rule: leagues.MetricGoalDifference, Sort: leagues.SortDesc},
		{Order: 2, Rule: leagues.MetricGoalsScored, Sort: leagues.SortDesc},
	}
	if _, err := svc.UpdateRules(context.Background(), "L1", points, tieBreakers); err != nil {
		t.Fatalf("UpdateRules() error = %v", err)
	}

	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	svc.Subscribe(h.Publish)

	InitHandlers(svc, h)
	t.Cleanup(func() { InitHandlers(nil, nil) })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/catalog/sports", HandleListSports)
	mux.HandleFunc("GET /api/v1/catalog/sports/{sport}", HandleGetSport)
	mux.HandleFunc("GET /api/v1/leagues/{league_id}/rules", HandleGetRules)
	mux.HandleFunc("PUT /api/v1/leagues/{league_id}/rules", HandlePutRules)
	mux.HandleFunc("GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings", HandleGetStandings)
	mux.HandleFunc("GET /api/v1/leagues/{league_id}/seasons/{season_id}/standings/ws", HandleStandingsSocket)
	mux.HandleFunc("POST /api/v1/leagues/{league_id}/seasons/{season_id}/results", HandleRecordResult)
	return mux, svc
}

func do(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleCatalog(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})

	rec := do(t, mux, http.MethodGet, "/api/v1/catalog/sports", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list sports status = %d, want %d", rec.Code, http.StatusOK)
	}
	sports := decode[[]leagues.SportRules](t, rec)
	if len(sports) != len(leagues.Sports()) {
		t.Fatalf("list sports returned %d entries, want %d", len(sports), len(leagues.Sports()))
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/catalog/sports/Hockey", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get sport status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := decode[leagues.SportRules](t, rec); got.Sport != leagues.SportHockey {
		t.Fatalf("get sport = %s, want hockey", got.Sport)
	}

	rec = do(t, mux, http.MethodGet, "/api/v1/catalog/sports/curling", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown sport status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleRecordResultAndStandings(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})

	results := []string{
		`{"matchId":"m1","homeTeamId":"T1","awayTeamId":"T2","homeScore":3,"awayScore":1,"status":"COMPLETED"}`,
		`{"matchId":"m2","homeTeamId":"T2","awayTeamId":"T3","homeScore":1,"awayScore":1,"status":"completed"}`,
		`{"matchId":"m3","leagueId":"L1","seasonId":"S1","homeTeamId":"T3","awayTeamId":"T1","homeScore":2,"awayScore":0,"status":"COMPLETED"}`,
	}
	for _, body := range results {
		rec := do(t, mux, http.MethodPost, "/api/v1/leagues/L1/seasons/S1/results", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("record status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	}

	rec := do(t, mux, http.MethodGet, "/api/v1/leagues/L1/seasons/S1/standings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("standings status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	snapshot := decode[standingssvc.Snapshot](t, rec)
	var order []string
	for _, row := range snapshot.Table.Rows {
		order = append(order, row.TeamID)
	}
	if strings.Join(order, ",") != "T3,T1,T2" {
		t.Fatalf("standings order = %v, want [T3 T1 T2]", order)
	}
	if snapshot.Stamp.MatchCount != 3 {
		t.Fatalf("standings match count = %d, want 3", snapshot.Stamp.MatchCount)
	}
}

func TestHandleRecordResultErrors(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})
	if rec := do(t, mux, http.MethodPost, "/api/v1/leagues/L1/seasons/S1/results",
		`{"matchId":"m1","homeTeamId":"T1","awayTeamId":"T2","homeScore":1,"awayScore":0,"status":"COMPLETED"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed result status = %d", rec.Code)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{
			name:   "path mismatch",
			path:   "/api/v1/leagues/L1/seasons/S1/results",
			body:   `{"matchId":"m2","leagueId":"L2","homeTeamId":"T1","awayTeamId":"T2","status":"COMPLETED"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown field",
			path:   "/api/v1/leagues/L1/seasons/S1/results",
			body:   `{"matchId":"m2","homeTeamId":"T1","awayTeamId":"T2","status":"COMPLETED","venue":"x"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown status",
			path:   "/api/v1/leagues/L1/seasons/S1/results",
			body:   `{"matchId":"m2","homeTeamId":"T1","awayTeamId":"T2","status":"FINAL"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown season",
			path:   "/api/v1/leagues/L1/seasons/S404/results",
			body:   `{"matchId":"m2","homeTeamId":"T1","awayTeamId":"T2","status":"COMPLETED"}`,
			status: http.StatusNotFound,
		},
		{
			name:   "match recorded elsewhere",
			path:   "/api/v1/leagues/L2/seasons/S9/results",
			body:   `{"matchId":"m1","homeTeamId":"V1","awayTeamId":"V2","homeScore":3,"awayScore":0,"status":"COMPLETED"}`,
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			body := decode[apiutil.ErrorResponse](t, rec)
			if body.Error == "" {
				t.Fatalf("error response has no message")
			}
		})
	}
}

func TestHandleStandingsErrors(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown league", "/api/v1/leagues/L404/seasons/S1/standings", http.StatusNotFound},
		{"season of another league", "/api/v1/leagues/L1/seasons/S9/standings", http.StatusNotFound},
		{"league without rules", "/api/v1/leagues/L2/seasons/S9/standings", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, mux, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestHandleRules(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})

	rec := do(t, mux, http.MethodGet, "/api/v1/leagues/L1/rules", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get rules status = %d: %s", rec.Code, rec.Body.String())
	}
	current := decode[rulesResponse](t, rec)
	if current.Version != 1 || len(current.TieBreakers) != 2 {
		t.Fatalf("get rules = %+v", current)
	}

	points, _ := json.Marshal(current.PointSystem)
	legacy := `{"pointSystem":` + string(points) + `,"tieBreakers":[{"metric":"GD","priority":1,"direction":"DESC"},{"metric":"GF","priority":2}]}`
	rec = do(t, mux, http.MethodPut, "/api/v1/leagues/L1/rules", legacy)
	if rec.Code != http.StatusOK {
		t.Fatalf("put legacy rules status = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decode[rulesResponse](t, rec)
	if !updated.Migrated || updated.Version != 2 {
		t.Fatalf("put legacy rules = %+v, want migrated version 2", updated)
	}
	if updated.TieBreakers[0].Rule != leagues.MetricGoalDifference || updated.TieBreakers[1].Rule != leagues.MetricGoalsScored {
		t.Fatalf("put legacy rules tiebreakers = %+v", updated.TieBreakers)
	}

	invalid := `{"pointSystem":` + string(points) + `,"tieBreakers":[{"order":1,"rule":"GOAL_DIFFERENCE","sort":"sideways"}]}`
	rec = do(t, mux, http.MethodPut, "/api/v1/leagues/L1/rules", invalid)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("put invalid rules status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	errBody := decode[apiutil.ErrorResponse](t, rec)
	if len(errBody.Fields) != 1 || errBody.Fields[0].Field != "tieBreakers[0]" || !strings.Contains(errBody.Fields[0].Reason, "sideways") {
		t.Fatalf("put invalid rules fields = %+v, want tieBreakers[0] sort reason", errBody.Fields)
	}

	rec = do(t, mux, http.MethodPut, "/api/v1/leagues/L404/rules", `{"pointSystem":`+string(points)+`}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("put rules for unknown league status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleStandingsSocket(t *testing.T) {
	mux, svc := newTestMux(t, standingssvc.Options{EagerRecompute: true})
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/leagues/L1/seasons/S1/standings/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	var initial pushMessage
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial push: %v", err)
	}
	if initial.Type != "standings" || initial.Snapshot.Stamp.MatchCount != 0 {
		t.Fatalf("initial push = %+v", initial)
	}

	if _, err := svc.RecordResult(context.Background(), leagues.MatchResult{
		MatchID:    "m1",
		LeagueID:   "L1",
		SeasonID:   "S1",
		HomeTeamID: "T2",
		AwayTeamID: "T1",
		HomeScore:  2,
		AwayScore:  0,
		Status:     leagues.StatusCompleted,
	}); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}

	// Skip frames until the recorded result shows up.
	for {
		var msg pushMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read update push: %v", err)
		}
		if msg.Snapshot.Stamp.MatchCount == 0 {
			continue
		}
		if msg.Snapshot.Table.Rows[0].TeamID != "T2" {
			t.Fatalf("update push leader = %s, want T2", msg.Snapshot.Table.Rows[0].TeamID)
		}
		break
	}
}

func TestHandleStandingsSocketRefusesUnknownSeason(t *testing.T) {
	mux, _ := newTestMux(t, standingssvc.Options{})
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/leagues/L1/seasons/S404/standings/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("Dial() error = nil, want handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Dial() response = %v, want 404", resp)
	}
}

func TestHandlerErrorConfigurationFields(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantField string
	}{
		{"field fault", &leagues.ConfigurationError{Field: "pointSystem.bonusPoints[0]", Reason: "condition is required"}, "pointSystem.bonusPoints[0]"},
		{"missing point rule", &standingssvc.ComputationError{LeagueID: "L1", SeasonID: "S1", Err: &leagues.MissingPointRuleError{Outcome: leagues.OutcomeDraw}}, "pointSystem.rules"},
		{"no configuration", &leagues.ConfigurationError{Reason: "league L2 has no rule configuration"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			apiutil.WriteError(rec, req, handlerError(tt.err, "fallback"))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			body := decode[apiutil.ErrorResponse](t, rec)
			if tt.wantField == "" {
				if len(body.Fields) != 0 {
					t.Fatalf("fields = %+v, want none", body.Fields)
				}
				return
			}
			if len(body.Fields) != 1 || body.Fields[0].Field != tt.wantField || body.Fields[0].Reason == "" {
				t.Fatalf("fields = %+v, want %s", body.Fields, tt.wantField)
			}
		})
	}
}
