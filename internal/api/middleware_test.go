package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codr1/leaguestandings/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("standings ", 200)))
	})
}

func TestWithRequestID(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != incoming || rec.Header().Get("X-Request-ID") != incoming {
		t.Fatalf("request ID = %q, want reused %q", seen, incoming)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid\nInjected: yes")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request ID = %q, want generated UUID", seen)
	}
}

func TestWithAdminToken(t *testing.T) {
	handler := WithAdminToken("s3cret")(okHandler())

	tests := []struct {
		name   string
		method string
		auth   string
		status int
	}{
		{"read without token", http.MethodGet, "", http.StatusOK},
		{"write without token", http.MethodPost, "", http.StatusUnauthorized},
		{"write with wrong token", http.MethodPut, "Bearer nope", http.StatusUnauthorized},
		{"write with bare token", http.MethodPost, "s3cret", http.StatusUnauthorized},
		{"write with other scheme", http.MethodPost, "Basic s3cret", http.StatusUnauthorized},
		{"write with token", http.MethodPost, "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/leagues/L1/rules", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	open := WithAdminToken("")(okHandler())
	rec := httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/leagues/L1/rules", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("empty token status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestWithWriteRateLimit(t *testing.T) {
	limiter := ratelimit.New(&ratelimit.Config{Window: time.Minute, MaxPerClient: 1, MaxPerLeague: 10})
	defer limiter.Close()
	handler := WithWriteRateLimit(limiter, false)(okHandler())

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/leagues/L1/seasons/S1/results", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post(); rec.Code != http.StatusOK {
		t.Fatalf("first write status = %d, want %d", rec.Code, http.StatusOK)
	}
	rec := post()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("throttled response has no Retry-After")
	}

	read := httptest.NewRequest(http.MethodGet, "/api/v1/leagues/L1/seasons/S1/standings", nil)
	read.RemoteAddr = "203.0.113.7:5000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, read)
	if rec.Code != http.StatusOK {
		t.Fatalf("read status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLeagueFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/leagues/L1/seasons/S1/results", "L1"},
		{"/api/v1/leagues/L2/rules", "L2"},
		{"/api/v1/leagues/L3", "L3"},
		{"/api/v1/catalog/sports", ""},
	}
	for _, tt := range tests {
		if got := leagueFromPath(tt.path); got != tt.want {
			t.Errorf("leagueFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWithCORS(t *testing.T) {
	handler := WithCORS([]string{"https://scores.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leagues/L1/rules", nil)
	req.Header.Set("Origin", "https://scores.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://scores.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want the allowed origin", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/catalog/sports", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Access-Control-Allow-Origin = %q for a foreign origin", got)
	}
}

func TestWithCompression(t *testing.T) {
	handler := WithCompression(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/sports", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/leagues/L1/seasons/S1/standings/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Fatalf("upgrade request was compressed: Content-Encoding = %q", got)
	}
}

func TestWithRecovery(t *testing.T) {
	handler := WithRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
