package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/twitchy/chat"
	"github.com/onnwee/twitchy/emotes"
	"github.com/onnwee/twitchy/twitchapi"
)

type fakeChat struct {
	st      chat.ConnState
	pending int
	dropped uint64
}

func (f fakeChat) State() chat.ConnState { return f.st }
func (f fakeChat) Pending() int          { return f.pending }
func (f fakeChat) Dropped() uint64       { return f.dropped }

type fakeLiveChecker struct {
	st  *twitchapi.Stream
	err error
}

func (f fakeLiveChecker) GetStream(ctx context.Context, channel string) (*twitchapi.Stream, error) {
	return f.st, f.err
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	t.Setenv("CORS_PERMISSIVE", "1")
	return Deps{
		Client:  fakeChat{st: chat.StateDisconnected},
		Hub:     NewHub(),
		Emotes:  &emotes.Set{},
		Channel: "somechannel",
	}
}

func TestHealthzOK(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	h := NewMux(context.Background(), deps)
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Body.String(); got != "ok" {
		t.Fatalf("expected ok body, got %q", got)
	}
}

func TestStatusEndpoint(t *testing.T) {
	deps := newTestDeps(t)
	deps.Client = fakeChat{st: chat.StateJoined, pending: 3, dropped: 7}
	deps.Live = fakeLiveChecker{st: &twitchapi.Stream{
		UserLogin:   "somechannel",
		Title:       "speedrun",
		ViewerCount: 42,
		StartedAt:   time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()

	NewMux(context.Background(), deps).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["conn_state"] != "joined" {
		t.Errorf("conn_state = %v, want joined", resp["conn_state"])
	}
	if resp["channel"] != "somechannel" {
		t.Errorf("channel = %v, want somechannel", resp["channel"])
	}
	if resp["queue_depth"] != float64(3) {
		t.Errorf("queue_depth = %v, want 3", resp["queue_depth"])
	}
	if resp["queue_dropped"] != float64(7) {
		t.Errorf("queue_dropped = %v, want 7", resp["queue_dropped"])
	}
	if resp["live"] != true {
		t.Errorf("live = %v, want true", resp["live"])
	}
	if resp["title"] != "speedrun" {
		t.Errorf("title = %v, want speedrun", resp["title"])
	}
	if resp["archive_enabled"] != false {
		t.Errorf("archive_enabled = %v, want false", resp["archive_enabled"])
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rr := httptest.NewRecorder()

	NewMux(context.Background(), deps).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCorrelationAndCORSHeaders(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	NewMux(context.Background(), deps).ServeHTTP(rr, req)

	if rr.Header().Get("X-Correlation-ID") == "" {
		t.Error("missing X-Correlation-ID header")
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}

	// A supplied correlation ID is echoed back.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rr = httptest.NewRecorder()
	NewMux(context.Background(), deps).ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("X-Correlation-ID = %q, want corr-123", got)
	}
}

func TestEmotesEndpoint(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/emotes", nil)
	rr := httptest.NewRecorder()

	NewMux(context.Background(), deps).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Count int      `json:"count"`
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 0 || len(resp.Names) != 0 {
		t.Errorf("empty set reported count=%d names=%v", resp.Count, resp.Names)
	}
}

func TestStartAndShutdown(t *testing.T) {
	deps := newTestDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run server in background on random port by using :0
	done := make(chan error, 1)
	go func() { done <- Start(ctx, deps, ":0") }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
