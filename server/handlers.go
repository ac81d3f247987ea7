package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/twitchy/chat"
	"github.com/onnwee/twitchy/emotes"
	"github.com/onnwee/twitchy/store"
	"github.com/onnwee/twitchy/twitchapi"
)

// LiveChecker looks up whether the channel is currently broadcasting.
// *twitchapi.HelixClient satisfies it.
type LiveChecker interface {
	GetStream(ctx context.Context, channel string) (*twitchapi.Stream, error)
}

// ChatStatus is the slice of the chat client the handlers report on.
// *chat.Client satisfies it.
type ChatStatus interface {
	State() chat.ConnState
	Pending() int
	Dropped() uint64
}

// Deps holds everything the HTTP handlers need. DB, Archiver and Live
// may be nil; the endpoints that need them degrade instead of failing
// at startup.
type Deps struct {
	DB       *sql.DB
	Client   ChatStatus
	Hub      *Hub
	Archiver *store.Archiver
	Live     LiveChecker
	Emotes   *emotes.Set
	Channel  string
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps      Deps
	ctx       context.Context
	startedAt time.Time
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(ctx context.Context, deps Deps) *Handlers {
	return &Handlers{
		deps:      deps,
		ctx:       ctx,
		startedAt: time.Now(),
	}
}

// HandleHealthz responds to liveness probe requests. The database is
// only checked when archiving is configured.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz responds to readiness probe requests with detailed system checks.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"chat", func() error {
			if st := h.deps.Client.State(); st != chat.StateJoined {
				return fmt.Errorf("chat not joined (state %s)", st)
			}
			return nil
		}},
		{"database", func() error {
			if h.deps.DB == nil {
				return nil
			}
			return h.deps.DB.PingContext(r.Context())
		}},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			// Set headers before writing status code
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"status":       "not_ready",
				"failed_check": check.name,
				"error":        err.Error(),
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// HandleStatus returns a lightweight status summary including connection
// state, queue depth, and live-stream info when available.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	resp := map[string]any{}

	resp["channel"] = h.deps.Channel
	resp["conn_state"] = h.deps.Client.State().String()
	resp["queue_depth"] = h.deps.Client.Pending()
	resp["queue_dropped"] = h.deps.Client.Dropped()
	resp["uptime"] = time.Since(h.startedAt).Round(time.Second).String()
	resp["emote_count"] = h.deps.Emotes.Len()
	resp["sse_clients"] = h.deps.Hub.Subscribers()

	resp["archive_enabled"] = h.deps.Archiver != nil
	if h.deps.Archiver != nil {
		resp["archive_dropped"] = h.deps.Archiver.Dropped()
	}

	if h.deps.Live != nil && h.deps.Channel != "" {
		st, err := h.deps.Live.GetStream(ctx, h.deps.Channel)
		if err != nil {
			slog.Debug("live status lookup failed", slog.Any("err", err))
		} else {
			resp["live"] = st != nil
			if st != nil {
				resp["title"] = st.Title
				resp["viewer_count"] = st.ViewerCount
				resp["stream_started_at"] = st.StartedAt
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleEmotes lists the usable emote names.
func (h *Handlers) HandleEmotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count": h.deps.Emotes.Len(),
		"names": h.deps.Emotes.Names(),
	})
}
