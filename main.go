// Command twitchy is the main entrypoint for the live chat service.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to the channel's Twitch IRC chat and renders messages to
//     the terminal with emote annotations.
//   - Optionally archives messages to Postgres and auto-plays the live
//     stream in a local video player.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status,
//     /metrics, and the /chat history and live-tail endpoints.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/onnwee/twitchy/chat"
	"github.com/onnwee/twitchy/config"
	"github.com/onnwee/twitchy/emotes"
	"github.com/onnwee/twitchy/render"
	"github.com/onnwee/twitchy/server"
	"github.com/onnwee/twitchy/store"
	"github.com/onnwee/twitchy/stream"
	"github.com/onnwee/twitchy/telemetry"
	"github.com/onnwee/twitchy/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat credentials incomplete", slog.Any("err", err))
		os.Exit(1)
	}
	channel := twitchapi.CanonicalChannel(cfg.TwitchChannel)

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("twitchy", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Best-effort: fetch a Twitch app access token (client-credentials) if client id/secret provided.
	// This token is used for Helix live-status lookups. It is NOT used for IRC chat.
	var helix *twitchapi.HelixClient
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
		helix = &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID}
		ctx2, cancel := context.WithTimeout(context.Background(), 8*time.Second)
		if tok, err := ts.Get(ctx2); err != nil {
			slog.Warn("twitch app token fetch failed", slog.Any("err", err))
		} else if len(tok) > 6 {
			masked := "***" + tok[len(tok)-6:]
			slog.Info("twitch app token acquired", slog.String("tail", masked))
		}
		cancel()
	}

	// Optional Postgres archive
	var database *sql.DB
	if cfg.DBDsn != "" {
		database, err = store.Connect(cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open db", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		if err := store.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		slog.Info("DB_DSN not set, chat archiving disabled")
	}

	// Emote mapping (optional file; missing file just disables emotes)
	set, err := emotes.Load(cfg.EmotesFile)
	if err != nil {
		slog.Error("failed to load emote mapping", slog.Any("err", err))
		os.Exit(1)
	}

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// IRC chat client
	client := chat.NewClient(chat.Config{
		Nick:          cfg.TwitchNickname,
		Token:         cfg.TwitchOAuthToken,
		Channel:       channel,
		Addr:          cfg.TwitchIRCAddr,
		DialTimeout:   cfg.ChatDialTimeout,
		ReadTimeout:   cfg.ChatReadTimeout,
		ReconnectBase: cfg.ChatReconnectBase,
		ReconnectMax:  cfg.ChatReconnectMax,
		QueueCap:      cfg.ChatQueueCap,
	})
	if err := client.Start(); err != nil {
		slog.Error("chat client start failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("chat client started", slog.String("channel", channel), slog.String("nick", cfg.TwitchNickname))

	// Fan-out targets for rendered messages
	hub := server.NewHub()
	sinks := []render.Sink{hub.Publish}
	var archiver *store.Archiver
	if database != nil {
		archiver = store.NewArchiver(database)
		sinks = append(sinks, archiver.Record)
	}

	feed := &render.Feed{
		Client:   client,
		Emotes:   set,
		Channel:  channel,
		Interval: cfg.ChatPollInterval,
		Sinks:    sinks,
	}
	go feed.Run(ctx)

	// Auto-player: open the stream in a local player while the channel is live
	if cfg.PlayerEnabled {
		if helix == nil {
			slog.Warn("PLAYER_ENABLED=1 requires TWITCH_CLIENT_ID/TWITCH_CLIENT_SECRET for live detection, disabling")
		} else {
			go stream.StartAutoPlayer(ctx, helix, channel, &stream.YTDLP{}, &stream.ExecPlayer{Cmd: cfg.PlayerCmd})
		}
	}

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			// Use an http.Server with timeouts to satisfy G114 and avoid DoS risks
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	// HTTP server (health/status/metrics/chat)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	deps := server.Deps{
		DB:       database,
		Client:   client,
		Hub:      hub,
		Archiver: archiver,
		Emotes:   set,
		Channel:  channel,
	}
	if helix != nil {
		deps.Live = helix
	}
	go func() {
		if err := server.Start(ctx, deps, addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
	client.Stop()
	if archiver != nil {
		archiver.Close()
	}
}
