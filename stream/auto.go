package stream

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/twitchy/twitchapi"
)

// LiveChecker reports a channel's live broadcast, nil when offline.
// *twitchapi.HelixClient implements it.
type LiveChecker interface {
	GetStream(ctx context.Context, channel string) (*twitchapi.Stream, error)
}

// StartAutoPlayer polls the channel's live status and keeps the player
// running while the stream is up: started when the channel goes live,
// stopped when it goes offline, restarted on the next poll if the
// player dies mid-show. It blocks until ctx is done.
//
// Env knobs:
//
//	STREAM_POLL_INTERVAL (default 30s)
func StartAutoPlayer(ctx context.Context, live LiveChecker, channel string, r Resolver, p Player) {
	if channel == "" {
		slog.Info("auto player: channel empty; abort")
		return
	}
	pollEvery := 30 * time.Second
	if v := os.Getenv("STREAM_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			pollEvery = d
		}
	}

	var playing bool
	var playCancel context.CancelFunc
	var playerDone chan struct{}

	stopPlayer := func() {
		playCancel()
		<-playerDone
		playing = false
	}

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	slog.Info("auto player: started poller", slog.Duration("interval", pollEvery), slog.String("channel", channel))
	for {
		// Reap a player that exited on its own so a mid-show crash gets
		// a restart on the next live poll.
		if playing {
			select {
			case <-playerDone:
				playCancel()
				playing = false
			default:
			}
		}

		st, err := live.GetStream(ctx, channel)
		switch {
		case err != nil:
			slog.Debug("auto player: live lookup failed", slog.Any("err", err))
		case st == nil:
			if playing {
				slog.Info("auto player: stream ended, stopping player")
				stopPlayer()
			}
		case !playing:
			url, rerr := r.Resolve(ctx, channel)
			if rerr != nil {
				slog.Warn("auto player: resolve failed", slog.Any("err", rerr))
				break
			}
			playCtx, cancel := context.WithCancel(ctx)
			playCancel = cancel
			done := make(chan struct{})
			playerDone = done
			playing = true
			slog.Info("auto player: stream live, starting playback",
				slog.String("channel", channel), slog.String("title", st.Title))
			go func() {
				defer close(done)
				if perr := p.Play(playCtx, url); perr != nil && playCtx.Err() == nil {
					slog.Warn("auto player: player exited", slog.Any("err", perr))
				}
			}()
		}

		select {
		case <-ctx.Done():
			if playing {
				stopPlayer()
			}
			return
		case <-ticker.C:
		}
	}
}
