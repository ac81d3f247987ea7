// Package render drains chat events on a fixed cadence, prints them as
// timestamped lines, and fans user messages out to the archive and SSE
// subscribers.
package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/onnwee/twitchy/chat"
	"github.com/onnwee/twitchy/emotes"
	"github.com/onnwee/twitchy/store"
	"github.com/onnwee/twitchy/telemetry"
)

const defaultInterval = 100 * time.Millisecond

// EventSource is the slice of the chat client the feed consumes.
// *chat.Client satisfies it.
type EventSource interface {
	Drain() []chat.Event
	Pending() int
}

// Sink receives every rendered user message.
type Sink func(store.Message)

// Feed couples an event source to the terminal and any number of sinks.
type Feed struct {
	Client   EventSource
	Emotes   *emotes.Set
	Channel  string
	Interval time.Duration
	Out      io.Writer
	Sinks    []Sink
}

// Run polls the client until the context is canceled. Notices and
// connection errors are printed only; user messages also go to the
// sinks with their emote names attached.
func (f *Feed) Run(ctx context.Context) {
	interval := f.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	out := f.Out
	if out == nil {
		out = os.Stdout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			f.flush(out)
			return
		case <-ticker.C:
			telemetry.SetQueueDepth(f.Client.Pending())
			f.flush(out)
		}
	}
}

func (f *Feed) flush(out io.Writer) {
	for _, ev := range f.Client.Drain() {
		ts := ev.ReceivedAt.Format("15:04:05")
		switch ev.Kind {
		case chat.EventMessage:
			fmt.Fprintf(out, "[%s] %s: %s\n", ts, ev.Sender, ev.Text)
			m := store.Message{
				Channel:    f.Channel,
				Username:   ev.Sender,
				Message:    ev.Text,
				Emotes:     f.Emotes.FindAll(ev.Text),
				ReceivedAt: ev.ReceivedAt,
			}
			for _, sink := range f.Sinks {
				sink(m)
			}
		case chat.EventNotice:
			fmt.Fprintf(out, "[%s] * %s\n", ts, ev.Text)
		case chat.EventError:
			fmt.Fprintf(out, "[%s] ! %s\n", ts, ev.Text)
		}
	}
}
