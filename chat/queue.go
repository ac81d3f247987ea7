package chat

import (
	"log/slog"
	"sync"

	"github.com/onnwee/twitchy/telemetry"
)

// eventQueue hands events from the connection worker to the rendering
// layer. push never blocks: past cap the oldest event is discarded, so a
// stalled consumer costs bounded memory rather than a wedged reader.
type eventQueue struct {
	mu      sync.Mutex
	events  []Event
	cap     int
	dropped uint64
	warned  bool
}

func newEventQueue(capacity int) *eventQueue {
	return &eventQueue{cap: capacity}
}

func (q *eventQueue) push(ev Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	var dropNow, warnNow bool
	if len(q.events) > q.cap {
		q.events = q.events[1:]
		q.dropped++
		dropNow = true
		warnNow = !q.warned
		q.warned = true
	}
	depth := len(q.events)
	q.mu.Unlock()

	telemetry.SetQueueDepth(depth)
	if dropNow {
		telemetry.IncQueueDropped()
		if warnNow {
			slog.Warn("chat event queue full, dropping oldest events", slog.Int("cap", q.cap))
		}
	}
}

// drain removes and returns everything in arrival order. An empty queue
// yields an empty result immediately.
func (q *eventQueue) drain() []Event {
	q.mu.Lock()
	out := q.events
	q.events = nil
	q.mu.Unlock()
	if len(out) > 0 {
		telemetry.SetQueueDepth(0)
	}
	return out
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *eventQueue) droppedCount() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
