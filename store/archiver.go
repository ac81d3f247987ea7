package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const archiveBuffer = 256

// Archiver writes chat messages to Postgres from a background
// goroutine so the render loop never blocks on the database.
type Archiver struct {
	db      *sql.DB
	ch      chan Message
	done    chan struct{}
	dropped atomic.Uint64
	once    sync.Once
}

// NewArchiver starts the background writer.
func NewArchiver(db *sql.DB) *Archiver {
	a := &Archiver{
		db:   db,
		ch:   make(chan Message, archiveBuffer),
		done: make(chan struct{}),
	}
	go a.run()
	return a
}

// Record queues a message for archiving. It never blocks; when the
// buffer is full the message is dropped and counted.
func (a *Archiver) Record(m Message) {
	select {
	case a.ch <- m:
	default:
		if a.dropped.Add(1) == 1 {
			slog.Warn("chat archive buffer full, dropping messages")
		}
	}
}

// Dropped reports how many messages were discarded because the buffer
// was full.
func (a *Archiver) Dropped() uint64 {
	return a.dropped.Load()
}

// Close flushes buffered messages and stops the writer. Safe to call
// more than once.
func (a *Archiver) Close() {
	a.once.Do(func() { close(a.ch) })
	<-a.done
}

func (a *Archiver) run() {
	defer close(a.done)
	for m := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := InsertMessage(ctx, a.db, m); err != nil {
			slog.Warn("failed to archive chat message", "channel", m.Channel, "error", err)
		}
		cancel()
	}
}
