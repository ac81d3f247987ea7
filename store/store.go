// Package store persists chat messages to Postgres and serves recent
// history back to the HTTP API. Archiving is optional; the service runs
// without a database when no DSN is configured.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Message is one archived chat line.
type Message struct {
	ID         int64     `json:"id"`
	Channel    string    `json:"channel"`
	Username   string    `json:"username"`
	Message    string    `json:"message"`
	Emotes     []string  `json:"emotes,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Connect opens a Postgres pool for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			channel TEXT NOT NULL,
			username TEXT,
			message TEXT,
			emotes TEXT,
			received_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_channel_received ON chat_messages(channel, received_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// InsertMessage stores one chat line. Emotes are serialized as a
// comma-separated list; emote names cannot contain commas.
func InsertMessage(ctx context.Context, db *sql.DB, m Message) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO chat_messages (channel, username, message, emotes, received_at) VALUES ($1,$2,$3,$4,$5)`,
		m.Channel, m.Username, m.Message, strings.Join(m.Emotes, ","), m.ReceivedAt.UTC())
	return err
}

// RecentMessages returns up to limit messages for a channel, newest
// first.
func RecentMessages(ctx context.Context, db *sql.DB, channel string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, channel, username, message, emotes, received_at FROM chat_messages
		 WHERE channel = $1 ORDER BY received_at DESC, id DESC LIMIT $2`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Message
	for rows.Next() {
		var m Message
		var emotes string
		if err := rows.Scan(&m.ID, &m.Channel, &m.Username, &m.Message, &emotes, &m.ReceivedAt); err != nil {
			return nil, err
		}
		if emotes != "" {
			m.Emotes = strings.Split(emotes, ",")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
