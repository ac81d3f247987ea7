package store_test

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/onnwee/twitchy/store"
	"github.com/onnwee/twitchy/testutil"
)

func clearChannel(t *testing.T, db *sql.DB, channel string) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(),
		`DELETE FROM chat_messages WHERE channel = $1`, channel); err != nil {
		t.Fatalf("clear channel: %v", err)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	// SetupTestDB already migrated once; a second run must be a no-op.
	if err := store.Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables WHERE table_name = 'chat_messages'
	)`).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check chat_messages table: %v", err)
	}
	if !exists {
		t.Error("chat_messages table does not exist after migration")
	}
}

func TestInsertAndRecentMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	channel := "store_test_roundtrip"
	clearChannel(t, db, channel)

	base := time.Now().UTC().Truncate(time.Microsecond)
	msgs := []store.Message{
		{Channel: channel, Username: "alice", Message: "first", ReceivedAt: base},
		{Channel: channel, Username: "bob", Message: "Kappa hi Kappa", Emotes: []string{"Kappa", "Kappa"}, ReceivedAt: base.Add(time.Second)},
		{Channel: channel, Username: "carol", Message: "", ReceivedAt: base.Add(2 * time.Second)},
	}
	for _, m := range msgs {
		if err := store.InsertMessage(ctx, db, m); err != nil {
			t.Fatalf("InsertMessage(%s) error = %v", m.Username, err)
		}
	}

	got, err := store.RecentMessages(ctx, db, channel, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentMessages() returned %d rows, want 3", len(got))
	}

	// Newest first.
	wantUsers := []string{"carol", "bob", "alice"}
	for i, u := range wantUsers {
		if got[i].Username != u {
			t.Errorf("row %d username = %q, want %q", i, got[i].Username, u)
		}
	}
	if !got[1].ReceivedAt.Equal(base.Add(time.Second)) {
		t.Errorf("row 1 received_at = %v, want %v", got[1].ReceivedAt, base.Add(time.Second))
	}
	if !reflect.DeepEqual(got[1].Emotes, []string{"Kappa", "Kappa"}) {
		t.Errorf("row 1 emotes = %v, want [Kappa Kappa]", got[1].Emotes)
	}
	if got[0].Emotes != nil {
		t.Errorf("row 0 emotes = %v, want nil", got[0].Emotes)
	}
	if got[0].ID == 0 {
		t.Error("row 0 has zero id")
	}
}

func TestRecentMessagesLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	channel := "store_test_limit"
	clearChannel(t, db, channel)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		m := store.Message{Channel: channel, Username: "u", Message: "m", ReceivedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.InsertMessage(ctx, db, m); err != nil {
			t.Fatalf("InsertMessage() error = %v", err)
		}
	}

	got, err := store.RecentMessages(ctx, db, channel, 2)
	if err != nil {
		t.Fatalf("RecentMessages(limit=2) error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limit 2 returned %d rows", len(got))
	}

	// Out-of-range limits fall back to the default.
	got, err = store.RecentMessages(ctx, db, channel, 0)
	if err != nil {
		t.Fatalf("RecentMessages(limit=0) error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("limit 0 returned %d rows, want all 5", len(got))
	}
}

func TestConnectEmptyDSN(t *testing.T) {
	if _, err := store.Connect(""); err == nil {
		t.Fatal("Connect(\"\") should fail")
	}
}
