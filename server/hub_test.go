package server

import (
	"testing"

	"github.com/onnwee/twitchy/store"
)

func TestHubPublishSubscribe(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	if h.Subscribers() != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers())
	}

	h.Publish(store.Message{Username: "alice", Message: "hi"})
	select {
	case m := <-ch:
		if m.Username != "alice" {
			t.Errorf("username = %q, want alice", m.Username)
		}
	default:
		t.Fatal("message not delivered")
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()
	cancel()
	if h.Subscribers() != 0 {
		t.Fatalf("Subscribers() = %d after cancel, want 0", h.Subscribers())
	}
	// Publishing with no subscribers is a no-op.
	h.Publish(store.Message{Username: "alice"})
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	// Overfill the subscriber buffer; Publish must not block.
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish(store.Message{Message: "m"})
	}
	if got := len(ch); got != subscriberBuffer {
		t.Errorf("buffered %d messages, want %d", got, subscriberBuffer)
	}
}
