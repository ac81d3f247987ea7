// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs
// for live-status lookups, using an app access token.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// HelixClient provides the minimal methods needed to check whether a
// channel is live.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

// Stream describes one live broadcast as reported by Helix.
type Stream struct {
	ID          string    `json:"id"`
	UserLogin   string    `json:"user_login"`
	Title       string    `json:"title"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// GetStream returns the channel's live broadcast, or nil when the
// channel is offline.
func (hc *HelixClient) GetStream(ctx context.Context, channel string) (*Stream, error) {
	if channel == "" {
		return nil, fmt.Errorf("channel empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/streams", nil)
	q := req.URL.Query()
	q.Set("user_login", channel)
	q.Set("first", "1")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("helix streams request failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data []Stream `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	return &body.Data[0], nil
}

// CanonicalChannel normalizes user input to a bare lowercase channel
// login. It accepts plain names, #-prefixed names, and twitch.tv URLs.
func CanonicalChannel(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(strings.ToLower(s), "twitch.tv/"); i >= 0 {
		s = s[i+len("twitch.tv/"):]
		if j := strings.IndexByte(s, '?'); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimRight(s, "/")
		if j := strings.LastIndexByte(s, '/'); j >= 0 {
			s = s[j+1:]
		}
	}
	s = strings.TrimPrefix(s, "#")
	return strings.ToLower(s)
}
