// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required credentials (Twitch chat), use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Twitch chat
	TwitchChannel    string
	TwitchNickname   string
	TwitchOAuthToken string
	TwitchIRCAddr    string

	// Twitch Helix (live-status lookups)
	TwitchClientID     string
	TwitchClientSecret string

	// Chat client tuning. Zero values defer to the chat package
	// defaults.
	ChatQueueCap      int
	ChatDialTimeout   time.Duration
	ChatReadTimeout   time.Duration
	ChatReconnectBase time.Duration
	ChatReconnectMax  time.Duration

	// ChatPollInterval is how often the rendering loop drains the
	// event queue.
	ChatPollInterval time.Duration

	// Database. Archiving is disabled when empty.
	DBDsn string

	// Emotes mapping file (emote name to image path).
	EmotesFile string

	// Player
	PlayerEnabled bool
	PlayerCmd     string
}

// Load reads environment variables and applies defaults. It doesn't fail if Twitch creds are missing;
// use ValidateChatReady() when you require the chat connection. Missing optional variables disable
// features (e.g., archiving, the player).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchChannel = os.Getenv("TWITCH_CHANNEL")
	cfg.TwitchNickname = os.Getenv("TWITCH_NICKNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchIRCAddr = os.Getenv("TWITCH_IRC_ADDR")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	var err error
	if cfg.ChatQueueCap, err = envInt("CHAT_QUEUE_CAP", 0); err != nil {
		return nil, err
	}
	if cfg.ChatDialTimeout, err = envDuration("CHAT_DIAL_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ChatReadTimeout, err = envDuration("CHAT_READ_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.ChatReconnectBase, err = envDuration("CHAT_RECONNECT_BASE", 0); err != nil {
		return nil, err
	}
	if cfg.ChatReconnectMax, err = envDuration("CHAT_RECONNECT_MAX", 0); err != nil {
		return nil, err
	}
	if cfg.ChatPollInterval, err = envDuration("CHAT_POLL_INTERVAL", 100*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.EmotesFile = os.Getenv("EMOTES_FILE")
	if cfg.EmotesFile == "" {
		cfg.EmotesFile = "emotes.json"
	}

	cfg.PlayerEnabled = os.Getenv("PLAYER_ENABLED") == "1"
	cfg.PlayerCmd = os.Getenv("PLAYER_CMD")

	return cfg, nil
}

// ValidateChatReady checks required fields for connecting to Twitch chat.
func (c *Config) ValidateChatReady() error {
	if c.TwitchChannel == "" || c.TwitchNickname == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_CHANNEL, TWITCH_NICKNAME, TWITCH_OAUTH_TOKEN")
	}
	return nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration): %w", key, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (integer): %w", key, err)
	}
	return n, nil
}
