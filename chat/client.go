package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/onnwee/twitchy/telemetry"
)

const (
	// DefaultAddr is the plaintext Twitch IRC endpoint.
	DefaultAddr = "irc.chat.twitch.tv:6667"

	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	// Twitch probes roughly every five minutes; a read outlasting this
	// means the peer is gone.
	defaultReadTimeout   = 6 * time.Minute
	defaultReconnectBase = 2 * time.Second
	defaultReconnectMax  = 60 * time.Second
	defaultQueueCap      = 2048
)

// pongReply is the fixed keepalive answer Twitch accepts for any probe.
const pongReply = "PONG :tmi.twitch.tv"

// ErrNotIdle is returned by Start on a client that already ran. Clients
// are one-shot: construct a new one per session.
var ErrNotIdle = errors.New("chat: client already started")

var errStopped = errors.New("chat: client stopped")

// Config describes one chat session.
type Config struct {
	// Nick is the Twitch login to authenticate as.
	Nick string
	// Token is the user OAuth credential. The oauth: prefix is added
	// when absent.
	Token string
	// Channel to join, with or without the leading #.
	Channel string

	// Addr overrides the chat endpoint, mainly for tests.
	Addr string

	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	QueueCap      int
}

// runState is the client's own lifecycle, separate from the connection
// state it drives.
type runState int

const (
	runIdle runState = iota
	runRunning
	runStopping
	runStopped
)

// Client maintains one authenticated connection to a single Twitch
// channel and buffers inbound chat as Events.
type Client struct {
	cfg   Config
	queue *eventQueue

	mu    sync.Mutex
	run   runState
	state ConnState
	conn  net.Conn

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient normalizes cfg and prepares an idle client. Start connects.
func NewClient(cfg Config) *Client {
	cfg.Nick = strings.ToLower(strings.TrimSpace(cfg.Nick))
	cfg.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	if cfg.Token != "" && !strings.HasPrefix(cfg.Token, "oauth:") {
		cfg.Token = "oauth:" + cfg.Token
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = defaultReconnectMax
	}
	if cfg.ReconnectMax < cfg.ReconnectBase {
		cfg.ReconnectMax = cfg.ReconnectBase
	}
	if cfg.QueueCap <= 0 {
		cfg.QueueCap = defaultQueueCap
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:    cfg,
		queue:  newEventQueue(cfg.QueueCap),
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start spawns the connection worker. Valid exactly once, on a client
// that has not run yet.
func (c *Client) Start() error {
	c.mu.Lock()
	if c.run != runIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	c.run = runRunning
	c.mu.Unlock()
	slog.Info("starting chat client",
		slog.String("channel", c.cfg.Channel),
		slog.String("nick", c.cfg.Nick),
		slog.String("addr", c.cfg.Addr))
	go c.runLoop()
	return nil
}

// Stop tears the worker down and waits for it to exit. It is idempotent
// and safe in any state; once it returns no socket is open and no
// further events are produced.
func (c *Client) Stop() {
	c.mu.Lock()
	switch c.run {
	case runIdle:
		// Never started, so there is no worker to wait for.
		c.run = runStopped
		c.state = StateClosed
		c.cancel()
		close(c.done)
		c.mu.Unlock()
		return
	case runRunning:
		c.run = runStopping
		c.state = StateClosing
		c.cancel()
		if c.conn != nil {
			// Unblocks the worker's read immediately.
			_ = c.conn.Close()
		}
	}
	c.mu.Unlock()
	<-c.done
	c.mu.Lock()
	c.run = runStopped
	c.mu.Unlock()
}

// Drain removes and returns all buffered events in arrival order. An
// empty queue yields an empty result without blocking.
func (c *Client) Drain() []Event { return c.queue.drain() }

// Pending reports how many events await the next Drain.
func (c *Client) Pending() int { return c.queue.len() }

// Dropped reports how many events the queue overflow policy discarded.
func (c *Client) Dropped() uint64 { return c.queue.droppedCount() }

// State reports the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Channel returns the normalized channel this client joins.
func (c *Client) Channel() string { return c.cfg.Channel }

func (c *Client) stopping() bool { return c.ctx.Err() != nil }

// setState applies a connection state transition. Closing is sticky so
// the worker's own transitions cannot mask a teardown in progress.
func (c *Client) setState(s ConnState) {
	c.mu.Lock()
	if c.state == StateClosing && s != StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
	if s != StateJoined {
		telemetry.SetConnected(false)
	}
}

// adoptConn publishes the live connection so Stop can close it. It
// refuses once shutdown has begun.
func (c *Client) adoptConn(conn net.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != runRunning {
		return false
	}
	c.conn = conn
	return true
}

func (c *Client) releaseConn(conn net.Conn) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// runLoop is the connection worker: one session per iteration, one
// Error event and a capped exponential pause between failures. It exits
// only when Stop cancels the client.
func (c *Client) runLoop() {
	defer close(c.done)
	defer c.setState(StateClosed)
	attempt := 0
	for {
		if c.stopping() {
			return
		}
		joined, err := c.session()
		if c.stopping() {
			return
		}
		if joined {
			// A completed handshake resets the failure streak.
			attempt = 0
		}
		attempt++
		c.queue.push(Event{Kind: EventError, Text: err.Error(), ReceivedAt: time.Now()})
		delay := backoffDelay(c.cfg.ReconnectBase, c.cfg.ReconnectMax, attempt)
		slog.Warn("chat connection lost, reconnecting",
			slog.Any("err", err),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay))
		telemetry.IncReconnects()
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// session runs one dial/handshake/read cycle and returns once the
// connection is gone. joined reports whether the handshake completed,
// which callers use to reset the backoff streak.
func (c *Client) session() (joined bool, err error) {
	c.setState(StateConnecting)
	start := time.Now()
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(c.ctx, "tcp", c.cfg.Addr)
	if err != nil {
		c.setState(StateClosed)
		return false, fmt.Errorf("dial %s: %w", c.cfg.Addr, err)
	}
	if !c.adoptConn(conn) {
		_ = conn.Close()
		return false, errStopped
	}
	defer c.releaseConn(conn)

	c.setState(StateAuthenticating)
	if err := c.handshake(conn); err != nil {
		c.setState(StateClosed)
		return false, err
	}

	lr := newLineReader(readConn{conn: conn, timeout: c.cfg.ReadTimeout})
	for {
		line, rerr := lr.Next()
		if rerr != nil {
			c.setState(StateClosed)
			return joined, fmt.Errorf("read: %w", rerr)
		}
		m := parseWire(line)
		switch {
		case m.Command == "PING":
			// Answered inline on the socket; keepalives never wait
			// behind queued events.
			if werr := c.send(conn, pongReply); werr != nil {
				c.setState(StateClosed)
				return joined, fmt.Errorf("pong: %w", werr)
			}
			telemetry.IncKeepalives()
		case m.Command == "001":
			// Post-login welcome: credentials and join were accepted.
			if !joined {
				joined = true
				c.setState(StateJoined)
				telemetry.SetConnected(true)
				telemetry.ObserveConnect(time.Since(start))
				slog.Info("joined channel",
					slog.String("channel", c.cfg.Channel),
					slog.Duration("took", time.Since(start)))
			}
		case isAuthFailure(m):
			c.setState(StateClosed)
			return joined, fmt.Errorf("authentication rejected: %s", m.Trailing())
		default:
			if ev, ok := classify(m, time.Now()); ok {
				c.queue.push(ev)
				if ev.Kind == EventMessage {
					telemetry.IncMessages()
				}
			}
		}
	}
}

// handshake sends the fixed login sequence: credential, nick, then the
// channel join, each as its own framed line. The credential line is
// never logged.
func (c *Client) handshake(conn net.Conn) error {
	for _, line := range []string{
		"PASS " + c.cfg.Token,
		"NICK " + c.cfg.Nick,
		"JOIN #" + c.cfg.Channel,
	} {
		if err := c.send(conn, line); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
	}
	return nil
}

// send writes one CRLF-framed line.
func (c *Client) send(conn net.Conn, line string) error {
	if c.cfg.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// backoffDelay is the wait before reconnect attempt n (1-based): the
// base doubling per consecutive failure, capped at max.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base << uint(attempt-1)
	if d <= 0 || d > max {
		// Also catches shift overflow on long failure streaks.
		d = max
	}
	return d
}
