package chat

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTwitch is a scripted stand-in for the Twitch IRC endpoint. It
// accepts plaintext connections on a loopback port and hands each one
// to the test to drive.
type fakeTwitch struct {
	t  *testing.T
	ln net.Listener

	conns chan *serverConn

	mu     sync.Mutex
	open   []net.Conn
	closed bool

	wg sync.WaitGroup
}

func newFakeTwitch(t *testing.T) *fakeTwitch {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	f := &fakeTwitch{t: t, ln: ln, conns: make(chan *serverConn, 4)}
	f.wg.Add(1)
	go f.acceptLoop()
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTwitch) Addr() string { return f.ln.Addr().String() }

func (f *fakeTwitch) acceptLoop() {
	defer f.wg.Done()
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			_ = conn.Close()
			return
		}
		f.open = append(f.open, conn)
		f.mu.Unlock()
		f.conns <- &serverConn{conn: conn, sc: bufio.NewScanner(conn)}
	}
}

// accept blocks until the next client connection arrives.
func (f *fakeTwitch) accept() *serverConn {
	f.t.Helper()
	select {
	case sc := <-f.conns:
		return sc
	case <-time.After(5 * time.Second):
		f.t.Fatal("timed out waiting for a client connection")
		return nil
	}
}

func (f *fakeTwitch) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	open := f.open
	f.open = nil
	f.mu.Unlock()
	_ = f.ln.Close()
	for _, c := range open {
		_ = c.Close()
	}
	f.wg.Wait()
}

// serverConn drives one accepted connection from the server side.
type serverConn struct {
	conn net.Conn
	sc   *bufio.Scanner
}

func (s *serverConn) sendLine(t *testing.T, line string) {
	t.Helper()
	if _, err := s.conn.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (s *serverConn) readLine(t *testing.T) string {
	t.Helper()
	_ = s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if !s.sc.Scan() {
		t.Fatalf("server read: %v", s.sc.Err())
	}
	return s.sc.Text()
}

// expectHandshake consumes the login sequence and fails the test if
// the order or shape is off.
func (s *serverConn) expectHandshake(t *testing.T, nick, channel string) {
	t.Helper()
	if got := s.readLine(t); !strings.HasPrefix(got, "PASS oauth:") {
		t.Fatalf("first handshake line = %q, want PASS oauth:...", got)
	}
	if got, want := s.readLine(t), "NICK "+nick; got != want {
		t.Fatalf("second handshake line = %q, want %q", got, want)
	}
	if got, want := s.readLine(t), "JOIN #"+channel; got != want {
		t.Fatalf("third handshake line = %q, want %q", got, want)
	}
}

// welcome sends the post-login numeric that the client treats as a
// completed join.
func (s *serverConn) welcome(t *testing.T, nick string) {
	s.sendLine(t, ":tmi.twitch.tv 001 "+nick+" :Welcome, GLHF!")
}

func (s *serverConn) Close() { _ = s.conn.Close() }
