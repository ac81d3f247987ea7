package chat

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"time"
)

// maxLineLen bounds one protocol line. Twitch stays near the classic
// 512-byte IRC limit when no tag capabilities are requested; anything
// this long means a broken peer and fails the connection.
const maxLineLen = 4096

// scanLines is a bufio.SplitFunc yielding complete LF-terminated lines
// with an optional trailing CR stripped. A fragment with no terminator
// is held back, even at stream end, so a cut-off line never reaches the
// parser.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line := data[:i]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		return i + 1, line, nil
	}
	return 0, nil, nil
}

// lineReader frames a chat byte stream into lines, buffering partial
// reads until their terminator arrives. One lineReader serves exactly
// one connection.
type lineReader struct {
	sc *bufio.Scanner
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 512), maxLineLen)
	sc.Split(scanLines)
	return &lineReader{sc: sc}
}

// Next returns the next complete line. A non-nil error means the stream
// is over: io.EOF on a clean peer close, the read error otherwise.
func (lr *lineReader) Next() (string, error) {
	if lr.sc.Scan() {
		return lr.sc.Text(), nil
	}
	if err := lr.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// readConn arms a deadline before each read so a silently dead peer
// surfaces as an error within one keepalive interval instead of hanging
// forever.
type readConn struct {
	conn    net.Conn
	timeout time.Duration
}

func (rc readConn) Read(p []byte) (int, error) {
	if rc.timeout > 0 {
		if err := rc.conn.SetReadDeadline(time.Now().Add(rc.timeout)); err != nil {
			return 0, err
		}
	}
	return rc.conn.Read(p)
}
