package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

// chunkReader hands out at most size bytes per Read to simulate
// arbitrary TCP segmentation.
type chunkReader struct {
	data []byte
	size int
	off  int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := r.size
	if n > len(p) {
		n = len(p)
	}
	if rem := len(r.data) - r.off; n > rem {
		n = rem
	}
	copy(p, r.data[r.off:r.off+n])
	r.off += n
	return n, nil
}

func collectLines(t *testing.T, r io.Reader) ([]string, error) {
	t.Helper()
	lr := newLineReader(r)
	var lines []string
	for {
		line, err := lr.Next()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

func TestLineReaderChunkInvariance(t *testing.T) {
	stream := "first line\r\nsecond\r\nthird one has spaces\r\n"
	want := []string{"first line", "second", "third one has spaces"}
	for _, size := range []int{1, 2, 3, 7, len(stream)} {
		t.Run(fmt.Sprintf("chunk=%d", size), func(t *testing.T) {
			lines, err := collectLines(t, &chunkReader{data: []byte(stream), size: size})
			if err != io.EOF {
				t.Fatalf("final error = %v, want io.EOF", err)
			}
			if len(lines) != len(want) {
				t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
			}
			for i := range want {
				if lines[i] != want[i] {
					t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
				}
			}
		})
	}
}

func TestLineReaderHoldsPartialTail(t *testing.T) {
	lines, err := collectLines(t, strings.NewReader("complete\r\npartial without end"))
	if err != io.EOF {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if len(lines) != 1 || lines[0] != "complete" {
		t.Fatalf("lines = %q, want only the complete one", lines)
	}
}

func TestLineReaderBareLF(t *testing.T) {
	lines, err := collectLines(t, strings.NewReader("no carriage\nwith carriage\r\n"))
	if err != io.EOF {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if len(lines) != 2 || lines[0] != "no carriage" || lines[1] != "with carriage" {
		t.Fatalf("lines = %q", lines)
	}
}

func TestLineReaderEmptyLines(t *testing.T) {
	lines, err := collectLines(t, strings.NewReader("\r\n\r\nx\r\n"))
	if err != io.EOF {
		t.Fatalf("final error = %v, want io.EOF", err)
	}
	if len(lines) != 3 || lines[0] != "" || lines[1] != "" || lines[2] != "x" {
		t.Fatalf("lines = %q, want two empties then x", lines)
	}
}

func TestLineReaderImmediateEOF(t *testing.T) {
	lr := newLineReader(strings.NewReader(""))
	if _, err := lr.Next(); err != io.EOF {
		t.Fatalf("Next on empty stream = %v, want io.EOF", err)
	}
}

func TestLineReaderRejectsOverlongLine(t *testing.T) {
	long := strings.Repeat("a", maxLineLen+1) + "\r\n"
	_, err := collectLines(t, strings.NewReader(long))
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("error = %v, want bufio.ErrTooLong", err)
	}
}
