package chat

import (
	"strings"
	"time"
)

// wireMessage is one protocol line in raw <prefix> <command> <params...>
// form.
type wireMessage struct {
	Prefix  string
	Command string
	Params  []string
}

// parseWire splits a protocol line. It never fails; input that fits no
// shape comes back with empty or partial fields and classify discards
// it.
func parseWire(line string) wireMessage {
	var m wireMessage
	if len(line) > 0 && line[0] == ':' {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return wireMessage{Prefix: line[1:]}
		}
		m.Prefix = line[1:i]
		line = line[i+1:]
	}
	for line != "" {
		if line[0] == ':' {
			m.Params = append(m.Params, line[1:])
			break
		}
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			if m.Command == "" {
				m.Command = line
			} else {
				m.Params = append(m.Params, line)
			}
			break
		}
		if m.Command == "" {
			m.Command = line[:i]
		} else {
			m.Params = append(m.Params, line[:i])
		}
		line = line[i+1:]
	}
	m.Command = strings.ToUpper(m.Command)
	return m
}

// Nick is the sender's short name from the prefix (nick!user@host).
func (m wireMessage) Nick() string {
	if i := strings.IndexByte(m.Prefix, '!'); i >= 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// Trailing is the final parameter, usually the free-text portion.
func (m wireMessage) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// classify maps one wire message to at most one viewer-facing Event.
// Lines with no chat meaning (numerics, capability chatter, malformed
// input) yield nothing, silently.
func classify(m wireMessage, at time.Time) (Event, bool) {
	switch m.Command {
	case "PRIVMSG":
		// Needs a sender plus a target and body param; the body itself
		// may be empty.
		if m.Prefix == "" || len(m.Params) < 2 {
			return Event{}, false
		}
		return Event{Kind: EventMessage, Sender: m.Nick(), Text: m.Trailing(), ReceivedAt: at}, true
	case "NOTICE":
		if len(m.Params) < 2 {
			return Event{}, false
		}
		return Event{Kind: EventNotice, Text: m.Trailing(), ReceivedAt: at}, true
	}
	return Event{}, false
}

// isAuthFailure spots credential rejection, which Twitch reports as a
// NOTICE rather than an ERROR line or a numeric.
func isAuthFailure(m wireMessage) bool {
	if m.Command != "NOTICE" {
		return false
	}
	t := m.Trailing()
	return strings.Contains(t, "Login authentication failed") ||
		strings.Contains(t, "Improperly formatted auth") ||
		strings.Contains(t, "Login unsuccessful")
}
