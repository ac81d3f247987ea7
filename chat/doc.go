// Package chat implements the live Twitch IRC client: connection
// management with capped exponential reconnect, the PASS/NICK/JOIN login
// handshake, line framing, protocol parsing, and a bounded in-memory
// event queue drained by the rendering layer.
//
// A Client owns a single connection worker goroutine. Inbound lines are
// parsed into Events (chat messages, server notices, connection errors)
// and buffered until Drain is called. Keepalive probes are answered
// inline on the socket so they can never sit behind a full queue. The
// worker reconnects on any connection loss, including credential
// rejection, until Stop is called; Stop is idempotent and returns only
// once the worker has exited.
//
// Clients are one-shot: construct a new one per session. Tunables come
// from chat.Config; config.Load maps the environment onto it.
package chat
