// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesReceived prometheus.Counter
	Reconnects       prometheus.Counter
	Keepalives       prometheus.Counter
	QueueDropped     prometheus.Counter

	// Histograms (seconds)
	ConnectDuration prometheus.Observer

	// Gauges
	ConnectedGauge  prometheus.Gauge // 1=joined,0=not
	QueueDepthGauge prometheus.Gauge
)

// Init registers metrics (idempotent). Callers that never Init, such as
// unit tests, get no-op helpers.
func Init() {
	once.Do(func() {
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_total", Help: "Number of chat messages received"})
		Reconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_reconnects_total", Help: "Number of reconnect cycles after a lost connection"})
		Keepalives = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_keepalives_total", Help: "Number of server keepalive probes answered"})
		QueueDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_queue_dropped_total", Help: "Number of events discarded by the bounded queue"})
		ConnectDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chat_connect_duration_seconds", Help: "Time from dial to joined channel", Buckets: prometheus.DefBuckets})
		ConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_connected", Help: "Joined channel=1 otherwise 0"})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "chat_queue_depth", Help: "Events buffered for the rendering layer"})
	})
}

// IncMessages counts one received chat message.
func IncMessages() {
	if MessagesReceived != nil {
		MessagesReceived.Inc()
	}
}

// IncReconnects counts one reconnect cycle.
func IncReconnects() {
	if Reconnects != nil {
		Reconnects.Inc()
	}
}

// IncKeepalives counts one answered keepalive probe.
func IncKeepalives() {
	if Keepalives != nil {
		Keepalives.Inc()
	}
}

// IncQueueDropped counts one event lost to queue overflow.
func IncQueueDropped() {
	if QueueDropped != nil {
		QueueDropped.Inc()
	}
}

// SetConnected sets the gauge to 1 while joined else 0.
func SetConnected(joined bool) {
	if ConnectedGauge == nil {
		return
	}
	if joined {
		ConnectedGauge.Set(1)
	} else {
		ConnectedGauge.Set(0)
	}
}

// SetQueueDepth records the current buffered event count.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// ObserveConnect records how long dial-to-joined took.
func ObserveConnect(d time.Duration) {
	if ConnectDuration != nil {
		ConnectDuration.Observe(d.Seconds())
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
