package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestInitRegistersCollectors(t *testing.T) {
	Init()

	if MessagesReceived == nil {
		t.Error("MessagesReceived counter not initialized")
	}
	if Reconnects == nil {
		t.Error("Reconnects counter not initialized")
	}
	if Keepalives == nil {
		t.Error("Keepalives counter not initialized")
	}
	if QueueDropped == nil {
		t.Error("QueueDropped counter not initialized")
	}
	if ConnectDuration == nil {
		t.Error("ConnectDuration histogram not initialized")
	}
	if ConnectedGauge == nil {
		t.Error("ConnectedGauge not initialized")
	}
	if QueueDepthGauge == nil {
		t.Error("QueueDepthGauge not initialized")
	}

	// Init is idempotent; a second call must not re-register.
	Init()
}

func TestCounterHelpers(t *testing.T) {
	Init()

	before := counterValue(t, MessagesReceived)
	IncMessages()
	IncMessages()
	if got := counterValue(t, MessagesReceived); got != before+2 {
		t.Errorf("MessagesReceived = %v, want %v", got, before+2)
	}

	IncReconnects()
	IncKeepalives()
	IncQueueDropped()
}

func TestConnectedGauge(t *testing.T) {
	Init()

	SetConnected(true)
	if got := gaugeValue(t, ConnectedGauge); got != 1 {
		t.Errorf("ConnectedGauge = %v, want 1", got)
	}
	SetConnected(false)
	if got := gaugeValue(t, ConnectedGauge); got != 0 {
		t.Errorf("ConnectedGauge = %v, want 0", got)
	}
}

func TestQueueDepthGauge(t *testing.T) {
	Init()

	depths := []int{0, 10, 50, 2048}
	for _, depth := range depths {
		SetQueueDepth(depth)
		if got := gaugeValue(t, QueueDepthGauge); got != float64(depth) {
			t.Errorf("QueueDepthGauge = %v, want %d", got, depth)
		}
	}
}

func TestObserveConnectRecordsSample(t *testing.T) {
	Init()

	hist, ok := ConnectDuration.(prometheus.Histogram)
	if !ok {
		t.Fatal("ConnectDuration is not a histogram")
	}
	metric := &dto.Metric{}
	if err := hist.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	before := metric.Histogram.GetSampleCount()

	ObserveConnect(250 * time.Millisecond)

	metric = &dto.Metric{}
	if err := hist.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.Histogram.GetSampleCount(); got != before+1 {
		t.Errorf("sample count = %d, want %d", got, before+1)
	}
}

func TestHelpersAreNilSafe(t *testing.T) {
	// Helpers must not panic before Init; the chat package relies on
	// this in its own tests.
	var g prometheus.Gauge
	saved := QueueDepthGauge
	QueueDepthGauge = g
	defer func() { QueueDepthGauge = saved }()
	SetQueueDepth(5)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := g.Write(metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}
