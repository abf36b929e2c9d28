package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordError("/tickets", "POST", "VALIDATION_FAILED")
	m.RecordExpired(3)
	m.RecordExpired(0)

	snap := m.Snapshot()
	if got := snap.Requests["/tickets|GET|200"]; got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if got := snap.AvgLatencyMs["/tickets|GET|200"]; got != 20 {
		t.Errorf("avg latency = %dms, want 20ms", got)
	}
	if got := snap.Errors["/tickets|POST|VALIDATION_FAILED"]; got != 1 {
		t.Errorf("errors = %d, want 1", got)
	}
	if snap.ExpiredTickets != 3 {
		t.Errorf("expired = %d, want 3", snap.ExpiredTickets)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordExpired(1)
	if len(m.Snapshot().Requests) != 0 {
		t.Error("nil metrics snapshot should be empty")
	}
}
