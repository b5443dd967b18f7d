package alerts

import (
	"testing"
	"time"

	telemetry "railguard-cloud/internal/telemetry/domain"
)

func TestNewRecordFromReading(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	reading := telemetry.EnrichedReading{
		CanonicalReading: telemetry.CanonicalReading{
			NodeID:    "N2",
			Timestamp: 1700000000000,
			Latitude:  48.2,
			Longitude: 16.37,
		},
		ClassificationResult: telemetry.ClassificationResult{
			IsAnomaly:    true,
			Severity:     telemetry.SeverityHigh,
			AnomalyScore: -0.92,
		},
	}

	record := NewRecordFromReading(reading, now)

	if record.Status != StatusOpen {
		t.Fatalf("expected OPEN, got %q", record.Status)
	}
	if record.NodeID != "N2" {
		t.Fatalf("expected nodeId N2, got %q", record.NodeID)
	}
	if record.Severity != telemetry.SeverityHigh {
		t.Fatalf("expected HIGH, got %q", record.Severity)
	}
	if record.Lat != 48.2 || record.Lng != 16.37 {
		t.Fatalf("expected lat/lng mapped from reading, got %v/%v", record.Lat, record.Lng)
	}
	if record.AnomalyScore != -0.92 {
		t.Fatalf("expected score -0.92, got %v", record.AnomalyScore)
	}
	if record.Timestamp != 1700000000000 {
		t.Fatalf("expected reading timestamp kept, got %d", record.Timestamp)
	}
	if record.IsConstruction {
		t.Fatalf("expected isConstruction false")
	}
	if record.ID == "" {
		t.Fatalf("expected non-empty id")
	}
}

func TestNewRecordDefaultsSeverityAndTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	record := NewRecordFromReading(telemetry.EnrichedReading{}, now)
	if record.Severity != telemetry.SeverityHigh {
		t.Fatalf("expected HIGH default, got %q", record.Severity)
	}
	if record.Timestamp != now.UnixMilli() {
		t.Fatalf("expected now fallback, got %d", record.Timestamp)
	}
}

func TestNewAlertIDUnique(t *testing.T) {
	now := time.Now().UTC()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewAlertID(now)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusOpen, StatusAcknowledged, StatusResolved} {
		if !ValidStatus(status) {
			t.Fatalf("expected %q valid", status)
		}
	}
	if ValidStatus("CLOSED") {
		t.Fatalf("expected CLOSED invalid")
	}
}
