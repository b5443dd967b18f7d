package telemetry

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	got := Normalize(RawReading{}, now)

	if got.NodeID != "UNKNOWN" {
		t.Fatalf("expected node_id UNKNOWN, got %q", got.NodeID)
	}
	if got.Timestamp != now.UnixMilli() {
		t.Fatalf("expected timestamp %d, got %d", now.UnixMilli(), got.Timestamp)
	}
	if got.Tilt != TiltSafe {
		t.Fatalf("expected tilt default %d, got %d", TiltSafe, got.Tilt)
	}
	if got.TiltAlert {
		t.Fatalf("expected tilt_alert false")
	}
	for name, value := range map[string]float64{
		"latitude":       got.Latitude,
		"longitude":      got.Longitude,
		"accel_x":        got.AccelX,
		"accel_y":        got.AccelY,
		"accel_z":        got.AccelZ,
		"mag_x":          got.MagX,
		"mag_y":          got.MagY,
		"mag_z":          got.MagZ,
		"heading":        got.Heading,
		"accel_mag":      got.AccelMag,
		"accel_roll_rms": got.AccelRollRMS,
		"mag_norm":       got.MagNorm,
		"mic_level":      got.MicLevel,
		"temperature":    got.Temperature,
		"humidity":       got.Humidity,
		"pressure":       got.Pressure,
	} {
		if value != 0 {
			t.Fatalf("expected %s default 0, got %v", name, value)
		}
	}
}

func TestNormalizePartialReading(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	got := Normalize(RawReading{"node_id": "N1", "accel_mag": 9.8}, now)

	if got.NodeID != "N1" {
		t.Fatalf("expected node_id N1, got %q", got.NodeID)
	}
	if got.AccelMag != 9.8 {
		t.Fatalf("expected accel_mag 9.8, got %v", got.AccelMag)
	}
	if got.Tilt != 1 {
		t.Fatalf("expected tilt 1, got %d", got.Tilt)
	}
	if got.Latitude != 0 || got.Longitude != 0 {
		t.Fatalf("expected zero position, got %v/%v", got.Latitude, got.Longitude)
	}
	if got.TiltAlert {
		t.Fatalf("expected tilt_alert false")
	}
}

func TestNormalizePreservesFalsyValues(t *testing.T) {
	// A legitimate zero reading or tilt 0 must not be treated as absent.
	now := time.Now().UTC()
	raw := RawReading{
		"tilt":       float64(0),
		"heading":    float64(0),
		"tilt_alert": false,
		"timestamp":  float64(1234),
	}

	got := Normalize(raw, now)

	if got.Tilt != 0 {
		t.Fatalf("expected explicit tilt 0 preserved, got %d", got.Tilt)
	}
	if got.Timestamp != 1234 {
		t.Fatalf("expected explicit timestamp preserved, got %d", got.Timestamp)
	}
}

func TestNormalizeMistypedFieldsFallBack(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	raw := RawReading{
		"node_id":  42,
		"latitude": "not-a-number",
		"tilt":     "sideways",
	}

	got := Normalize(raw, now)

	if got.NodeID != "UNKNOWN" {
		t.Fatalf("expected node_id fallback, got %q", got.NodeID)
	}
	if got.Latitude != 0 {
		t.Fatalf("expected latitude fallback, got %v", got.Latitude)
	}
	if got.Tilt != TiltSafe {
		t.Fatalf("expected tilt fallback %d, got %d", TiltSafe, got.Tilt)
	}
}

func TestNormalizeIgnoresUnknownFields(t *testing.T) {
	raw := RawReading{"firmware_rev": "1.2.3", "node_id": "N9"}
	got := Normalize(raw, time.Now().UTC())
	if got.NodeID != "N9" {
		t.Fatalf("expected node_id N9, got %q", got.NodeID)
	}
}

func TestEnrichedReadingWireFormat(t *testing.T) {
	reading := EnrichedReading{
		CanonicalReading: CanonicalReading{NodeID: "N2", Latitude: 1.5, Tilt: 1},
		ClassificationResult: ClassificationResult{
			IsAnomaly:    true,
			Severity:     SeverityHigh,
			AnomalyScore: -0.92,
		},
		ProcessedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}

	payload, err := json.Marshal(reading)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"node_id", "latitude", "is_anomaly", "severity", "anomaly_score", "processed_at"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected flattened field %q in payload %s", key, payload)
		}
	}
	if fields["is_anomaly"] != true {
		t.Fatalf("expected is_anomaly true")
	}
}

func TestFallbackResult(t *testing.T) {
	got := FallbackResult()
	if got.IsAnomaly {
		t.Fatalf("fallback must not flag an anomaly")
	}
	if got.Severity != SeverityLow {
		t.Fatalf("expected severity LOW, got %q", got.Severity)
	}
	if got.AnomalyScore != 0 {
		t.Fatalf("expected score 0, got %v", got.AnomalyScore)
	}
	if note, _ := got.AIDecision["note"].(string); note != FallbackNote {
		t.Fatalf("expected fallback note, got %q", note)
	}
}
