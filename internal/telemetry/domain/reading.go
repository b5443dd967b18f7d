package telemetry

import "time"

// Severity levels reported by the classifier.
const (
	SeverityLow    = "LOW"
	SeverityMedium = "MEDIUM"
	SeverityHigh   = "HIGH"
)

// FallbackNote is attached to the ai_decision of a fallback verdict so that
// operators can tell an alert was generated while the classifier was down.
const FallbackNote = "AI Service Unavailable - Using Fallback"

// TiltSafe is the tilt sentinel meaning the node is upright. It is the
// default for an absent tilt field; 0 is a valid-but-different tilt state
// and must never be substituted for it.
const TiltSafe = 1

// RawReading is a telemetry message as received from the transport. Any
// subset of the canonical fields may be present; unknown fields are ignored.
type RawReading map[string]any

// CanonicalReading is the fully-populated record sent to the classifier.
// Every field has a deterministic, type-correct value after Normalize.
type CanonicalReading struct {
	NodeID    string `json:"node_id"`
	Timestamp int64  `json:"timestamp"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	AccelX float64 `json:"accel_x"`
	AccelY float64 `json:"accel_y"`
	AccelZ float64 `json:"accel_z"`
	MagX   float64 `json:"mag_x"`
	MagY   float64 `json:"mag_y"`
	MagZ   float64 `json:"mag_z"`

	Heading   float64 `json:"heading"`
	Tilt      int     `json:"tilt"`
	TiltAlert bool    `json:"tilt_alert"`

	AccelMag     float64 `json:"accel_mag"`
	AccelRollRMS float64 `json:"accel_roll_rms"`
	MagNorm      float64 `json:"mag_norm"`
	MicLevel     float64 `json:"mic_level"`

	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
}

// ClassificationResult is the classifier verdict for one reading.
type ClassificationResult struct {
	IsAnomaly    bool           `json:"is_anomaly"`
	Severity     string         `json:"severity"`
	AnomalyScore float64        `json:"anomaly_score"`
	AIDecision   map[string]any `json:"ai_decision,omitempty"`
}

// FallbackResult is the fail-open verdict used when the classifier is
// unreachable or rejects the payload.
func FallbackResult() ClassificationResult {
	return ClassificationResult{
		IsAnomaly:    false,
		Severity:     SeverityLow,
		AnomalyScore: 0,
		AIDecision:   map[string]any{"note": FallbackNote},
	}
}

// EnrichedReading is a canonical reading merged with its classifier verdict.
// It is owned by the pipeline only for the duration of one message.
type EnrichedReading struct {
	CanonicalReading
	ClassificationResult
	ProcessedAt time.Time `json:"processed_at"`
}

// Normalize maps a raw reading onto the canonical schema. Pure, never fails.
// Defaulting uses explicit key-presence checks, not truthiness: a present
// zero or false survives; an absent or non-convertible value gets the
// documented default. Absent timestamp defaults to the ingestion time.
func Normalize(raw RawReading, now time.Time) CanonicalReading {
	return CanonicalReading{
		NodeID:    stringField(raw, "node_id", "UNKNOWN"),
		Timestamp: intField(raw, "timestamp", now.UnixMilli()),

		Latitude:  floatField(raw, "latitude"),
		Longitude: floatField(raw, "longitude"),

		AccelX: floatField(raw, "accel_x"),
		AccelY: floatField(raw, "accel_y"),
		AccelZ: floatField(raw, "accel_z"),
		MagX:   floatField(raw, "mag_x"),
		MagY:   floatField(raw, "mag_y"),
		MagZ:   floatField(raw, "mag_z"),

		Heading:   floatField(raw, "heading"),
		Tilt:      int(intField(raw, "tilt", TiltSafe)),
		TiltAlert: boolField(raw, "tilt_alert"),

		AccelMag:     floatField(raw, "accel_mag"),
		AccelRollRMS: floatField(raw, "accel_roll_rms"),
		MagNorm:      floatField(raw, "mag_norm"),
		MicLevel:     floatField(raw, "mic_level"),

		Temperature: floatField(raw, "temperature"),
		Humidity:    floatField(raw, "humidity"),
		Pressure:    floatField(raw, "pressure"),
	}
}

func stringField(raw RawReading, key, fallback string) string {
	value, ok := raw[key]
	if !ok {
		return fallback
	}
	s, ok := value.(string)
	if !ok {
		return fallback
	}
	return s
}

func floatField(raw RawReading, key string) float64 {
	value, ok := raw[key]
	if !ok {
		return 0
	}
	f, ok := asFloat(value)
	if !ok {
		return 0
	}
	return f
}

func intField(raw RawReading, key string, fallback int64) int64 {
	value, ok := raw[key]
	if !ok {
		return fallback
	}
	f, ok := asFloat(value)
	if !ok {
		return fallback
	}
	return int64(f)
}

func boolField(raw RawReading, key string) bool {
	value, ok := raw[key]
	if !ok {
		return false
	}
	b, ok := value.(bool)
	if !ok {
		return false
	}
	return b
}

// asFloat widens the numeric types encoding/json and test fixtures produce.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
