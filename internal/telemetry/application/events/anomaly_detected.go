package events

import (
	"time"

	telemetry "railguard-cloud/internal/telemetry/domain"
)

// AnomalyDetected is published on the in-process bus for every enriched
// reading whose verdict flags an anomaly. The alert pipeline consumes it.
type AnomalyDetected struct {
	EventID    string                    `json:"event_id"`
	Reading    telemetry.EnrichedReading `json:"reading"`
	OccurredAt time.Time                 `json:"occurred_at"`
}
