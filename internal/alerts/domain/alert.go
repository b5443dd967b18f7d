package alerts

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	telemetry "railguard-cloud/internal/telemetry/domain"
)

// Alert lifecycle statuses. New records are always OPEN; the pipeline never
// mutates a record after creation, only the operator API does.
const (
	StatusOpen         = "OPEN"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusResolved     = "RESOLVED"
)

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusAcknowledged, StatusResolved:
		return true
	default:
		return false
	}
}

// Record is one persisted alert. The JSON names follow the dashboard
// contract: node id and position are renamed on this channel.
type Record struct {
	ID             string  `json:"id"`
	NodeID         string  `json:"nodeId"`
	Severity       string  `json:"severity"`
	Timestamp      int64   `json:"timestamp"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	Status         string  `json:"status"`
	IsConstruction bool    `json:"isConstruction"`
	AnomalyScore   float64 `json:"anomaly_score"`
}

// NewRecordFromReading builds an OPEN record from an anomalous reading.
func NewRecordFromReading(reading telemetry.EnrichedReading, now time.Time) Record {
	severity := reading.Severity
	if severity == "" {
		severity = telemetry.SeverityHigh
	}
	timestamp := reading.Timestamp
	if timestamp == 0 {
		timestamp = now.UnixMilli()
	}
	return Record{
		ID:             NewAlertID(now),
		NodeID:         reading.NodeID,
		Severity:       severity,
		Timestamp:      timestamp,
		Lat:            reading.Latitude,
		Lng:            reading.Longitude,
		Status:         StatusOpen,
		IsConstruction: false,
		AnomalyScore:   reading.AnomalyScore,
	}
}

// NewAlertID returns a time-prefixed identifier. The nanosecond prefix keeps
// ids monotonically distinguishable across records; the random suffix keeps
// them unique when concurrent bursts land in the same instant.
func NewAlertID(now time.Time) string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(now.UnixNano(), 10)
	}
	return strconv.FormatInt(now.UnixNano(), 10) + "-" + hex.EncodeToString(buf[:])
}
