package interfaces

import (
	"context"
	"errors"
	"log"

	alertapp "railguard-cloud/internal/alerts/application"
	"railguard-cloud/internal/eventing"
	telemetryevents "railguard-cloud/internal/telemetry/application/events"
)

// AnomalyConsumer adapts bus anomaly events into the alert pipeline.
type AnomalyConsumer struct {
	service *alertapp.Service
	logger  *log.Logger
}

// NewAnomalyConsumer constructs a consumer.
func NewAnomalyConsumer(service *alertapp.Service, logger *log.Logger) (*AnomalyConsumer, error) {
	if service == nil {
		return nil, errors.New("alerts consumer: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AnomalyConsumer{service: service, logger: logger}, nil
}

// Consume handles an anomaly event from the bus.
func (c *AnomalyConsumer) Consume(ctx context.Context, event any) error {
	evt, ok := event.(telemetryevents.AnomalyDetected)
	if !ok {
		return eventing.ErrInvalidEventType
	}
	return c.service.HandleAnomaly(ctx, evt.Reading)
}
