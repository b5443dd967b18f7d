package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	alerts "railguard-cloud/internal/alerts/domain"
	"railguard-cloud/internal/observability/metrics"
	telemetry "railguard-cloud/internal/telemetry/domain"
)

// AlertStore appends alert records.
type AlertStore interface {
	Create(ctx context.Context, record alerts.Record) error
}

// Notifier pages operators; rate limiting and failure handling live behind
// this interface, so Notify never reports back.
type Notifier interface {
	Notify(ctx context.Context, record alerts.Record)
}

// AlertBroadcaster pushes raised alerts to connected observers.
type AlertBroadcaster interface {
	BroadcastAlert(record alerts.Record)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service is the alert pipeline: build record, notify, persist, broadcast.
type Service struct {
	store       AlertStore
	notifier    Notifier
	broadcaster AlertBroadcaster
	logger      *log.Logger
	clock       Clock
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithNotifier assigns a notification sink.
func WithNotifier(notifier Notifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService constructs the alert pipeline service.
func NewService(store AlertStore, broadcaster AlertBroadcaster, logger *log.Logger, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("alerts: nil store")
	}
	if broadcaster == nil {
		return nil, errors.New("alerts: nil broadcaster")
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &Service{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		clock:       systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// HandleAnomaly runs the pipeline for one anomalous reading. Every reading
// yields a persisted record and an alert broadcast; only the notification is
// rate limited. A sink failure is absorbed by the notifier. A persistence
// failure must not stop the broadcast (operators should still see the alert
// live), but it is the one failure worth surfacing: a silently lost incident
// record is unacceptable. It is returned to the caller after broadcast.
func (s *Service) HandleAnomaly(ctx context.Context, reading telemetry.EnrichedReading) error {
	if s == nil {
		return errors.New("alerts: nil service")
	}

	record := alerts.NewRecordFromReading(reading, s.clock.Now().UTC())
	metrics.IncAlertRaised()

	if s.notifier != nil {
		s.notifier.Notify(ctx, record)
	}

	persistErr := s.store.Create(ctx, record)
	if persistErr != nil {
		s.logger.Printf("alerts: PERSIST FAILED for alert %s node %s: %v", record.ID, record.NodeID, persistErr)
		metrics.IncAlertPersisted(metrics.ResultError)
		persistErr = fmt.Errorf("alerts: persist alert %s: %w", record.ID, persistErr)
	} else {
		metrics.IncAlertPersisted(metrics.ResultSuccess)
	}

	s.broadcaster.BroadcastAlert(record)

	return persistErr
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
