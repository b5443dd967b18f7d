package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"railguard-cloud/internal/eventing"
	"railguard-cloud/internal/observability/metrics"
	telemetryevents "railguard-cloud/internal/telemetry/application/events"
	telemetry "railguard-cloud/internal/telemetry/domain"
)

// Classifier attaches a verdict to a canonical reading. Implementations are
// fail-open and never return an error.
type Classifier interface {
	Classify(ctx context.Context, reading telemetry.CanonicalReading) telemetry.ClassificationResult
}

// TelemetryBroadcaster pushes enriched readings to connected observers.
type TelemetryBroadcaster interface {
	BroadcastTelemetry(reading telemetry.EnrichedReading)
}

// Publisher publishes pipeline events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Listener subscribes to the telemetry topic and drives each message through
// normalize → classify → broadcast → alert-event. One subscription per topic;
// reconnection is delegated to the MQTT client.
type Listener struct {
	topic       string
	qos         byte
	classifier  Classifier
	broadcaster TelemetryBroadcaster
	bus         Publisher
	logger      *log.Logger
	clock       Clock
	timeout     time.Duration

	client paho.Client
}

// ListenerOption configures the listener.
type ListenerOption func(*Listener)

// WithClock overrides the default clock.
func WithClock(clock Clock) ListenerOption {
	return func(l *Listener) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithHandleTimeout bounds the processing of one message.
func WithHandleTimeout(timeout time.Duration) ListenerOption {
	return func(l *Listener) {
		if timeout > 0 {
			l.timeout = timeout
		}
	}
}

// NewListener constructs the ingestion listener.
func NewListener(topic string, classifier Classifier, broadcaster TelemetryBroadcaster, bus Publisher, logger *log.Logger, opts ...ListenerOption) (*Listener, error) {
	if topic == "" {
		return nil, errors.New("mqtt listener: empty topic")
	}
	if classifier == nil {
		return nil, errors.New("mqtt listener: nil classifier")
	}
	if broadcaster == nil {
		return nil, errors.New("mqtt listener: nil broadcaster")
	}
	if bus == nil {
		return nil, errors.New("mqtt listener: nil publisher")
	}
	if logger == nil {
		logger = log.Default()
	}
	l := &Listener{
		topic:       topic,
		qos:         0,
		classifier:  classifier,
		broadcaster: broadcaster,
		bus:         bus,
		logger:      logger,
		clock:       systemClock{},
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Start connects to the broker and opens the subscription. The paho client
// auto-reconnects and re-subscribes on connect, so broker outages are not
// this component's concern.
func (l *Listener) Start(brokerURL, clientID string) error {
	if l == nil {
		return errors.New("mqtt listener: nil listener")
	}
	if brokerURL == "" {
		return errors.New("mqtt listener: empty broker url")
	}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			l.logger.Printf("mqtt listener: connection lost: %v", err)
		}).
		SetOnConnectHandler(func(client paho.Client) {
			l.logger.Printf("mqtt listener: connected, subscribing to %s", l.topic)
			token := client.Subscribe(l.topic, l.qos, func(_ paho.Client, msg paho.Message) {
				// Independent unit of work per message; readings may be
				// enriched and broadcast out of arrival order.
				go l.HandleMessage(msg.Payload())
			})
			token.Wait()
			if err := token.Error(); err != nil {
				l.logger.Printf("mqtt listener: subscribe failed: %v", err)
			}
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt listener: connect: %w", err)
	}
	l.client = client
	return nil
}

// Stop disconnects from the broker.
func (l *Listener) Stop() {
	if l == nil || l.client == nil {
		return
	}
	l.client.Disconnect(250)
}

// HandleMessage processes one raw message. No failure here may stop the next
// message from being handled: parse failures drop the message, classifier
// failures are absorbed by the fallback, alert failures are logged by the
// bus consumer, and a stray panic is contained by the recover boundary.
func (l *Listener) HandleMessage(payload []byte) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Printf("mqtt listener: panic handling message: %v", rec)
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		}
	}()

	ctx := context.Background()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var raw telemetry.RawReading
	if err := json.Unmarshal(payload, &raw); err != nil {
		l.logger.Printf("mqtt listener: dropping unparseable message: %v", err)
		metrics.IncIngestError("invalid_json")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return
	}

	now := l.clock.Now().UTC()
	canonical := telemetry.Normalize(raw, now)
	verdict := l.classifier.Classify(ctx, canonical)

	enriched := telemetry.EnrichedReading{
		CanonicalReading:     canonical,
		ClassificationResult: verdict,
		ProcessedAt:          l.clock.Now().UTC(),
	}

	// Every reading reaches observers, anomalous or not.
	l.broadcaster.BroadcastTelemetry(enriched)

	if verdict.IsAnomaly {
		l.logger.Printf("mqtt listener: anomaly detected at node %s (severity %s, score %.2f)",
			enriched.NodeID, enriched.Severity, enriched.AnomalyScore)
		event := telemetryevents.AnomalyDetected{
			EventID:    eventing.NewEventID(),
			Reading:    enriched,
			OccurredAt: enriched.ProcessedAt,
		}
		if err := l.bus.Publish(ctx, event); err != nil {
			l.logger.Printf("mqtt listener: alert pipeline error for node %s: %v", enriched.NodeID, err)
		}
	}

	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
