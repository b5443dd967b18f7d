package eventing

import (
	"context"
	"errors"
	"testing"
)

type testEvent struct {
	ID string
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewInMemoryBus()

	var got []string
	bus.Subscribe(EventTypeOf[testEvent](), func(ctx context.Context, event any) error {
		e, ok := event.(testEvent)
		if !ok {
			t.Fatalf("unexpected event %T", event)
		}
		got = append(got, e.ID)
		return nil
	})

	if err := bus.Publish(context.Background(), testEvent{ID: "e-1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0] != "e-1" {
		t.Fatalf("expected one delivery of e-1, got %v", got)
	}
}

func TestPublishReportsFirstHandlerError(t *testing.T) {
	bus := NewInMemoryBus()
	wantErr := errors.New("handler failed")

	bus.Subscribe(EventTypeOf[testEvent](), func(ctx context.Context, event any) error {
		return wantErr
	})
	called := false
	bus.Subscribe(EventTypeOf[testEvent](), func(ctx context.Context, event any) error {
		called = true
		return nil
	})

	err := bus.Publish(context.Background(), testEvent{ID: "e-2"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if !called {
		t.Fatalf("expected later handlers to still run")
	}
}

func TestPublishNilEvent(t *testing.T) {
	bus := NewInMemoryBus()
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestEventTypeDereferencesPointers(t *testing.T) {
	if EventType(&testEvent{}) != EventType(testEvent{}) {
		t.Fatalf("pointer and value should share an event type")
	}
	if EventTypeOf[testEvent]() != EventType(testEvent{}) {
		t.Fatalf("EventTypeOf mismatch")
	}
}
