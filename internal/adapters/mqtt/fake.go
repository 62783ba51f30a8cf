package mqtt

import (
	"context"
	"sync"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// FakePublisher records published transitions for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Events contains all transitions that were published.
	Events []domain.TransitionEvent

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by PublishTransition.
	PublishError error
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishTransition records the event.
func (f *FakePublisher) PublishTransition(ctx context.Context, event domain.TransitionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}

	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Published returns a copy of the recorded events.
func (f *FakePublisher) Published() []domain.TransitionEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.TransitionEvent(nil), f.Events...)
}
