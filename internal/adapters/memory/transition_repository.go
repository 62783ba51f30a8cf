package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

// TransitionRepository implements domain.TransitionRepository with in-memory storage
// This is perfect for development - no database setup needed
type TransitionRepository struct {
	mu     sync.RWMutex
	events map[int64]*domain.TransitionEvent
	nextID int64
}

// NewTransitionRepository creates an empty in-memory repository
func NewTransitionRepository() *TransitionRepository {
	return &TransitionRepository{
		events: make(map[int64]*domain.TransitionEvent),
		nextID: 1,
	}
}

// SaveTransition stores a copy of the event and assigns its ID
func (r *TransitionRepository) SaveTransition(ctx context.Context, event *domain.TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == 0 {
		event.ID = r.nextID
		r.nextID++
	}

	stored := *event
	stored.Initial = false
	r.events[event.ID] = &stored
	return nil
}

// GetTransition retrieves an event by ID
func (r *TransitionRepository) GetTransition(ctx context.Context, id int64) (*domain.TransitionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.events[id]
	if !exists {
		return nil, domain.ErrTransitionNotFound
	}

	out := *event
	return &out, nil
}

// GetTransitionsInRange returns events in [start, end) sorted by time
func (r *TransitionRepository) GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*domain.TransitionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.TransitionEvent
	for _, event := range r.events {
		if !event.At.Before(start) && event.At.Before(end) {
			out := *event
			results = append(results, &out)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].At.Before(results[j].At)
	})

	return results, nil
}

// GetLatestTransition returns the most recent event
func (r *TransitionRepository) GetLatestTransition(ctx context.Context) (*domain.TransitionEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.TransitionEvent
	for _, event := range r.events {
		if latest == nil || event.At.After(latest.At) || (event.At.Equal(latest.At) && event.ID > latest.ID) {
			latest = event
		}
	}
	if latest == nil {
		return nil, domain.ErrTransitionNotFound
	}

	out := *latest
	return &out, nil
}

// DeleteOldTransitions removes events recorded before now - olderThan
func (r *TransitionRepository) DeleteOldTransitions(ctx context.Context, now time.Time, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-olderThan)
	for id, event := range r.events {
		if event.At.Before(cutoff) {
			delete(r.events, id)
		}
	}

	return nil
}
