package domain

import (
	"context"
	"time"
)

// ConfigRepository stores the live schedule record
// This is a PORT - adapters (SQLite, Postgres, Memory) will implement it
type ConfigRepository interface {
	// SaveConfig replaces the stored record wholesale
	SaveConfig(ctx context.Context, rec Record) error

	// LoadConfig returns the stored record, or ErrConfigNotFound
	LoadConfig(ctx context.Context) (Record, error)
}

// TransitionRepository defines operations for storing/retrieving observed transitions
// This is a PORT - adapters (SQLite, Postgres, Memory) will implement it
type TransitionRepository interface {
	// SaveTransition persists an event and assigns its ID
	SaveTransition(ctx context.Context, event *TransitionEvent) error

	// GetTransition retrieves a specific event by ID
	GetTransition(ctx context.Context, id int64) (*TransitionEvent, error)

	// GetTransitionsInRange retrieves all events within time range.
	// Uses a half-open interval: inclusive start, exclusive end [start, end).
	GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*TransitionEvent, error)

	// GetLatestTransition retrieves the most recent event
	GetLatestTransition(ctx context.Context) (*TransitionEvent, error)

	// DeleteOldTransitions removes events recorded before now - olderThan
	DeleteOldTransitions(ctx context.Context, now time.Time, olderThan time.Duration) error
}
