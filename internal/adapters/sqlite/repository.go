package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedule_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	start_date TEXT NOT NULL,
	light_hours REAL NOT NULL,
	dark_hours REAL NOT NULL,
	duration_days INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	state TEXT NOT NULL,
	at_unix_nano INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at_unix_nano);
`

// Repository implements domain.ConfigRepository and domain.TransitionRepository with SQLite
type Repository struct {
	db *sql.DB
}

// NewRepository opens (or creates) a SQLite database at dbPath
func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// SaveConfig upserts the single schedule row
func (r *Repository) SaveConfig(ctx context.Context, rec domain.Record) error {
	query := `
		INSERT INTO schedule_config (id, start_date, light_hours, dark_hours, duration_days)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			light_hours = excluded.light_hours,
			dark_hours = excluded.dark_hours,
			duration_days = excluded.duration_days
	`

	if _, err := r.db.ExecContext(ctx, query, rec.StartDate, rec.LightHours, rec.DarkHours, rec.DurationDays); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LoadConfig reads the schedule row
func (r *Repository) LoadConfig(ctx context.Context) (domain.Record, error) {
	query := `SELECT start_date, light_hours, dark_hours, duration_days FROM schedule_config WHERE id = 1`

	var rec domain.Record
	err := r.db.QueryRowContext(ctx, query).Scan(&rec.StartDate, &rec.LightHours, &rec.DarkHours, &rec.DurationDays)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, domain.ErrConfigNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("failed to query config: %w", err)
	}
	return rec, nil
}

// SaveTransition stores an event and assigns its ID
func (r *Repository) SaveTransition(ctx context.Context, event *domain.TransitionEvent) error {
	query := `INSERT INTO transitions (state, at_unix_nano) VALUES (?, ?)`

	result, err := r.db.ExecContext(ctx, query, string(event.State), event.At.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	event.ID = id
	return nil
}

// GetTransition retrieves an event by ID
func (r *Repository) GetTransition(ctx context.Context, id int64) (*domain.TransitionEvent, error) {
	query := `SELECT id, state, at_unix_nano FROM transitions WHERE id = ?`

	event, err := scanTransition(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transition: %w", err)
	}
	return event, nil
}

// GetTransitionsInRange returns events in [start, end)
func (r *Repository) GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*domain.TransitionEvent, error) {
	query := `
		SELECT id, state, at_unix_nano
		FROM transitions
		WHERE at_unix_nano >= ? AND at_unix_nano < ?
		ORDER BY at_unix_nano ASC
	`

	rows, err := r.db.QueryContext(ctx, query, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var events []*domain.TransitionEvent
	for rows.Next() {
		event, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// GetLatestTransition returns the most recent event
func (r *Repository) GetLatestTransition(ctx context.Context) (*domain.TransitionEvent, error) {
	query := `
		SELECT id, state, at_unix_nano
		FROM transitions
		ORDER BY at_unix_nano DESC, id DESC
		LIMIT 1
	`

	event, err := scanTransition(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest transition: %w", err)
	}
	return event, nil
}

// DeleteOldTransitions removes events recorded before now - olderThan
func (r *Repository) DeleteOldTransitions(ctx context.Context, now time.Time, olderThan time.Duration) error {
	cutoff := now.Add(-olderThan)
	query := `DELETE FROM transitions WHERE at_unix_nano < ?`

	if _, err := r.db.ExecContext(ctx, query, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("failed to delete old transitions: %w", err)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransition(s scanner) (*domain.TransitionEvent, error) {
	var event domain.TransitionEvent
	var state string
	var at int64

	if err := s.Scan(&event.ID, &state, &at); err != nil {
		return nil, err
	}

	event.State = domain.State(state)
	event.At = time.Unix(0, at)
	return &event, nil
}
