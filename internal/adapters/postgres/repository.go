package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS schedule_config (
	id SMALLINT PRIMARY KEY CHECK (id = 1),
	start_date TEXT NOT NULL,
	light_hours DOUBLE PRECISION NOT NULL,
	dark_hours DOUBLE PRECISION NOT NULL,
	duration_days INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS transitions (
	id BIGSERIAL PRIMARY KEY,
	state TEXT NOT NULL,
	at_unix_nano BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at_unix_nano);
`

// Repository implements domain.ConfigRepository and domain.TransitionRepository with Postgres
type Repository struct {
	db *sql.DB
}

// NewRepository connects to connStr and makes sure the schema exists
func NewRepository(ctx context.Context, connStr string) (*Repository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// SaveConfig upserts the single schedule row
func (r *Repository) SaveConfig(ctx context.Context, rec domain.Record) error {
	query := `
		INSERT INTO schedule_config (id, start_date, light_hours, dark_hours, duration_days)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			light_hours = EXCLUDED.light_hours,
			dark_hours = EXCLUDED.dark_hours,
			duration_days = EXCLUDED.duration_days
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
	query := `INSERT INTO transitions (state, at_unix_nano) VALUES ($1, $2) RETURNING id`

	if err := r.db.QueryRowContext(ctx, query, string(event.State), event.At.UnixNano()).Scan(&event.ID); err != nil {
		return fmt.Errorf("failed to insert transition: %w", err)
	}
	return nil
}

// GetTransition retrieves an event by ID
func (r *Repository) GetTransition(ctx context.Context, id int64) (*domain.TransitionEvent, error) {
	query := `SELECT id, state, at_unix_nano FROM transitions WHERE id = $1`

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
		WHERE at_unix_nano >= $1 AND at_unix_nano < $2
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

	if _, err := r.db.ExecContext(ctx, `DELETE FROM transitions WHERE at_unix_nano < $1`, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("failed to delete old transitions: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (r *Repository) Close() error {
	return r.db.Close()
}

func scanTransition(row interface{ Scan(dest ...any) error }) (*domain.TransitionEvent, error) {
	var event domain.TransitionEvent
	var state string
	var at int64

	if err := row.Scan(&event.ID, &state, &at); err != nil {
		return nil, err
	}

	event.State = domain.State(state)
	event.At = time.Unix(0, at)
	return &event, nil
}
