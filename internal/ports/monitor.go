package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
)

// MonitorOptions configures a Monitor
type MonitorOptions struct {
	Interval  time.Duration  // evaluation cadence
	Retention time.Duration  // how long transition events are kept
	Location  *time.Location // location for parsing start dates
}

// Monitor keeps the live schedule and re-evaluates it on every tick and on
// every config change. Editors only swap the record and notify the Start
// loop, which owns re-evaluation once Init has run.
type Monitor struct {
	clock       Clock
	configs     domain.ConfigRepository
	transitions domain.TransitionRepository
	opts        MonitorOptions

	publishers []TransitionPublisher
	sinks      []EvaluationSink

	changed chan struct{}
	editMu  sync.Mutex // serializes UpdateConfig and ImportConfig

	mu      sync.RWMutex
	record  domain.Record
	latest  domain.Evaluation
	started bool
}

// NewMonitor creates a monitor; call Init before Start
func NewMonitor(clock Clock, configs domain.ConfigRepository, transitions domain.TransitionRepository, opts MonitorOptions) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Monitor{
		clock:       clock,
		configs:     configs,
		transitions: transitions,
		opts:        opts,
		changed:     make(chan struct{}, 1),
	}
}

// AddPublisher registers a transition publisher. Not safe after Start.
func (m *Monitor) AddPublisher(p TransitionPublisher) {
	m.publishers = append(m.publishers, p)
}

// AddSink registers an evaluation sink. Not safe after Start.
func (m *Monitor) AddSink(s EvaluationSink) {
	m.sinks = append(m.sinks, s)
}

// Init loads the stored record, or stores seed when there is none,
// and runs the first evaluation.
func (m *Monitor) Init(ctx context.Context, seed domain.Record) error {
	rec, err := m.configs.LoadConfig(ctx)
	if errors.Is(err, domain.ErrConfigNotFound) {
		log.Info().Msg("no stored config, using seed")
		if err := domain.CheckFinite(seed); err != nil {
			return fmt.Errorf("seed config: %w", err)
		}
		rec = seed
		if err := m.configs.SaveConfig(ctx, rec); err != nil {
			return fmt.Errorf("save seed config: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m.mu.Lock()
	m.record = rec
	m.mu.Unlock()

	m.Refresh(ctx)
	return nil
}

// Start re-evaluates on every tick or config change.
// This runs in a goroutine until context is cancelled
func (m *Monitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", m.opts.Interval).
		Msg("starting photoperiod monitor")

	ticker := m.clock.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	cleanupTicker := m.clock.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ticker.C():
			m.Refresh(ctx)

		case <-m.changed:
			log.Debug().Msg("config changed, re-evaluating")
			m.Refresh(ctx)

		case <-cleanupTicker.C():
			m.cleanup(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping photoperiod monitor")
			return
		}
	}
}

// Refresh evaluates the live record at the current instant, hands the result
// to every sink and records a transition when the state flipped.
func (m *Monitor) Refresh(ctx context.Context) domain.Evaluation {
	now := m.clock.Now()

	m.mu.RLock()
	rec := m.record
	prev, hadPrev := m.latest, m.started
	m.mu.RUnlock()

	ev := domain.Evaluate(rec, now, m.opts.Location)

	m.mu.Lock()
	m.latest = ev
	m.started = true
	m.mu.Unlock()

	log.Debug().
		Str("state", string(ev.Phase.State())).
		Float64("position", ev.Phase.PositionInCycle).
		Float64("balance", ev.EnergyBalance).
		Time("next_at", ev.NextTransition.DisplayInstant()).
		Msg("evaluated photoperiod")

	if !ev.Valid() {
		log.Warn().Str("problem", ev.ValidationError).Msg("evaluating invalid config with defaults")
	}

	for _, s := range m.sinks {
		s.PublishEvaluation(ev)
	}

	if event, ok := m.detectTransition(ctx, prev, hadPrev, ev); ok {
		m.recordTransition(ctx, event)
	}

	return ev
}

// detectTransition compares ev with the previous evaluation, or with the last
// stored event right after startup. With no stored event at all the current
// state is announced once as an Initial event so subscribers learn it without
// waiting for the next switch.
func (m *Monitor) detectTransition(ctx context.Context, prev domain.Evaluation, hadPrev bool, ev domain.Evaluation) (domain.TransitionEvent, bool) {
	state := ev.Phase.State()
	event := domain.TransitionEvent{State: state, At: ev.AsOf}

	if !hadPrev {
		last, err := m.transitions.GetLatestTransition(ctx)
		switch {
		case err == nil:
			return event, last.State != state
		case errors.Is(err, domain.ErrTransitionNotFound):
			event.Initial = true
		default:
			log.Error().Err(err).Msg("failed to get latest transition")
		}
		return event, true
	}

	if prev.Phase.State() == state {
		return event, false
	}

	// Same schedule: the switch happened at the predicted instant
	predicted := prev.NextTransition
	if prev.Record == ev.Record && predicted.NextState == state &&
		predicted.AtInstant.After(prev.AsOf) && !predicted.AtInstant.After(ev.AsOf) {
		event.At = predicted.AtInstant
	}
	return event, true
}

func (m *Monitor) recordTransition(ctx context.Context, event domain.TransitionEvent) {
	if err := m.transitions.SaveTransition(ctx, &event); err != nil {
		log.Error().Err(err).Msg("failed to save transition")
	}

	msg := "light state changed"
	if event.Initial {
		msg = "announced initial light state"
	}
	log.Info().
		Str("state", string(event.State)).
		Time("at", event.At).
		Msg(msg)

	for _, p := range m.publishers {
		if err := p.PublishTransition(ctx, event); err != nil {
			log.Error().Err(err).Msg("failed to publish transition")
		}
	}
}

func (m *Monitor) cleanup(ctx context.Context) {
	if err := m.transitions.DeleteOldTransitions(ctx, m.clock.Now(), m.opts.Retention); err != nil {
		log.Error().Err(err).Msg("failed to delete old transitions")
		return
	}
	log.Info().Dur("retention", m.opts.Retention).Msg("deleted old transitions")
}

// Snapshot returns the latest evaluation
func (m *Monitor) Snapshot() domain.Evaluation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Config returns the live record
func (m *Monitor) Config() domain.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record
}

// Location returns the location start dates are parsed in
func (m *Monitor) Location() *time.Location {
	return m.opts.Location
}

// Now returns the monitor clock's current instant
func (m *Monitor) Now() time.Time {
	return m.clock.Now()
}

// UpdateConfig replaces the live record wholesale. Invalid records are
// accepted; the returned evaluation carries the validation problem.
// Records with NaN or infinite hours cannot be stored and are refused.
func (m *Monitor) UpdateConfig(ctx context.Context, rec domain.Record) (domain.Evaluation, error) {
	if err := domain.CheckFinite(rec); err != nil {
		return domain.Evaluation{}, err
	}

	m.editMu.Lock()
	defer m.editMu.Unlock()

	if err := m.replace(ctx, rec); err != nil {
		return domain.Evaluation{}, err
	}
	return domain.Evaluate(rec, m.clock.Now(), m.opts.Location), nil
}

func (m *Monitor) replace(ctx context.Context, rec domain.Record) error {
	if err := m.configs.SaveConfig(ctx, rec); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	m.mu.Lock()
	m.record = rec
	m.mu.Unlock()

	m.notify()
	return nil
}

// ImportConfig merges a JSON or YAML payload into the live record.
// A malformed payload leaves the live record untouched.
func (m *Monitor) ImportConfig(ctx context.Context, payload []byte) (transfer.Result, error) {
	m.editMu.Lock()
	defer m.editMu.Unlock()

	res, err := transfer.Import(m.Config(), payload, m.opts.Location)
	if err != nil {
		return res, err
	}
	if len(res.Applied) == 0 {
		return res, nil
	}

	if err := m.replace(ctx, res.Record); err != nil {
		return transfer.Result{Record: m.Config()}, err
	}

	log.Info().Strs("fields", res.Applied).Msg("imported config")
	return res, nil
}

// ExportConfig encodes the live record verbatim
func (m *Monitor) ExportConfig(format transfer.Format) ([]byte, error) {
	return transfer.Export(m.Config(), format)
}

// Transitions returns stored events in [start, end)
func (m *Monitor) Transitions(ctx context.Context, start, end time.Time) ([]*domain.TransitionEvent, error) {
	return m.transitions.GetTransitionsInRange(ctx, start, end)
}

// notify wakes the Start loop without blocking; one pending signal is enough
func (m *Monitor) notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}
