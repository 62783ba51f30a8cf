package ports_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/adapters/mqtt"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/ports"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed = domain.Record{StartDate: "2024-01-01T00:00", LightHours: 18, DarkHours: 6, DurationDays: 7}
)

type recordingSink struct {
	mu  sync.Mutex
	evs []domain.Evaluation
}

func (s *recordingSink) PublishEvaluation(ev domain.Evaluation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evs = append(s.evs, ev)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evs)
}

type fixture struct {
	clock       *mock.FakeClock
	configs     *memory.ConfigRepository
	transitions *memory.TransitionRepository
	publisher   *mqtt.FakePublisher
	sink        *recordingSink
	monitor     *ports.Monitor
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	f := &fixture{
		clock:       mock.NewFakeClock(now),
		configs:     memory.NewConfigRepository(),
		transitions: memory.NewTransitionRepository(),
		publisher:   mqtt.NewFakePublisher(),
		sink:        &recordingSink{},
	}
	f.monitor = ports.NewMonitor(f.clock, f.configs, f.transitions, ports.MonitorOptions{
		Interval:  time.Minute,
		Retention: 30 * 24 * time.Hour,
		Location:  time.UTC,
	})
	f.monitor.AddPublisher(f.publisher)
	f.monitor.AddSink(f.sink)
	return f
}

func (f *fixture) storedTransitions(t *testing.T) []*domain.TransitionEvent {
	t.Helper()
	events, err := f.transitions.GetTransitionsInRange(context.Background(), time.Time{}, jan1.AddDate(1, 0, 0))
	require.NoError(t, err)
	return events
}

func TestMonitor_InitStoresSeed(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()

	require.NoError(t, f.monitor.Init(ctx, seed))

	stored, err := f.configs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed, stored)
	assert.Equal(t, seed, f.monitor.Config())

	snap := f.monitor.Snapshot()
	assert.True(t, snap.Valid())
	assert.Equal(t, domain.StateLight, snap.Phase.State())
	assert.Equal(t, 1, f.sink.count())

	// An empty history gets the current state announced once
	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.StateLight, published[0].State)
	assert.Equal(t, jan1.Add(6*time.Hour), published[0].At)
	assert.True(t, published[0].Initial)

	f.monitor.Refresh(ctx)
	assert.Len(t, f.publisher.Published(), 1, "announcement is not repeated")
}

func TestMonitor_InitPrefersStoredConfig(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()

	stored := domain.Record{StartDate: "2024-01-01T00:00", LightHours: 12, DarkHours: 12, DurationDays: 2}
	require.NoError(t, f.configs.SaveConfig(ctx, stored))

	require.NoError(t, f.monitor.Init(ctx, seed))
	assert.Equal(t, stored, f.monitor.Config())
}

func TestMonitor_InitDoesNotRepeatStoredState(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()

	require.NoError(t, f.transitions.SaveTransition(ctx, &domain.TransitionEvent{State: domain.StateLight, At: jan1}))

	require.NoError(t, f.monitor.Init(ctx, seed))
	assert.Empty(t, f.publisher.Published())
	assert.Len(t, f.storedTransitions(t), 1)
}

func TestMonitor_InitRecordsSwitchMissedWhileDown(t *testing.T) {
	f := newFixture(t, jan1.Add(20*time.Hour))
	ctx := context.Background()

	require.NoError(t, f.transitions.SaveTransition(ctx, &domain.TransitionEvent{State: domain.StateLight, At: jan1}))

	require.NoError(t, f.monitor.Init(ctx, seed))
	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, domain.StateDark, published[0].State)
	assert.False(t, published[0].Initial)
	assert.Len(t, f.storedTransitions(t), 2)
}

func TestMonitor_TransitionAtPredictedInstant(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	// Evaluated half an hour after lights went out
	f.clock.Set(jan1.Add(18*time.Hour + 30*time.Minute))
	ev := f.monitor.Refresh(ctx)
	assert.Equal(t, domain.StateDark, ev.Phase.State())

	// No change, nothing recorded
	f.clock.Set(jan1.Add(19 * time.Hour))
	f.monitor.Refresh(ctx)

	events := f.storedTransitions(t)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StateDark, events[1].State)
	assert.Equal(t, jan1.Add(18*time.Hour), events[1].At)
	published := f.publisher.Published()
	require.Len(t, published, 2)
	assert.True(t, published[0].Initial)
	assert.False(t, published[1].Initial, "a real switch is not an announcement")
	assert.Equal(t, 3, f.sink.count())
}

func TestMonitor_TransitionAfterConfigChangeUsesEvaluationInstant(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	f.clock.Set(jan1.Add(7 * time.Hour))
	_, err := f.monitor.UpdateConfig(ctx, domain.Record{StartDate: "2024-01-01T00:00", LightHours: 4, DarkHours: 4, DurationDays: 7})
	require.NoError(t, err)
	f.monitor.Refresh(ctx)

	events := f.storedTransitions(t)
	require.Len(t, events, 2)
	assert.Equal(t, domain.StateDark, events[1].State)
	assert.Equal(t, jan1.Add(7*time.Hour), events[1].At)
}

func TestMonitor_PublishFailureStillRecords(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	f.publisher.PublishError = errors.New("broker down")

	require.NoError(t, f.monitor.Init(context.Background(), seed))
	assert.Len(t, f.storedTransitions(t), 1)
	assert.Empty(t, f.publisher.Published())
}

func TestMonitor_UpdateConfigAcceptsInvalid(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	bad := domain.Record{StartDate: "2024-01-01T00:00", LightHours: -2, DarkHours: 6, DurationDays: 7}
	ev, err := f.monitor.UpdateConfig(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, domain.KindNegativeLight, ev.ValidationKind)
	assert.Equal(t, bad, ev.Record)

	stored, err := f.configs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, bad, stored)
	assert.Equal(t, bad, f.monitor.Config())
}

func TestMonitor_UpdateConfigRefusesNonFiniteHours(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	bad := domain.Record{StartDate: "2024-01-01T00:00", LightHours: 18, DarkHours: math.Inf(1), DurationDays: 7}
	_, err := f.monitor.UpdateConfig(ctx, bad)
	require.ErrorIs(t, err, domain.ErrNegativeDark)

	stored, err := f.configs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed, stored)
	assert.Equal(t, seed, f.monitor.Config())
}

func TestMonitor_InitRefusesNonFiniteSeed(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()

	err := f.monitor.Init(ctx, domain.Record{StartDate: "2024-01-01T00:00", LightHours: math.NaN(), DarkHours: 6, DurationDays: 7})
	require.ErrorIs(t, err, domain.ErrNegativeLight)

	_, err = f.configs.LoadConfig(ctx)
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestMonitor_ImportConfig(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	res, err := f.monitor.ImportConfig(ctx, []byte("durationDays: 14\nnotes: tomatoes\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{transfer.FieldDurationDays}, res.Applied)
	assert.Equal(t, 14, f.monitor.Config().DurationDays)

	stored, err := f.configs.LoadConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, stored.DurationDays)
}

func TestMonitor_ImportMalformedLeavesConfig(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	_, err := f.monitor.ImportConfig(ctx, []byte(`{"lightHours": [`))
	assert.ErrorIs(t, err, domain.ErrMalformedImportPayload)
	assert.Equal(t, seed, f.monitor.Config())
}

func TestMonitor_ExportConfig(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	require.NoError(t, f.monitor.Init(context.Background(), seed))

	out, err := f.monitor.ExportConfig(transfer.FormatJSON)
	require.NoError(t, err)

	res, err := transfer.Import(domain.Record{}, out, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, seed, res.Record)
}

func TestMonitor_StartReevaluatesOnTick(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.monitor.Init(ctx, seed))

	done := make(chan struct{})
	go func() {
		f.monitor.Start(ctx)
		close(done)
	}()

	initial := f.monitor.Snapshot().AsOf
	require.Eventually(t, func() bool {
		f.clock.Advance(time.Minute)
		return f.monitor.Snapshot().AsOf.After(initial)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}

func TestMonitor_StartReevaluatesOnConfigChange(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.monitor.Init(ctx, seed))

	go f.monitor.Start(ctx)

	updated := domain.Record{StartDate: "2024-01-01T00:00", LightHours: 2, DarkHours: 22, DurationDays: 7}
	_, err := f.monitor.UpdateConfig(ctx, updated)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.monitor.Snapshot().Record == updated
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, domain.StateDark, f.monitor.Snapshot().Phase.State())
}

func TestMonitor_StartCleansUpOldTransitions(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	old := &domain.TransitionEvent{State: domain.StateDark, At: jan1.AddDate(0, -2, 0)}
	require.NoError(t, f.transitions.SaveTransition(ctx, old))
	require.NoError(t, f.monitor.Init(ctx, seed))

	go f.monitor.Start(ctx)

	require.Eventually(t, func() bool {
		f.clock.Advance(24 * time.Hour)
		_, err := f.transitions.GetTransition(ctx, old.ID)
		return errors.Is(err, domain.ErrTransitionNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitor_Transitions(t *testing.T) {
	f := newFixture(t, jan1.Add(6*time.Hour))
	ctx := context.Background()
	require.NoError(t, f.monitor.Init(ctx, seed))

	events, err := f.monitor.Transitions(ctx, jan1, jan1.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.StateLight, events[0].State)

	events, err = f.monitor.Transitions(ctx, jan1.Add(7*time.Hour), jan1.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}
