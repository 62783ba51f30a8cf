package domain

import (
	"math"
	"testing"
	"time"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPositionInCycle_Range(t *testing.T) {
	lengths := []float64{24, 27, 0.5, 1e-7, 36.25}
	elapsed := []float64{-1000.3, -27, -13, -0.0001, 0, 0.0001, 12, 13, 26.9999, 27, 54, 1e6 + 0.7}

	for _, length := range lengths {
		for _, e := range elapsed {
			pos := PositionInCycle(e, length)
			if pos < 0 || pos >= length {
				t.Errorf("PositionInCycle(%v, %v) = %v, want in [0, %v)", e, length, pos, length)
			}
		}
	}
}

func TestPositionInCycle_Values(t *testing.T) {
	tests := []struct {
		name    string
		elapsed float64
		length  float64
		want    float64
	}{
		{name: "at start", elapsed: 0, length: 24, want: 0},
		{name: "within first cycle", elapsed: 5, length: 24, want: 5},
		{name: "wraps after one cycle", elapsed: 29, length: 24, want: 5},
		{name: "one hour before start", elapsed: -1, length: 24, want: 23},
		{name: "two cycles before start", elapsed: -54, length: 27, want: 0},
		{name: "long cycle before start", elapsed: -10, length: 27, want: 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionInCycle(tt.elapsed, tt.length); got != tt.want {
				t.Errorf("PositionInCycle(%v, %v) = %v, want %v", tt.elapsed, tt.length, got, tt.want)
			}
		})
	}
}

func TestIsLight_AtZero(t *testing.T) {
	tests := []struct {
		light float64
		want  bool
	}{
		{light: 0, want: false},
		{light: 0.01, want: true},
		{light: 12, want: true},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := IsLight(0, tt.light); got != tt.want {
				t.Errorf("IsLight(0, %v) = %v, want %v", tt.light, got, tt.want)
			}
		})
	}
}

func TestPhase_BoundaryBelongsToDark(t *testing.T) {
	cfg := NewCycleConfig(jan1, 13, 14, 3)

	phase := Phase(cfg, jan1.Add(13*time.Hour))
	if phase.IsLight {
		t.Errorf("expected dark at the 13h boundary, got light (position %v)", phase.PositionInCycle)
	}
	if phase.State() != StateDark {
		t.Errorf("State() = %v, want %v", phase.State(), StateDark)
	}

	justBefore := Phase(cfg, jan1.Add(13*time.Hour-time.Second))
	if !justBefore.IsLight {
		t.Error("expected light one second before the boundary")
	}

	nextCycle := Phase(cfg, jan1.Add(27*time.Hour))
	if !nextCycle.IsLight || nextCycle.PositionInCycle != 0 {
		t.Errorf("expected light at position 0 of the second cycle, got %+v", nextCycle)
	}
}

func TestPhase_BeforeStart(t *testing.T) {
	cfg := NewCycleConfig(jan1, 12, 12, 1)

	phase := Phase(cfg, jan1.Add(-2*time.Hour))
	if phase.ElapsedHours != -2 {
		t.Errorf("expected elapsed -2, got %v", phase.ElapsedHours)
	}
	if phase.PositionInCycle != 22 {
		t.Errorf("expected position 22, got %v", phase.PositionInCycle)
	}
	if phase.IsLight {
		t.Error("expected dark two hours before a 12/12 start")
	}
}

func TestPhase_CenturiesApart(t *testing.T) {
	// 154863 days separate 1600-01-01 and 2024-01-01
	const days = 154863

	tests := []struct {
		name        string
		start       time.Time
		asOf        time.Time
		wantElapsed float64
		wantPos     float64
		wantLight   bool
	}{
		{
			name:        "start long ago",
			start:       time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
			asOf:        time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
			wantElapsed: days*24 + 18,
			wantPos:     18,
		},
		{
			name:        "asOf long before start",
			start:       jan1,
			asOf:        time.Date(1600, 1, 1, 6, 0, 0, 0, time.UTC),
			wantElapsed: -days*24 + 6,
			wantPos:     6,
			wantLight:   true,
		},
		{
			name:        "sub-second remainder",
			start:       time.Date(1600, 1, 1, 0, 0, 0, 500_000_000, time.UTC),
			asOf:        time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
			wantElapsed: days*24 + 3 - 0.5/3600,
			wantPos:     3 - 0.5/3600,
			wantLight:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase := Phase(NewCycleConfig(tt.start, 12, 12, 1), tt.asOf)
			if math.Abs(phase.ElapsedHours-tt.wantElapsed) > 1e-6 {
				t.Errorf("ElapsedHours = %v, want %v", phase.ElapsedHours, tt.wantElapsed)
			}
			if math.Abs(phase.PositionInCycle-tt.wantPos) > 1e-6 {
				t.Errorf("PositionInCycle = %v, want %v", phase.PositionInCycle, tt.wantPos)
			}
			if phase.IsLight != tt.wantLight {
				t.Errorf("IsLight = %v, want %v", phase.IsLight, tt.wantLight)
			}
		})
	}
}

func TestPhase_ZeroLengthCycle(t *testing.T) {
	cfg := NewCycleConfig(jan1, 0, 0, 1)

	if cfg.CycleLength() != cycleEpsilon {
		t.Fatalf("expected epsilon cycle length, got %v", cfg.CycleLength())
	}

	for _, h := range []float64{-5, 0, 0.5, 13, 1000} {
		if PhaseAt(cfg, h).IsLight {
			t.Errorf("expected dark at %v hours for an empty cycle", h)
		}
	}
}

func TestState_Opposite(t *testing.T) {
	if StateLight.Opposite() != StateDark || StateDark.Opposite() != StateLight {
		t.Error("Opposite() should swap ON and OFF")
	}
	if StateOf(true) != StateLight || StateOf(false) != StateDark {
		t.Error("StateOf() mapping is wrong")
	}
	if !StateLight.IsLight() || StateDark.IsLight() {
		t.Error("IsLight() mapping is wrong")
	}
}
