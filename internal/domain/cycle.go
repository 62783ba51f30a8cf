package domain

import (
	"math"
	"time"
)

// State is the light state of a schedule at some instant
type State string

const (
	StateLight State = "ON"
	StateDark  State = "OFF"
)

// StateOf maps the boolean cycle test to a State
func StateOf(isLight bool) State {
	if isLight {
		return StateLight
	}
	return StateDark
}

// IsLight reports whether s is the light state
func (s State) IsLight() bool { return s == StateLight }

// Opposite returns the state a transition out of s leads to
func (s State) Opposite() State {
	if s == StateLight {
		return StateDark
	}
	return StateLight
}

// CyclePhase locates an instant within the schedule
type CyclePhase struct {
	ElapsedHours    float64 // negative before the start instant
	PositionInCycle float64 // always in [0, cycleLength)
	IsLight         bool
}

// State returns the phase's light state
func (p CyclePhase) State() State { return StateOf(p.IsLight) }

// ElapsedHours returns the signed number of hours from the start instant to asOf
func ElapsedHours(cfg CycleConfig, asOf time.Time) float64 {
	return hoursBetween(cfg.Start(), asOf)
}

// hoursBetween is to.Sub(from).Hours() without the ~292 year saturation
// of time.Duration.
func hoursBetween(from, to time.Time) float64 {
	secs := float64(to.Unix() - from.Unix())
	nanos := float64(to.Nanosecond() - from.Nanosecond())
	return secs/3600 + nanos/3.6e12
}

// PositionInCycle floor-modulos elapsed hours into [0, cycleLength).
// Pre-start (negative) elapsed hours wrap backwards from the start instant.
func PositionInCycle(elapsedHours, cycleLength float64) float64 {
	pos := math.Mod(math.Mod(elapsedHours, cycleLength)+cycleLength, cycleLength)
	if pos < 0 || pos >= cycleLength || math.IsNaN(pos) {
		return 0
	}
	return pos
}

// IsLight reports whether a cycle position falls in the light phase.
// The boundary position itself belongs to the dark phase.
func IsLight(position, lightHours float64) bool {
	return position < lightHours
}

// PhaseAt evaluates the cycle at a given number of elapsed hours
func PhaseAt(cfg CycleConfig, elapsedHours float64) CyclePhase {
	pos := PositionInCycle(elapsedHours, cfg.CycleLength())
	return CyclePhase{
		ElapsedHours:    elapsedHours,
		PositionInCycle: pos,
		IsLight:         IsLight(pos, cfg.LightHours()),
	}
}

// Phase evaluates the cycle at asOf
func Phase(cfg CycleConfig, asOf time.Time) CyclePhase {
	return PhaseAt(cfg, ElapsedHours(cfg, asOf))
}
