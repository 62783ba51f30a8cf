package domain

import (
	"math"
	"time"
)

// NextTransition describes the next ON/OFF switch after an instant
type NextTransition struct {
	HoursToNext float64
	NextState   State
	AtInstant   time.Time
}

// DisplayInstant returns the switch instant rounded to the nearest minute
func (t NextTransition) DisplayInstant() time.Time {
	return t.AtInstant.Round(time.Minute)
}

// PredictNextTransition computes when the phase at asOf next changes state.
// Non-finite or negative intervals from floating point boundary cases become 0.
func PredictNextTransition(phase CyclePhase, cfg CycleConfig, asOf time.Time) NextTransition {
	var hours float64
	var next State
	if phase.IsLight {
		hours = cfg.LightHours() - phase.PositionInCycle
		next = StateDark
	} else {
		hours = cfg.CycleLength() - phase.PositionInCycle
		next = StateLight
	}

	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours < 0 {
		hours = 0
	}

	return NextTransition{
		HoursToNext: hours,
		NextState:   next,
		AtInstant:   addHours(asOf, hours),
	}
}

const (
	// maxDurationHours stays below the ~2.56e6 hours a time.Duration can hold
	maxDurationHours = 2.5e6

	// maxAddSeconds caps spans too long for any calendar
	maxAddSeconds = float64(1 << 60)
)

// addHours moves t forward by a non-negative number of hours. Spans beyond
// time.Duration are added as whole seconds so the result never wraps
// around to before t.
func addHours(t time.Time, hours float64) time.Time {
	if hours < maxDurationHours {
		return t.Add(time.Duration(hours * float64(time.Hour)))
	}

	secs := math.Floor(hours * 3600)
	nanos := int64((hours*3600 - secs) * 1e9)
	if secs > maxAddSeconds {
		secs, nanos = maxAddSeconds, 0
	}
	return time.Unix(t.Unix()+int64(secs), int64(t.Nanosecond())+nanos).In(t.Location())
}

// TransitionEvent is an observed change of light state.
// Initial marks the first state announced on an empty history: nothing
// switched, the state simply became known. It is not persisted.
type TransitionEvent struct {
	ID      int64
	State   State
	At      time.Time
	Initial bool
}
