// Package view holds the JSON shape of an evaluation shared by every
// outward surface (gRPC, HTTP, WebSocket).
package view

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
)

type PhasePayload struct {
	ElapsedHours    float64 `json:"elapsed_hours"`
	PositionInCycle float64 `json:"position_in_cycle"`
	State           string  `json:"state"`
}

type NextTransitionPayload struct {
	HoursToNext float64 `json:"hours_to_next"`
	NextState   string  `json:"next_state"`
	At          string  `json:"at"`
}

type ElapsedPayload struct {
	Days    int    `json:"days"`
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Display string `json:"display"`
}

type CellPayload struct {
	Day  int `json:"day"`
	Hour int `json:"hour"`
}

// RowPayload is one calendar day; Pattern has 24 characters, '1' for light.
type RowPayload struct {
	Date    string `json:"date"`
	Pattern string `json:"pattern"`
}

type CalendarPayload struct {
	StartOfDay  string       `json:"start_of_day"`
	CurrentCell *CellPayload `json:"current_cell"`
	Rows        []RowPayload `json:"rows"`
}

// Evaluation is the JSON view of a domain.Evaluation.
type Evaluation struct {
	AsOf            string                `json:"as_of"`
	Config          domain.Record         `json:"config"`
	Valid           bool                  `json:"valid"`
	ValidationError string                `json:"validation_error,omitempty"`
	ValidationKind  string                `json:"validation_kind,omitempty"`
	Phase           PhasePayload          `json:"phase"`
	EnergyBalance   float64               `json:"energy_balance"`
	NextTransition  NextTransitionPayload `json:"next_transition"`
	Elapsed         ElapsedPayload        `json:"elapsed"`
	Calendar        CalendarPayload       `json:"calendar"`
}

// NewEvaluation converts an evaluation for the wire.
// JSON has no NaN or infinity, so such hours in the record are sent as 0;
// the validation error still names the rejected value.
func NewEvaluation(ev domain.Evaluation) Evaluation {
	p := Evaluation{
		AsOf:            ev.AsOf.Format(time.RFC3339),
		Config:          encodableRecord(ev.Record),
		Valid:           ev.Valid(),
		ValidationError: ev.ValidationError,
		ValidationKind:  ev.ValidationKind,
		Phase: PhasePayload{
			ElapsedHours:    ev.Phase.ElapsedHours,
			PositionInCycle: ev.Phase.PositionInCycle,
			State:           string(ev.Phase.State()),
		},
		EnergyBalance: ev.EnergyBalance,
		NextTransition: NextTransitionPayload{
			HoursToNext: ev.NextTransition.HoursToNext,
			NextState:   string(ev.NextTransition.NextState),
			At:          ev.NextTransition.DisplayInstant().Format(time.RFC3339),
		},
		Elapsed: ElapsedPayload{
			Days:    ev.Elapsed.Days,
			Hours:   ev.Elapsed.Hours,
			Minutes: ev.Elapsed.Minutes,
			Display: ev.Elapsed.Display,
		},
		Calendar: CalendarPayload{
			StartOfDay: ev.Calendar.StartOfDay.Format(time.RFC3339),
			Rows:       make([]RowPayload, len(ev.Calendar.Rows)),
		},
	}

	if ref, ok := ev.Calendar.CurrentCell(ev.AsOf); ok {
		p.Calendar.CurrentCell = &CellPayload{Day: ref.DayIndex, Hour: ref.HourIndex}
	}
	for i, row := range ev.Calendar.Rows {
		p.Calendar.Rows[i] = RowPayload{
			Date:    row.DateLabel.Format("2006-01-02"),
			Pattern: RowPattern(row),
		}
	}
	return p
}

func encodableRecord(rec domain.Record) domain.Record {
	if math.IsNaN(rec.LightHours) || math.IsInf(rec.LightHours, 0) {
		rec.LightHours = 0
	}
	if math.IsNaN(rec.DarkHours) || math.IsInf(rec.DarkHours, 0) {
		rec.DarkHours = 0
	}
	return rec
}

// RowPattern renders a row as 24 characters, '1' for light and '0' for dark.
func RowPattern(row domain.CalendarRow) string {
	var b strings.Builder
	b.Grow(len(row.Cells))
	for _, c := range row.Cells {
		if c.IsLight {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ToMap converts any view value to a generic map, e.g. for structpb.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal view: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal view: %w", err)
	}
	return m, nil
}

// Transition is the JSON view of a stored transition event.
type Transition struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
	At    string `json:"at"`
}

// NewTransitions converts stored events for the wire.
func NewTransitions(events []*domain.TransitionEvent) []Transition {
	out := make([]Transition, len(events))
	for i, e := range events {
		out[i] = Transition{ID: e.ID, State: string(e.State), At: e.At.Format(time.RFC3339)}
	}
	return out
}

// Validation is the JSON view of a validation result.
type Validation struct {
	Valid   bool   `json:"valid"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewValidation reports err, the first violated rule, or success when nil.
func NewValidation(err error) Validation {
	if err == nil {
		return Validation{Valid: true}
	}
	return Validation{Kind: domain.ErrorKind(err), Message: err.Error()}
}
