package domain

import (
	"math"
	"time"
)

// HoursPerDay is the number of cells in every calendar row
const HoursPerDay = 24

// CalendarCell is the light state of one hour of one calendar day
type CalendarCell struct {
	DayIndex  int
	HourIndex int
	IsLight   bool
	DateLabel time.Time
}

// State returns the cell's light state
func (c CalendarCell) State() State { return StateOf(c.IsLight) }

// CalendarRow is one calendar day of exactly 24 cells
type CalendarRow struct {
	DayIndex  int
	DateLabel time.Time
	Cells     []CalendarCell
}

// LightHours counts the light cells of the row
func (r CalendarRow) LightHours() int {
	n := 0
	for _, c := range r.Cells {
		if c.IsLight {
			n++
		}
	}
	return n
}

// CalendarGrid is the day x hour light/dark grid anchored at local midnight
// of the day containing the start instant.
type CalendarGrid struct {
	StartOfDay time.Time
	Rows       []CalendarRow
}

// StartOfDay returns local midnight of the day containing t
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FractionalStartOffset returns the hour-of-day of t including minutes and seconds
func FractionalStartOffset(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// BuildCalendar builds durationDays rows of 24 cells.
// durationDays is clamped to [1, 9999]. A cell (d, h) covers the hour starting
// d*24+h hours after start-of-day, so it is tested at elapsed hours
// d*24 + h - fractionalStartOffset: the same phase Phase reports at that instant.
func BuildCalendar(cfg CycleConfig, durationDays int) CalendarGrid {
	days := ClampDurationDays(durationDays)
	sod := StartOfDay(cfg.Start())
	frac := FractionalStartOffset(cfg.Start())

	rows := make([]CalendarRow, days)
	for d := 0; d < days; d++ {
		label := sod.AddDate(0, 0, d)
		cells := make([]CalendarCell, HoursPerDay)
		for h := 0; h < HoursPerDay; h++ {
			offset := float64(d*HoursPerDay+h) - frac
			cells[h] = CalendarCell{
				DayIndex:  d,
				HourIndex: h,
				IsLight:   PhaseAt(cfg, offset).IsLight,
				DateLabel: label,
			}
		}
		rows[d] = CalendarRow{DayIndex: d, DateLabel: label, Cells: cells}
	}

	return CalendarGrid{StartOfDay: sod, Rows: rows}
}

// CellRef addresses one cell of a grid
type CellRef struct {
	DayIndex  int
	HourIndex int
}

// CurrentCell returns the cell containing asOf, measured in hours from the
// grid's start-of-day. ok is false when asOf falls outside the grid.
func (g CalendarGrid) CurrentCell(asOf time.Time) (ref CellRef, ok bool) {
	hours := math.Floor(hoursBetween(g.StartOfDay, asOf))
	if hours < 0 || hours >= float64(len(g.Rows)*HoursPerDay) {
		return CellRef{}, false
	}
	n := int(hours)
	return CellRef{DayIndex: n / HoursPerDay, HourIndex: n % HoursPerDay}, true
}

// LightHoursPerDay returns the light cell count of every row
func (g CalendarGrid) LightHoursPerDay() []int {
	counts := make([]int, len(g.Rows))
	for i, r := range g.Rows {
		counts[i] = r.LightHours()
	}
	return counts
}
