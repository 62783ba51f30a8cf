package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// ElapsedBreakdown is elapsed time split into whole days, hours and minutes
type ElapsedBreakdown struct {
	Days    int
	Hours   int
	Minutes int
	Display string
}

// FormatElapsed decomposes elapsed hours into days, hours and minutes.
//
// Display rules: days appear when non-zero; hours appear when non-zero or
// when there are no days but some minutes (so "0 h 30 m" is possible);
// minutes appear only when days and hours are both zero. An empty
// composition, including any negative input, displays "0 d".
func FormatElapsed(elapsedHours float64) ElapsedBreakdown {
	if elapsedHours < 0 || math.IsNaN(elapsedHours) {
		return ElapsedBreakdown{Display: "0 d"}
	}

	total := int64(math.Floor(elapsedHours * minutesPerHour))
	b := ElapsedBreakdown{
		Days:    int(total / minutesPerDay),
		Hours:   int(total % minutesPerDay / minutesPerHour),
		Minutes: int(total % minutesPerHour),
	}

	var parts []string
	if b.Days > 0 {
		parts = append(parts, fmt.Sprintf("%d d", b.Days))
	}
	if b.Hours > 0 || (b.Days == 0 && b.Minutes > 0) {
		parts = append(parts, fmt.Sprintf("%d h", b.Hours))
	}
	if b.Minutes > 0 && b.Days == 0 && b.Hours == 0 {
		parts = append(parts, fmt.Sprintf("%d m", b.Minutes))
	}

	if len(parts) == 0 {
		b.Display = "0 d"
	} else {
		b.Display = strings.Join(parts, " ")
	}
	return b
}
