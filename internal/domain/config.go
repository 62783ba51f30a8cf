package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// MinDurationDays and MaxDurationDays bound the calendar horizon
	MinDurationDays = 1
	MaxDurationDays = 9999

	// cycleEpsilon replaces a non-positive cycle length so modulo and
	// division stay defined. It is not a meaningful cycle.
	cycleEpsilon = 1e-7

	// StartLayout is the layout used when a start instant is exported
	StartLayout = "2006-01-02T15:04"
)

// startLayouts lists every accepted start date format, most specific first
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	StartLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Record is the persisted and transferable shape of a schedule.
// It mirrors user input verbatim and may be invalid.
type Record struct {
	StartDate    string  `json:"startDate" yaml:"startDate"`
	LightHours   float64 `json:"lightHours" yaml:"lightHours"`
	DarkHours    float64 `json:"darkHours" yaml:"darkHours"`
	DurationDays int     `json:"durationDays" yaml:"durationDays"`
}

// CycleConfig is an immutable photoperiod definition.
// Build one with NewCycleConfig or Validate; edits replace it wholesale.
type CycleConfig struct {
	start        time.Time
	lightHours   float64
	darkHours    float64
	durationDays int
}

// NewCycleConfig creates a config, clamping durationDays to [1, 9999].
// Hours are stored as given; negative values are caught by Validate.
func NewCycleConfig(start time.Time, lightHours, darkHours float64, durationDays int) CycleConfig {
	return CycleConfig{
		start:        start,
		lightHours:   lightHours,
		darkHours:    darkHours,
		durationDays: ClampDurationDays(durationDays),
	}
}

// Start returns the configured start instant
func (c CycleConfig) Start() time.Time { return c.start }

// LightHours returns the light portion of one super-cycle
func (c CycleConfig) LightHours() float64 { return c.lightHours }

// DarkHours returns the dark portion of one super-cycle
func (c CycleConfig) DarkHours() float64 { return c.darkHours }

// DurationDays returns the clamped calendar horizon
func (c CycleConfig) DurationDays() int { return c.durationDays }

// CycleLength returns light + dark hours, or a tiny positive epsilon when
// that sum is not positive.
func (c CycleConfig) CycleLength() float64 {
	length := c.lightHours + c.darkHours
	if length <= 0 {
		return cycleEpsilon
	}
	return length
}

// LightRatio returns the fraction of each cycle spent in light
func (c CycleConfig) LightRatio() float64 {
	return c.lightHours / c.CycleLength()
}

// Record converts the config back to its transferable shape
func (c CycleConfig) Record() Record {
	return Record{
		StartDate:    c.start.Format(StartLayout),
		LightHours:   c.lightHours,
		DarkHours:    c.darkHours,
		DurationDays: c.durationDays,
	}
}

// ClampDurationDays limits a horizon to [MinDurationDays, MaxDurationDays]
func ClampDurationDays(days int) int {
	if days < MinDurationDays {
		return MinDurationDays
	}
	if days > MaxDurationDays {
		return MaxDurationDays
	}
	return days
}

// ParseStart parses a local date-time string in any accepted layout.
// Strings without an offset are interpreted in loc.
func ParseStart(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrMissingStart
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateFormat, value)
}

// Validate checks a record and builds its config.
// The first violated rule wins: start present, start parseable, light >= 0,
// dark >= 0, duration >= 1. NaN and infinite hours count as negative.
// Validate never modifies rec.
func Validate(rec Record, loc *time.Location) (CycleConfig, error) {
	start, err := ParseStart(rec.StartDate, loc)
	if err != nil {
		return CycleConfig{}, err
	}
	if !validHours(rec.LightHours) {
		return CycleConfig{}, fmt.Errorf("%w: got %g", ErrNegativeLight, rec.LightHours)
	}
	if !validHours(rec.DarkHours) {
		return CycleConfig{}, fmt.Errorf("%w: got %g", ErrNegativeDark, rec.DarkHours)
	}
	if rec.DurationDays < MinDurationDays {
		return CycleConfig{}, fmt.Errorf("%w: got %d", ErrDurationBelowMinimum, rec.DurationDays)
	}
	return NewCycleConfig(start, rec.LightHours, rec.DarkHours, rec.DurationDays), nil
}

// Resolve builds a best-effort config for evaluation even when rec is invalid.
// A missing or unparseable start falls back to fallbackStart; everything else
// relies on the duration clamp and the cycle length epsilon, except NaN and
// infinite hours, which are replaced by 0.
// The returned error is the validation result.
func Resolve(rec Record, loc *time.Location, fallbackStart time.Time) (CycleConfig, error) {
	cfg, err := Validate(rec, loc)
	if err == nil {
		return cfg, nil
	}

	start, perr := ParseStart(rec.StartDate, loc)
	if perr != nil {
		start = fallbackStart
	}
	return NewCycleConfig(start, finiteOrZero(rec.LightHours), finiteOrZero(rec.DarkHours), rec.DurationDays), err
}

// CheckFinite rejects records whose hours are NaN or infinite. Such records
// cannot be stored or encoded as JSON, so writers refuse them outright.
// The error wraps ErrNegativeLight or ErrNegativeDark.
func CheckFinite(rec Record) error {
	if !isFinite(rec.LightHours) {
		return fmt.Errorf("%w: got %g", ErrNegativeLight, rec.LightHours)
	}
	if !isFinite(rec.DarkHours) {
		return fmt.Errorf("%w: got %g", ErrNegativeDark, rec.DarkHours)
	}
	return nil
}

func validHours(h float64) bool {
	return h >= 0 && !math.IsInf(h, 1)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrZero(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}
