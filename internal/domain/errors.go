package domain

import "errors"

var (
	// ErrMissingStart indicates the schedule has no start instant
	ErrMissingStart = errors.New("start date is required")

	// ErrInvalidDateFormat indicates the start instant could not be parsed
	ErrInvalidDateFormat = errors.New("start date has an invalid format")

	// ErrNegativeLight indicates light hours below zero, NaN or infinite
	ErrNegativeLight = errors.New("light hours must be a finite number of at least 0")

	// ErrNegativeDark indicates dark hours below zero, NaN or infinite
	ErrNegativeDark = errors.New("dark hours must be a finite number of at least 0")

	// ErrDurationBelowMinimum indicates fewer than one calendar day was requested
	ErrDurationBelowMinimum = errors.New("duration must be at least 1 day")

	// ErrMalformedImportPayload indicates an import source that could not be parsed at all
	ErrMalformedImportPayload = errors.New("malformed import payload")

	// ErrConfigNotFound indicates no configuration has been stored yet
	ErrConfigNotFound = errors.New("config not found")

	// ErrTransitionNotFound indicates requested transition doesn't exist
	ErrTransitionNotFound = errors.New("transition not found")
)

// Error kinds reported to collaborators that display validation problems.
const (
	KindMissingStart           = "MissingStart"
	KindInvalidDateFormat      = "InvalidDateFormat"
	KindNegativeLight          = "NegativeLight"
	KindNegativeDark           = "NegativeDark"
	KindDurationBelowMinimum   = "DurationBelowMinimum"
	KindMalformedImportPayload = "MalformedImportPayload"
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrMissingStart, KindMissingStart},
	{ErrInvalidDateFormat, KindInvalidDateFormat},
	{ErrNegativeLight, KindNegativeLight},
	{ErrNegativeDark, KindNegativeDark},
	{ErrDurationBelowMinimum, KindDurationBelowMinimum},
	{ErrMalformedImportPayload, KindMalformedImportPayload},
}

// ErrorKind returns the kind name of a validation or import error, or "" if
// err is not one of them.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}
