package domain

import "time"

// Evaluation is every derived value of a schedule at one instant.
// It is rebuilt from scratch on each call and never patched.
type Evaluation struct {
	Record          Record
	Config          CycleConfig
	AsOf            time.Time
	Phase           CyclePhase
	Calendar        CalendarGrid
	EnergyBalance   float64
	NextTransition  NextTransition
	Elapsed         ElapsedBreakdown
	ValidationError string // empty when Record is valid
	ValidationKind  string // e.g. "NegativeLight"; empty when Record is valid
}

// Valid reports whether the evaluated record passed validation
func (e Evaluation) Valid() bool { return e.ValidationError == "" }

// Evaluate derives phase, calendar, balance, next transition and elapsed
// breakdown for rec at asOf. It always returns a renderable result: an
// invalid record is evaluated with best-effort defaults and its first
// validation problem is reported in ValidationError.
func Evaluate(rec Record, asOf time.Time, loc *time.Location) Evaluation {
	cfg, err := Resolve(rec, loc, asOf)
	ev := EvaluateConfig(cfg, asOf)
	ev.Record = rec
	if err != nil {
		ev.ValidationError = err.Error()
		ev.ValidationKind = ErrorKind(err)
	}
	return ev
}

// EvaluateConfig derives every value for an already built config
func EvaluateConfig(cfg CycleConfig, asOf time.Time) Evaluation {
	phase := Phase(cfg, asOf)
	return Evaluation{
		Record:         cfg.Record(),
		Config:         cfg,
		AsOf:           asOf,
		Phase:          phase,
		Calendar:       BuildCalendar(cfg, cfg.DurationDays()),
		EnergyBalance:  EnergyBalance(cfg, phase.ElapsedHours),
		NextTransition: PredictNextTransition(phase, cfg, asOf),
		Elapsed:        FormatElapsed(phase.ElapsedHours),
	}
}
