package domain

import (
	"math"
	"testing"
	"time"
)

func TestEvaluate_ValidRecord(t *testing.T) {
	rec := Record{StartDate: "2024-01-01T00:00", LightHours: 18, DarkHours: 6, DurationDays: 7}
	asOf := jan1.Add(30*time.Hour + 15*time.Minute)

	ev := Evaluate(rec, asOf, time.UTC)

	if !ev.Valid() {
		t.Fatalf("unexpected validation error: %s", ev.ValidationError)
	}
	if ev.Record != rec {
		t.Errorf("expected record to be carried verbatim, got %+v", ev.Record)
	}
	if ev.Phase.ElapsedHours != 30.25 {
		t.Errorf("expected 30.25 elapsed hours, got %v", ev.Phase.ElapsedHours)
	}
	if !ev.Phase.IsLight {
		t.Error("expected light 6.25h into the second cycle")
	}
	if len(ev.Calendar.Rows) != 7 {
		t.Errorf("expected 7 calendar rows, got %d", len(ev.Calendar.Rows))
	}
	if ev.EnergyBalance != -7.5625 {
		t.Errorf("expected balance -7.5625, got %v", ev.EnergyBalance)
	}
	if ev.NextTransition.NextState != StateDark || ev.NextTransition.HoursToNext != 11.75 {
		t.Errorf("unexpected next transition %+v", ev.NextTransition)
	}
	if ev.Elapsed.Display != "1 d 6 h" {
		t.Errorf("expected display %q, got %q", "1 d 6 h", ev.Elapsed.Display)
	}
}

func TestEvaluate_InvalidRecordStillRenders(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	ev := Evaluate(Record{LightHours: 0, DarkHours: 0, DurationDays: 0}, asOf, time.UTC)

	if ev.Valid() {
		t.Fatal("expected a validation error for a record without start")
	}
	if ev.ValidationKind != KindMissingStart {
		t.Errorf("expected kind %q, got %q", KindMissingStart, ev.ValidationKind)
	}
	if ev.Phase.ElapsedHours != 0 {
		t.Errorf("expected elapsed 0 with fallback start, got %v", ev.Phase.ElapsedHours)
	}
	if len(ev.Calendar.Rows) != 1 || len(ev.Calendar.Rows[0].Cells) != HoursPerDay {
		t.Errorf("expected a single clamped row of 24 cells")
	}
	if ev.Phase.IsLight {
		t.Error("expected dark for an empty cycle")
	}
	if ev.Elapsed.Display != "0 d" {
		t.Errorf("expected display %q, got %q", "0 d", ev.Elapsed.Display)
	}
}

func TestEvaluate_NonFiniteHoursStayFinite(t *testing.T) {
	for _, light := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		rec := Record{StartDate: "2024-01-01T00:00", LightHours: light, DarkHours: 12, DurationDays: 2}
		asOf := jan1.Add(5 * time.Hour)

		ev := Evaluate(rec, asOf, time.UTC)

		if ev.ValidationKind != KindNegativeLight {
			t.Errorf("light %v: expected kind %q, got %q", light, KindNegativeLight, ev.ValidationKind)
		}
		if math.IsNaN(ev.EnergyBalance) || math.IsInf(ev.EnergyBalance, 0) {
			t.Errorf("light %v: expected a finite balance, got %v", light, ev.EnergyBalance)
		}
		if ev.Phase.IsLight {
			t.Errorf("light %v: expected dark with no light hours", light)
		}
		if ev.NextTransition.AtInstant.Before(asOf) {
			t.Errorf("light %v: next transition %v precedes %v", light, ev.NextTransition.AtInstant, asOf)
		}
	}
}
