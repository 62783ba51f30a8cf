// Command photoperiodctl evaluates photoperiod schedules offline.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// scheduleFlags selects the schedule a command works on: a config file,
// optionally overridden field by field.
type scheduleFlags struct {
	configPath string
	start      string
	light      float64
	dark       float64
	days       int
	at         string
	tz         string
}

func newRootCmd() *cobra.Command {
	sf := &scheduleFlags{}

	root := &cobra.Command{
		Use:          "photoperiodctl",
		Short:        "Evaluate light/dark photoperiod schedules",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&sf.configPath, "config", "c", "", "schedule file (JSON or YAML)")
	pf.StringVar(&sf.start, "start", "", "start instant, e.g. 2024-01-01T06:00")
	pf.Float64Var(&sf.light, "light", 0, "light hours per cycle")
	pf.Float64Var(&sf.dark, "dark", 0, "dark hours per cycle")
	pf.IntVar(&sf.days, "days", 0, "calendar duration in days")
	pf.StringVar(&sf.at, "at", "", "evaluation instant (default now)")
	pf.StringVar(&sf.tz, "tz", os.Getenv("TZ_NAME"), "time zone for start dates (default local)")

	root.AddCommand(
		newEvaluateCmd(sf),
		newValidateCmd(sf),
		newGridCmd(sf),
		newNextCmd(sf),
		newExportCmd(sf),
		newImportCmd(sf),
	)
	return root
}

func (sf *scheduleFlags) location() (*time.Location, error) {
	if sf.tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(sf.tz)
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	return loc, nil
}

// record reads the config file, if any, and applies flags that were set
func (sf *scheduleFlags) record(cmd *cobra.Command, loc *time.Location) (domain.Record, error) {
	var rec domain.Record
	if sf.configPath != "" {
		var err error
		if rec, err = readRecord(sf.configPath, loc); err != nil {
			return rec, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		rec.StartDate = sf.start
	}
	if flags.Changed("light") {
		rec.LightHours = sf.light
	}
	if flags.Changed("dark") {
		rec.DarkHours = sf.dark
	}
	if flags.Changed("days") {
		rec.DurationDays = sf.days
	}
	return rec, nil
}

func (sf *scheduleFlags) asOf(loc *time.Location) (time.Time, error) {
	if sf.at == "" {
		return time.Now().In(loc), nil
	}
	t, err := domain.ParseStart(sf.at, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at: %w", err)
	}
	return t, nil
}

// evaluation builds the schedule and evaluates it at --at
func (sf *scheduleFlags) evaluation(cmd *cobra.Command) (domain.Evaluation, error) {
	loc, err := sf.location()
	if err != nil {
		return domain.Evaluation{}, err
	}
	rec, err := sf.record(cmd, loc)
	if err != nil {
		return domain.Evaluation{}, err
	}
	asOf, err := sf.asOf(loc)
	if err != nil {
		return domain.Evaluation{}, err
	}
	return domain.Evaluate(rec, asOf, loc), nil
}

func readRecord(path string, loc *time.Location) (domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Record{}, fmt.Errorf("read config: %w", err)
	}
	res, err := transfer.Import(domain.Record{}, data, loc)
	if err != nil {
		return domain.Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return res.Record, nil
}

// formatForPath picks YAML for .yaml/.yml files and JSON otherwise
func formatForPath(path string) transfer.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return transfer.FormatYAML
	default:
		return transfer.FormatJSON
	}
}
