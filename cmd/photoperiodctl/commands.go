package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/transfer"
	"github.com/quentinrf/plant-monitor/services/photoperiod-service/internal/view"
)

const displayLayout = "2006-01-02 15:04"

func newEvaluateCmd(sf *scheduleFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Show phase, elapsed time, balance and next transition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := sf.evaluation(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				data, err := json.MarshalIndent(view.NewEvaluation(ev), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			warnInvalid(cmd, ev)
			fmt.Fprintf(out, "state:     %s\n", ev.Phase.State())
			fmt.Fprintf(out, "position:  %.2f h of %.2f h\n", ev.Phase.PositionInCycle, ev.Config.LightHours()+ev.Config.DarkHours())
			fmt.Fprintf(out, "elapsed:   %s\n", ev.Elapsed.Display)
			fmt.Fprintf(out, "balance:   %.2f\n", ev.EnergyBalance)
			printNext(out, ev)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full evaluation as JSON")
	return cmd
}

func newValidateCmd(sf *scheduleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a schedule and report the first problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := sf.location()
			if err != nil {
				return err
			}
			rec, err := sf.record(cmd, loc)
			if err != nil {
				return err
			}

			if _, err := domain.Validate(rec, loc); err != nil {
				return fmt.Errorf("invalid (%s): %w", domain.ErrorKind(err), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

func newGridCmd(sf *scheduleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "Draw the calendar as one row of 24 hours per day",
		Long: `Draw the calendar as one row of 24 hours per day.

'#' is light, '.' is dark and '@' marks the hour containing --at.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := sf.evaluation(cmd)
			if err != nil {
				return err
			}
			warnInvalid(cmd, ev)
			renderGrid(cmd.OutOrStdout(), ev)
			return nil
		},
	}
}

func newNextCmd(sf *scheduleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next light/dark switch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := sf.evaluation(cmd)
			if err != nil {
				return err
			}
			warnInvalid(cmd, ev)
			printNext(cmd.OutOrStdout(), ev)
			return nil
		},
	}
}

func newExportCmd(sf *scheduleFlags) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the schedule as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := sf.location()
			if err != nil {
				return err
			}
			rec, err := sf.record(cmd, loc)
			if err != nil {
				return err
			}
			if err := domain.CheckFinite(rec); err != nil {
				return err
			}

			f := formatForPath(output)
			if cmd.Flags().Changed("format") {
				if f, err = transfer.ParseFormat(format); err != nil {
					return err
				}
			}

			data, err := transfer.Export(rec, f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(sf *scheduleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <payload-file>",
		Short: "Merge a JSON or YAML payload into the --config file",
		Long: `Merge a JSON or YAML payload into the --config file.

Known fields of the right type overwrite the stored ones; everything else is
ignored. A payload that cannot be parsed leaves the file untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sf.configPath == "" {
				return errors.New("--config is required")
			}
			loc, err := sf.location()
			if err != nil {
				return err
			}

			live, err := readRecord(sf.configPath, loc)
			if errors.Is(err, os.ErrNotExist) {
				live = domain.Record{}
			} else if err != nil {
				return err
			}

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			res, err := transfer.Import(live, payload, loc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(res.Applied) == 0 {
				fmt.Fprintln(out, "no fields applied")
				return nil
			}

			data, err := transfer.Export(res.Record, formatForPath(sf.configPath))
			if err != nil {
				return err
			}
			if err := os.WriteFile(sf.configPath, data, 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(out, "applied: %s\n", strings.Join(res.Applied, ", "))
			return nil
		},
	}
}

func warnInvalid(cmd *cobra.Command, ev domain.Evaluation) {
	if !ev.Valid() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (%s), showing defaults\n", ev.ValidationError, ev.ValidationKind)
	}
}

func printNext(w io.Writer, ev domain.Evaluation) {
	next := ev.NextTransition
	fmt.Fprintf(w, "next:      %s at %s (in %.2f h)\n",
		next.NextState, next.DisplayInstant().Format(displayLayout), next.HoursToNext)
}

// renderGrid prints an hour ruler followed by one labelled row per day
func renderGrid(w io.Writer, ev domain.Evaluation) {
	const indent = "            "

	var tens, ones strings.Builder
	for h := 0; h < domain.HoursPerDay; h++ {
		tens.WriteByte(byte('0' + h/10))
		ones.WriteByte(byte('0' + h%10))
	}
	fmt.Fprintf(w, "%s%s\n%s%s\n", indent, tens.String(), indent, ones.String())

	current, hasCurrent := ev.Calendar.CurrentCell(ev.AsOf)
	for _, row := range ev.Calendar.Rows {
		var b strings.Builder
		for _, cell := range row.Cells {
			switch {
			case hasCurrent && cell.DayIndex == current.DayIndex && cell.HourIndex == current.HourIndex:
				b.WriteByte('@')
			case cell.IsLight:
				b.WriteByte('#')
			default:
				b.WriteByte('.')
			}
		}
		fmt.Fprintf(w, "%-12s%s  %2dh\n", row.DateLabel.Format("2006-01-02"), b.String(), row.LightHours())
	}
}
