package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mobility/mobility/internal/config"
	"github.com/mobility/mobility/internal/domain/prescription"
)

// rxCmd groups offline engine commands. They need no database.
func rxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rx",
		Short: "Evaluate the prescription engine offline",
	}
	cmd.AddCommand(recalibrateCmd(), rescaleCmd())
	return cmd
}

func loadEngine() (*prescription.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return prescription.NewEngine(cfg.Prescription())
}

func recalibrateCmd() *cobra.Command {
	var (
		params prescription.Parameters
		field  string
		value  float64
		target float64
		acuity string
	)

	cmd := &cobra.Command{
		Use:   "recalibrate",
		Short: "Apply one energy-preserving edit to a prescription",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			a, err := parseAcuity(acuity)
			if err != nil {
				return err
			}
			if target <= 0 {
				target = params.TotalDailyEnergy()
			}

			out, err := engine.Recalibrate(params, prescription.Field(field), value, target, a)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"parameters":         out.Parameters,
				"target_energy":      out.TargetEnergy,
				"total_daily_energy": out.Parameters.TotalDailyEnergy(),
				"drift":              out.Drift,
				"advisories":         engine.Advise(out.Parameters, target),
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&params.PowerWatts, "power", 0, "Current power in watts")
	f.Float64Var(&params.DurationMinutes, "duration", 0, "Current minutes per session")
	f.IntVar(&params.ResistanceLevel, "resistance", 1, "Current resistance level")
	f.IntVar(&params.SessionsPerDay, "sessions", 1, "Current sessions per day")
	f.StringVar(&field, "field", "", "Field to edit (power, duration, resistance, sessions, energy)")
	f.Float64Var(&value, "value", 0, "New value for the edited field")
	f.Float64Var(&target, "target", 0, "Daily energy to hold; defaults to the current energy")
	f.StringVar(&acuity, "acuity", string(prescription.AcuityGeneral), "Acuity class (critical, frail, general)")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func rescaleCmd() *cobra.Command {
	var (
		baseline prescription.Baseline
		pc       prescription.PatientContext
		target   float64
	)

	cmd := &cobra.Command{
		Use:   "rescale",
		Short: "Redistribute a baseline onto a new daily energy target",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			params := engine.Rescale(baseline, target, pc)
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"acuity":             engine.ClassifyAcuity(pc),
				"parameters":         params,
				"total_daily_energy": params.TotalDailyEnergy(),
				"advisories":         engine.Advise(params, baseline.Energy()),
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&baseline.WattGoal, "watt-goal", 0, "Baseline power in watts")
	f.Float64Var(&baseline.DurationMinPerSession, "duration", 0, "Baseline minutes per session")
	f.IntVar(&baseline.SessionsPerDay, "sessions", 1, "Baseline sessions per day")
	f.Float64Var(&target, "target", 0, "New daily energy target")
	f.StringVar(&pc.LevelOfCare, "level-of-care", "", "Patient level of care")
	f.StringVar(&pc.MobilityStatus, "mobility-status", "", "Patient mobility status")
	f.IntVar(&pc.Age, "age", 0, "Patient age in years")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func parseAcuity(s string) (prescription.AcuityClass, error) {
	switch a := prescription.AcuityClass(s); a {
	case prescription.AcuityCritical, prescription.AcuityFrail, prescription.AcuityGeneral:
		return a, nil
	}
	return "", fmt.Errorf("unknown acuity class %q", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
