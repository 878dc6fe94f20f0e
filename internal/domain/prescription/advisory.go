package prescription

import "fmt"

// Severity grades an advisory.
type Severity string

const (
	// SeverityCaution is informational and never blocks saving.
	SeverityCaution Severity = "caution"
	// SeverityOverride must be acknowledged by the clinician before the
	// prescription is saved.
	SeverityOverride Severity = "override"
)

// Advisory flags a value above the AI-recommendation thresholds.
type Advisory struct {
	Field    Field    `json:"field"`
	Value    float64  `json:"value"`
	Limit    float64  `json:"limit"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Advise evaluates params against the configured thresholds. baselineEnergy
// may be zero when no recommendation is known, which disables the
// ratio checks.
func (e *Engine) Advise(params Parameters, baselineEnergy float64) []Advisory {
	t := e.cfg.Thresholds
	energy := params.TotalDailyEnergy()

	var out []Advisory
	over := func(f Field, value, limit float64, unit string) {
		if value > limit {
			out = append(out, Advisory{
				Field: f, Value: value, Limit: limit, Severity: SeverityOverride,
				Message: fmt.Sprintf("%s of %.1f %s exceeds the recommended maximum of %.0f %s", f, value, unit, limit, unit),
			})
		}
	}
	over(FieldDuration, params.DurationMinutes, t.DurationMinutes, "minutes")
	over(FieldPower, params.PowerWatts, t.PowerWatts, "watts")
	over(FieldResistance, float64(params.ResistanceLevel), float64(t.ResistanceLevel), "level")
	over(FieldEnergy, energy, t.DailyEnergy, "Watt-Min")

	if baselineEnergy > 0 {
		ratio := energy / baselineEnergy
		switch {
		case ratio > t.OverrideRatio:
			out = append(out, Advisory{
				Field: FieldEnergy, Value: energy, Limit: baselineEnergy * t.OverrideRatio, Severity: SeverityOverride,
				Message: fmt.Sprintf("daily energy is %.2fx the recommended dose", ratio),
			})
		case ratio > t.CautionRatio:
			out = append(out, Advisory{
				Field: FieldEnergy, Value: energy, Limit: baselineEnergy * t.CautionRatio, Severity: SeverityCaution,
				Message: fmt.Sprintf("daily energy is %.2fx the recommended dose", ratio),
			})
		}
	}
	return out
}

// RequiresAcknowledgement reports whether any advisory gates saving.
func RequiresAcknowledgement(advisories []Advisory) bool {
	for _, a := range advisories {
		if a.Severity == SeverityOverride {
			return true
		}
	}
	return false
}
