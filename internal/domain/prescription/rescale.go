package prescription

import "math"

// Rescale redistributes a baseline recommendation onto a new daily energy
// target. Intensity is raised first, frequency is the fallback, and
// duration is fine-tuned last. Frail patients get extra sessions rather
// than higher single-session power.
func (e *Engine) Rescale(baseline Baseline, newTargetEnergy float64, pc PatientContext) Parameters {
	a := e.ClassifyAcuity(pc)
	b := e.policy.Rescaling(a)
	target := b.Energy.Clamp(newTargetEnergy)

	// The ratio is taken against the recommendation as issued; bounds only
	// apply to the result.
	power := baseline.WattGoal
	duration := baseline.DurationMinPerSession
	sessions := float64(baseline.SessionsPerDay)

	aiTarget := power * duration * sessions
	ratio := 1.0
	if aiTarget > 0 {
		ratio = target / aiTarget
	}

	switch {
	case ratio > 1 && a.Frail() && ratio > e.cfg.PowerStepCap:
		sessions *= math.Sqrt(ratio)
	case ratio > 1 && a.Frail():
		power *= ratio
	case ratio > 1:
		power *= math.Min(math.Sqrt(ratio), e.cfg.PowerStepCap)
	case ratio < 1:
		if reduced := power * ratio; reduced >= b.Power.Min {
			power = reduced
		} else {
			sessions *= ratio
		}
	}

	params := Parameters{
		PowerWatts:      clampField(b, FieldPower, power),
		DurationMinutes: clampField(b, FieldDuration, duration),
		SessionsPerDay:  clampInt(b, FieldSessions, sessions),
	}
	if math.Abs(params.TotalDailyEnergy()-target) > e.cfg.EnergyTolerance {
		params.DurationMinutes = clampField(b, FieldDuration, target/(params.PowerWatts*float64(params.SessionsPerDay)))
	}
	params.ResistanceLevel = clampInt(b, FieldResistance, PowerToResistance(params.PowerWatts))
	return params
}
