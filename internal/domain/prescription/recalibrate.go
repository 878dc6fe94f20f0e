package prescription

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownField is returned for an edit naming no known parameter.
var ErrUnknownField = errors.New("unknown prescription field")

// Recalibration is the outcome of one energy-preserving edit.
type Recalibration struct {
	Parameters   Parameters `json:"parameters"`
	TargetEnergy float64    `json:"target_energy"`
	// Drift is |energy - target| left behind when a derived value was
	// clamped. The engine does not iterate to reconverge.
	Drift float64 `json:"drift"`
}

// Recalibrate applies an edit of field to value while holding total daily
// energy at targetEnergy. Edits to duration, resistance or power reshape
// intensity and let power float; edits to sessions or the energy target
// change the dose and let duration absorb it with power held fixed. Only an
// edited energy target is clamped into the daily-energy range.
func (e *Engine) Recalibrate(current Parameters, field Field, value, targetEnergy float64, a AcuityClass) (Recalibration, error) {
	b := e.policy.Editing(a)
	next := ClampParameters(b, current)
	target := targetEnergy

	switch field {
	case FieldDuration:
		next.DurationMinutes = clampField(b, FieldDuration, value)
		required := perSession(target, next.SessionsPerDay) / next.DurationMinutes
		next.ResistanceLevel = clampInt(b, FieldResistance, PowerToResistance(required))
		next.PowerWatts = clampField(b, FieldPower, required)

	case FieldResistance:
		next.ResistanceLevel = clampInt(b, FieldResistance, value)
		next.PowerWatts = clampField(b, FieldPower, ResistanceToPower(float64(next.ResistanceLevel)))
		next.DurationMinutes = clampField(b, FieldDuration, perSession(target, next.SessionsPerDay)/next.PowerWatts)

	case FieldPower:
		next.PowerWatts = clampField(b, FieldPower, value)
		next.ResistanceLevel = clampInt(b, FieldResistance, PowerToResistance(next.PowerWatts))
		next.DurationMinutes = clampField(b, FieldDuration, perSession(target, next.SessionsPerDay)/next.PowerWatts)

	case FieldSessions:
		next.SessionsPerDay = clampInt(b, FieldSessions, value)
		next.DurationMinutes = clampField(b, FieldDuration, perSession(target, next.SessionsPerDay)/next.PowerWatts)

	case FieldEnergy:
		target = b.Energy.Clamp(value)
		next.DurationMinutes = clampField(b, FieldDuration, perSession(target, next.SessionsPerDay)/next.PowerWatts)

	default:
		return Recalibration{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	return Recalibration{
		Parameters:   next,
		TargetEnergy: target,
		Drift:        math.Abs(next.TotalDailyEnergy() - target),
	}, nil
}

// ApplyFree applies an edit without any cross-field effect.
func (e *Engine) ApplyFree(current Parameters, field Field, value float64, a AcuityClass) (Parameters, error) {
	b := e.policy.Editing(a)
	next := current
	switch field {
	case FieldPower:
		next.PowerWatts = clampField(b, FieldPower, value)
	case FieldDuration:
		next.DurationMinutes = clampField(b, FieldDuration, value)
	case FieldResistance:
		next.ResistanceLevel = clampInt(b, FieldResistance, value)
	case FieldSessions:
		next.SessionsPerDay = clampInt(b, FieldSessions, value)
	default:
		return Parameters{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return next, nil
}

func perSession(target float64, sessions int) float64 {
	return target / float64(sessions)
}
