package prescription

import "math"

// Bounds is the set of safe ranges for one acuity class.
type Bounds struct {
	Power      Range `json:"power"`
	Duration   Range `json:"duration"`
	Resistance Range `json:"resistance"`
	Sessions   Range `json:"sessions"`
	Energy     Range `json:"energy"`
}

// Range returns the range for field f.
func (b Bounds) Range(f Field) Range {
	switch f {
	case FieldPower:
		return b.Power
	case FieldDuration:
		return b.Duration
	case FieldResistance:
		return b.Resistance
	case FieldSessions:
		return b.Sessions
	default:
		return b.Energy
	}
}

var (
	powerRange      = Range{Min: 25, Max: 70}
	resistanceRange = Range{Min: 1, Max: 9}
)

// BoundsPolicy looks up safe ranges per acuity class. Editing bounds apply
// to clinician edits; rescaling bounds apply to whole-dose retargeting.
type BoundsPolicy struct {
	energy Range
}

// NewBoundsPolicy returns a policy with the given daily-energy range.
func NewBoundsPolicy(energy Range) BoundsPolicy {
	return BoundsPolicy{energy: energy}
}

// Editing returns the bounds enforced on clinician edits.
func (p BoundsPolicy) Editing(a AcuityClass) Bounds {
	b := Bounds{
		Power:      powerRange,
		Duration:   Range{Min: 5, Max: 45},
		Resistance: resistanceRange,
		Sessions:   Range{Min: 1, Max: 4},
		Energy:     p.energy,
	}
	if a == AcuityCritical {
		b.Duration = Range{Min: 5, Max: 20}
	}
	return b
}

// Rescaling returns the bounds enforced when a whole dose is redistributed
// from a baseline.
func (p BoundsPolicy) Rescaling(a AcuityClass) Bounds {
	b := Bounds{
		Power:      powerRange,
		Duration:   Range{Min: 8, Max: 45},
		Resistance: resistanceRange,
		Sessions:   Range{Min: 1, Max: 3},
		Energy:     p.energy,
	}
	if a.Frail() {
		b.Duration = Range{Min: 5, Max: 20}
		b.Sessions = Range{Min: 1, Max: 4}
	}
	return b
}

// Clamp limits value to the editing range of field for the acuity class.
// Resistance and sessions are rounded to the nearest integer afterwards.
func (p BoundsPolicy) Clamp(f Field, value float64, a AcuityClass) float64 {
	return clampField(p.Editing(a), f, value)
}

// ClampParameters clamps every field of params into b.
func ClampParameters(b Bounds, params Parameters) Parameters {
	return Parameters{
		PowerWatts:      clampField(b, FieldPower, params.PowerWatts),
		DurationMinutes: clampField(b, FieldDuration, params.DurationMinutes),
		ResistanceLevel: int(clampField(b, FieldResistance, float64(params.ResistanceLevel))),
		SessionsPerDay:  int(clampField(b, FieldSessions, float64(params.SessionsPerDay))),
	}
}

func clampField(b Bounds, f Field, value float64) float64 {
	v := b.Range(f).Clamp(value)
	if f == FieldResistance || f == FieldSessions {
		v = math.Round(v)
	}
	return v
}

func clampInt(b Bounds, f Field, value float64) int {
	return int(clampField(b, f, value))
}
