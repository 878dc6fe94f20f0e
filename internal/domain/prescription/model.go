package prescription

import "math"

// Field identifies one editable prescription parameter.
type Field string

const (
	FieldPower      Field = "power"
	FieldDuration   Field = "duration"
	FieldResistance Field = "resistance"
	FieldSessions   Field = "sessions"
	FieldEnergy     Field = "energy"
)

var validFields = map[Field]bool{
	FieldPower: true, FieldDuration: true, FieldResistance: true,
	FieldSessions: true, FieldEnergy: true,
}

// Valid reports whether f names a known parameter.
func (f Field) Valid() bool { return validFields[f] }

// Parameters is the working prescription state. Total daily energy is
// always derived, never stored.
type Parameters struct {
	PowerWatts      float64 `json:"power_watts"`
	DurationMinutes float64 `json:"duration_minutes"`
	ResistanceLevel int     `json:"resistance_level"`
	SessionsPerDay  int     `json:"sessions_per_day"`
}

// TotalDailyEnergy returns power * duration * sessions in watt-minutes.
func (p Parameters) TotalDailyEnergy() float64 {
	return p.PowerWatts * p.DurationMinutes * float64(p.SessionsPerDay)
}

// Baseline is the recommendation supplied by the risk service or rebuilt
// from previously stored goals. It is never mutated by the engine.
type Baseline struct {
	WattGoal              float64  `json:"watt_goal"`
	DurationMinPerSession float64  `json:"duration_min_per_session"`
	SessionsPerDay        int      `json:"sessions_per_day"`
	ResistanceLevel       *int     `json:"resistance_level,omitempty"`
	TotalDailyEnergy      *float64 `json:"total_daily_energy,omitempty"`
}

// Energy returns the recommended daily energy, computed from the dose
// fields when the recommendation did not carry one.
func (b Baseline) Energy() float64 {
	if b.TotalDailyEnergy != nil && *b.TotalDailyEnergy > 0 {
		return *b.TotalDailyEnergy
	}
	return b.WattGoal * b.DurationMinPerSession * float64(b.SessionsPerDay)
}

// PatientContext carries the flags used to pick an acuity class.
type PatientContext struct {
	LevelOfCare    string `json:"level_of_care"`
	MobilityStatus string `json:"mobility_status"`
	Age            int    `json:"age"`
}

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp returns v limited to [Min, Max]. NaN maps to Min.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) || v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}
