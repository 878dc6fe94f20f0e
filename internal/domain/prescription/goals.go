package prescription

import (
	"fmt"
	"math"
)

// Goal entry units as stored by the goal-persistence API.
const (
	UnitWatts    = "watts"
	UnitMinutes  = "minutes"
	UnitLevel    = "level"
	UnitSessions = "sessions"
	UnitEnergy   = "Watt-Min"
)

var fieldUnits = map[Field]string{
	FieldPower:      UnitWatts,
	FieldDuration:   UnitMinutes,
	FieldResistance: UnitLevel,
	FieldSessions:   UnitSessions,
	FieldEnergy:     UnitEnergy,
}

// UnitFor returns the stored unit of a field.
func UnitFor(f Field) string { return fieldUnits[f] }

// GoalEntry is one persisted goal: a single field of a finalized
// prescription.
type GoalEntry struct {
	Type  Field   `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// GoalEntries serializes a finalized prescription as one entry per field,
// in the fixed order power, duration, resistance, sessions, energy. The
// energy entry carries the unrounded total.
func GoalEntries(p Parameters) []GoalEntry {
	return []GoalEntry{
		{Type: FieldPower, Value: p.PowerWatts, Unit: UnitWatts},
		{Type: FieldDuration, Value: p.DurationMinutes, Unit: UnitMinutes},
		{Type: FieldResistance, Value: float64(p.ResistanceLevel), Unit: UnitLevel},
		{Type: FieldSessions, Value: float64(p.SessionsPerDay), Unit: UnitSessions},
		{Type: FieldEnergy, Value: p.TotalDailyEnergy(), Unit: UnitEnergy},
	}
}

// BaselineFromGoals rebuilds a recommendation from previously stored goal
// entries. Power, duration and sessions are required.
func BaselineFromGoals(entries []GoalEntry) (Baseline, error) {
	var b Baseline
	seen := map[Field]bool{}
	for _, g := range entries {
		switch g.Type {
		case FieldPower:
			b.WattGoal = g.Value
		case FieldDuration:
			b.DurationMinPerSession = g.Value
		case FieldSessions:
			b.SessionsPerDay = int(math.Round(g.Value))
		case FieldResistance:
			r := int(math.Round(g.Value))
			b.ResistanceLevel = &r
		case FieldEnergy:
			v := g.Value
			b.TotalDailyEnergy = &v
		default:
			continue
		}
		seen[g.Type] = true
	}
	for _, f := range []Field{FieldPower, FieldDuration, FieldSessions} {
		if !seen[f] {
			return Baseline{}, fmt.Errorf("stored goals missing %s", f)
		}
	}
	return b, nil
}
