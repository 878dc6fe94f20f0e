package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoalEntries_WireShape(t *testing.T) {
	p := Parameters{PowerWatts: 42.866, DurationMinutes: 18.371, ResistanceLevel: 7, SessionsPerDay: 2}

	got := GoalEntries(p)

	require.Len(t, got, 5)
	want := []struct {
		field Field
		unit  string
	}{
		{FieldPower, "watts"},
		{FieldDuration, "minutes"},
		{FieldResistance, "level"},
		{FieldSessions, "sessions"},
		{FieldEnergy, "Watt-Min"},
	}
	for i, w := range want {
		assert.Equal(t, w.field, got[i].Type)
		assert.Equal(t, w.unit, got[i].Unit)
		assert.Equal(t, w.unit, UnitFor(w.field))
	}
	assert.Equal(t, p.TotalDailyEnergy(), got[4].Value)
	assert.Equal(t, 7.0, got[2].Value)
}

func TestBaselineFromGoals(t *testing.T) {
	entries := GoalEntries(baselineParams())

	b, err := BaselineFromGoals(entries)
	require.NoError(t, err)

	assert.Equal(t, 35.0, b.WattGoal)
	assert.Equal(t, 15.0, b.DurationMinPerSession)
	assert.Equal(t, 2, b.SessionsPerDay)
	require.NotNil(t, b.ResistanceLevel)
	assert.Equal(t, 5, *b.ResistanceLevel)
	assert.Equal(t, 1050.0, b.Energy())
}

func TestBaselineFromGoals_MissingField(t *testing.T) {
	_, err := BaselineFromGoals([]GoalEntry{{Type: FieldPower, Value: 30, Unit: UnitWatts}})
	assert.Error(t, err)
}

func TestBaseline_EnergyComputedWhenAbsent(t *testing.T) {
	assert.Equal(t, 1050.0, standardBaseline().Energy())

	v := 1200.0
	b := standardBaseline()
	b.TotalDailyEnergy = &v
	assert.Equal(t, 1200.0, b.Energy())
}
