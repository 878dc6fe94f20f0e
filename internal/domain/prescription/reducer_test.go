package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWardState(t *testing.T, maintain bool) (*Engine, State) {
	t.Helper()
	e := MustEngine(DefaultConfig())
	return e, e.NewState(standardBaseline(), wardPatient, maintain)
}

func TestNewState_SeedsFromBaseline(t *testing.T) {
	_, s := newWardState(t, false)

	assert.Equal(t, ModeFree, s.Mode)
	assert.Equal(t, AcuityGeneral, s.Acuity)
	assert.Equal(t, Parameters{PowerWatts: 35, DurationMinutes: 15, ResistanceLevel: 4, SessionsPerDay: 2}, s.Parameters)
	assert.Equal(t, 1050.0, s.TargetEnergy)
	assert.Empty(t, s.Advisories)
	assert.True(t, s.ReadyToCommit())
}

func TestNewState_UsesBaselineResistance(t *testing.T) {
	e := MustEngine(DefaultConfig())
	r := 4
	b := standardBaseline()
	b.ResistanceLevel = &r

	s := e.NewState(b, icuPatient, true)

	assert.Equal(t, 4, s.Parameters.ResistanceLevel)
	assert.Equal(t, ModeEnergyLocked, s.Mode)
	assert.Equal(t, AcuityCritical, s.Acuity)
}

func TestReduce_FreeEditClampsOnly(t *testing.T) {
	e, s := newWardState(t, false)

	next, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldResistance, Value: 9})
	require.NoError(t, err)

	assert.Equal(t, 9, next.Parameters.ResistanceLevel)
	assert.Equal(t, 35.0, next.Parameters.PowerWatts)
	assert.Equal(t, 15.0, next.Parameters.DurationMinutes)
	assert.Equal(t, 4, s.Parameters.ResistanceLevel, "input state must not change")
}

func TestReduce_LockedEditPreservesEnergy(t *testing.T) {
	e, s := newWardState(t, true)

	next, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldResistance, Value: 9})
	require.NoError(t, err)

	assert.InDelta(t, 46.67, next.Parameters.PowerWatts, 0.01)
	assert.InDelta(t, 11.25, next.Parameters.DurationMinutes, 0.01)
	assert.InDelta(t, s.TargetEnergy, next.TotalDailyEnergy(), 1)
}

func TestReduce_ToggleSeedsTargetFromCurrent(t *testing.T) {
	e, s := newWardState(t, false)

	s, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldDuration, Value: 20})
	require.NoError(t, err)
	before := s.Parameters

	s, err = e.Reduce(s, Event{Type: EventToggleMaintainEnergy})
	require.NoError(t, err)
	assert.Equal(t, ModeEnergyLocked, s.Mode)
	assert.Equal(t, 1400.0, s.TargetEnergy)
	assert.Equal(t, before, s.Parameters)

	s, err = e.Reduce(s, Event{Type: EventToggleMaintainEnergy})
	require.NoError(t, err)
	assert.Equal(t, ModeFree, s.Mode)
	assert.Equal(t, before, s.Parameters)
}

func TestReduce_ToggleHoldsLowEnergy(t *testing.T) {
	e, s := newWardState(t, false)
	for _, ev := range []Event{
		{Type: EventEdit, Field: FieldPower, Value: 25},
		{Type: EventEdit, Field: FieldDuration, Value: 5},
		{Type: EventEdit, Field: FieldSessions, Value: 1},
	} {
		var err error
		s, err = e.Reduce(s, ev)
		require.NoError(t, err)
	}
	require.Equal(t, 125.0, s.TotalDailyEnergy())

	s, err := e.Reduce(s, Event{Type: EventToggleMaintainEnergy})
	require.NoError(t, err)
	assert.Equal(t, 125.0, s.TargetEnergy)

	s, err = e.Reduce(s, Event{Type: EventEdit, Field: FieldPower, Value: 25})
	require.NoError(t, err)
	assert.Equal(t, 125.0, s.TargetEnergy)
	assert.InDelta(t, s.TargetEnergy, s.TotalDailyEnergy(), DefaultConfig().EnergyTolerance)
}

func TestReduce_FreeEnergyEditRetargets(t *testing.T) {
	e, s := newWardState(t, false)

	next, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldEnergy, Value: 1400})
	require.NoError(t, err)

	assert.Equal(t, 1400.0, next.TargetEnergy)
	assert.InDelta(t, 20, next.Parameters.DurationMinutes, 1e-9)
	assert.Equal(t, ModeFree, next.Mode)
}

func TestReduce_AutoOptimize(t *testing.T) {
	e, s := newWardState(t, true)

	next, err := e.Reduce(s, Event{Type: EventAutoOptimize, Value: 1575})
	require.NoError(t, err)

	assert.InDelta(t, 42.87, next.Parameters.PowerWatts, 0.01)
	assert.Equal(t, 1575.0, next.TargetEnergy)
	assert.Equal(t, ModeEnergyLocked, next.Mode)
}

func TestReduce_OverrideNeedsAcknowledgement(t *testing.T) {
	e, s := newWardState(t, false)

	s, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldDuration, Value: 30})
	require.NoError(t, err)
	assert.True(t, RequiresAcknowledgement(s.Advisories))
	assert.False(t, s.ReadyToCommit())

	s, err = e.Reduce(s, Event{Type: EventAcknowledge})
	require.NoError(t, err)
	assert.True(t, s.ReadyToCommit())

	s, err = e.Reduce(s, Event{Type: EventEdit, Field: FieldDuration, Value: 32})
	require.NoError(t, err)
	assert.False(t, s.Acknowledged, "a new value clears the acknowledgement")
	assert.False(t, s.ReadyToCommit())
}

func TestReduce_ResetRestoresBaseline(t *testing.T) {
	e, s := newWardState(t, true)

	s, err := e.Reduce(s, Event{Type: EventEdit, Field: FieldSessions, Value: 4})
	require.NoError(t, err)
	s, err = e.Reduce(s, Event{Type: EventReset})
	require.NoError(t, err)

	assert.Equal(t, Parameters{PowerWatts: 35, DurationMinutes: 15, ResistanceLevel: 4, SessionsPerDay: 2}, s.Parameters)
	assert.Equal(t, 1050.0, s.TargetEnergy)
}

func TestReduce_RejectsMalformedEvents(t *testing.T) {
	e, s := newWardState(t, true)

	_, err := e.Reduce(s, Event{Type: "explode"})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = e.Reduce(s, Event{Type: EventEdit, Field: "cadence", Value: 60})
	assert.ErrorIs(t, err, ErrUnknownField)
}
