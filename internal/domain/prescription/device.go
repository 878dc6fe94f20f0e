package prescription

// Ergometer characteristics at the fixed assumed cadence (35 RPM on a
// 9-inch flywheel). Force is linear in resistance level and power is
// linear in force, with BaselineForceLb producing BaselinePowerWatts.
const (
	AssumedCadenceRPM   = 35
	FlywheelDiameterIn  = 9
	BaselineForceLb     = 37.5
	BaselinePowerWatts  = 35.0
	MinForceLb          = 30.0
	MaxForceLb          = 50.0
	minResistanceLevel  = 1.0
	resistanceLevelSpan = 8.0
)

// ForceAtResistance returns the brake force in pounds for a resistance
// level.
func ForceAtResistance(resistance float64) float64 {
	return MinForceLb + (resistance-minResistanceLevel)/resistanceLevelSpan*(MaxForceLb-MinForceLb)
}

// ResistanceToPower returns the mechanical power in watts produced at a
// resistance level.
func ResistanceToPower(resistance float64) float64 {
	return BaselinePowerWatts * (ForceAtResistance(resistance) / BaselineForceLb)
}

// PowerToResistance returns the resistance level needed for a power
// target, limited to the device range [1, 9]. The result is not rounded.
func PowerToResistance(watts float64) float64 {
	force := watts / BaselinePowerWatts * BaselineForceLb
	r := minResistanceLevel + (force-MinForceLb)/(MaxForceLb-MinForceLb)*resistanceLevelSpan
	return resistanceRange.Clamp(r)
}
