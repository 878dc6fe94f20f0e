package prescription

import "fmt"

// Thresholds are the AI-recommendation limits above which a clinician
// entered value needs explicit acknowledgement before it is saved.
type Thresholds struct {
	DurationMinutes float64 `json:"duration_minutes"`
	PowerWatts      float64 `json:"power_watts"`
	ResistanceLevel int     `json:"resistance_level"`
	DailyEnergy     float64 `json:"daily_energy"`
	// Energy ratios relative to the baseline recommendation.
	CautionRatio  float64 `json:"caution_ratio"`
	OverrideRatio float64 `json:"override_ratio"`
}

// Config holds the product-chosen constants of the engine.
type Config struct {
	EnergyTolerance float64    `json:"energy_tolerance"`
	EnergyRange     Range      `json:"energy_range"`
	FrailAge        int        `json:"frail_age"`
	PowerStepCap    float64    `json:"power_step_cap"`
	Thresholds      Thresholds `json:"thresholds"`
}

// DefaultConfig returns the constants the goal editors have always used.
func DefaultConfig() Config {
	return Config{
		EnergyTolerance: 50,
		EnergyRange:     Range{Min: 300, Max: 3000},
		FrailAge:        80,
		PowerStepCap:    1.5,
		Thresholds: Thresholds{
			DurationMinutes: 20,
			PowerWatts:      45,
			ResistanceLevel: 6,
			DailyEnergy:     1200,
			CautionRatio:    1.3,
			OverrideRatio:   1.5,
		},
	}
}

// Validate checks that the constants describe a usable engine.
func (c Config) Validate() error {
	if c.EnergyTolerance <= 0 {
		return fmt.Errorf("energy tolerance must be positive, got %v", c.EnergyTolerance)
	}
	if c.EnergyRange.Min <= 0 || c.EnergyRange.Min >= c.EnergyRange.Max {
		return fmt.Errorf("invalid daily energy range [%v, %v]", c.EnergyRange.Min, c.EnergyRange.Max)
	}
	if c.FrailAge <= 0 {
		return fmt.Errorf("frail age must be positive, got %d", c.FrailAge)
	}
	if c.PowerStepCap < 1 {
		return fmt.Errorf("power step cap must be at least 1, got %v", c.PowerStepCap)
	}
	if c.Thresholds.CautionRatio > c.Thresholds.OverrideRatio {
		return fmt.Errorf("caution ratio %v exceeds override ratio %v",
			c.Thresholds.CautionRatio, c.Thresholds.OverrideRatio)
	}
	return nil
}

// Engine bundles the bounds policy with the configured constants. All of
// its methods are pure.
type Engine struct {
	cfg    Config
	policy BoundsPolicy
}

// NewEngine returns an engine for cfg. An invalid cfg is reported rather
// than silently replaced.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, policy: NewBoundsPolicy(cfg.EnergyRange)}, nil
}

// MustEngine is NewEngine for constants known to be valid.
func MustEngine(cfg Config) *Engine {
	e, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return e
}

// Config returns the engine constants.
func (e *Engine) Config() Config { return e.cfg }

// Policy returns the bounds policy used by the engine.
func (e *Engine) Policy() BoundsPolicy { return e.policy }
