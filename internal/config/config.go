package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/mobility/mobility/internal/domain/prescription"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	RiskServiceURL     string        `mapstructure:"RISK_SERVICE_URL"`
	RiskServiceTimeout time.Duration `mapstructure:"RISK_SERVICE_TIMEOUT"`
	AuthIssuer         string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL        string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience       string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey     string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`

	// Prescription engine constants.
	EnergyTolerance    float64 `mapstructure:"RX_ENERGY_TOLERANCE"`
	MinDailyEnergy     float64 `mapstructure:"RX_MIN_DAILY_ENERGY"`
	MaxDailyEnergy     float64 `mapstructure:"RX_MAX_DAILY_ENERGY"`
	FrailAge           int     `mapstructure:"RX_FRAIL_AGE"`
	PowerStepCap       float64 `mapstructure:"RX_POWER_STEP_CAP"`
	AdvisoryDuration   float64 `mapstructure:"RX_ADVISORY_DURATION"`
	AdvisoryPower      float64 `mapstructure:"RX_ADVISORY_POWER"`
	AdvisoryResistance int     `mapstructure:"RX_ADVISORY_RESISTANCE"`
	AdvisoryEnergy     float64 `mapstructure:"RX_ADVISORY_ENERGY"`
	CautionRatio       float64 `mapstructure:"RX_CAUTION_RATIO"`
	OverrideRatio      float64 `mapstructure:"RX_OVERRIDE_RATIO"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "SESSION_TTL", "RISK_SERVICE_URL", "RISK_SERVICE_TIMEOUT",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"RX_ENERGY_TOLERANCE", "RX_MIN_DAILY_ENERGY", "RX_MAX_DAILY_ENERGY", "RX_FRAIL_AGE",
	"RX_POWER_STEP_CAP", "RX_ADVISORY_DURATION", "RX_ADVISORY_POWER",
	"RX_ADVISORY_RESISTANCE", "RX_ADVISORY_ENERGY", "RX_CAUTION_RATIO", "RX_OVERRIDE_RATIO",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	rx := prescription.DefaultConfig()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("RISK_SERVICE_TIMEOUT", "5s")
	v.SetDefault("RX_ENERGY_TOLERANCE", rx.EnergyTolerance)
	v.SetDefault("RX_MIN_DAILY_ENERGY", rx.EnergyRange.Min)
	v.SetDefault("RX_MAX_DAILY_ENERGY", rx.EnergyRange.Max)
	v.SetDefault("RX_FRAIL_AGE", rx.FrailAge)
	v.SetDefault("RX_POWER_STEP_CAP", rx.PowerStepCap)
	v.SetDefault("RX_ADVISORY_DURATION", rx.Thresholds.DurationMinutes)
	v.SetDefault("RX_ADVISORY_POWER", rx.Thresholds.PowerWatts)
	v.SetDefault("RX_ADVISORY_RESISTANCE", rx.Thresholds.ResistanceLevel)
	v.SetDefault("RX_ADVISORY_ENERGY", rx.Thresholds.DailyEnergy)
	v.SetDefault("RX_CAUTION_RATIO", rx.Thresholds.CautionRatio)
	v.SetDefault("RX_OVERRIDE_RATIO", rx.Thresholds.OverrideRatio)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Prescription builds the engine configuration.
func (c *Config) Prescription() prescription.Config {
	return prescription.Config{
		EnergyTolerance: c.EnergyTolerance,
		EnergyRange:     prescription.Range{Min: c.MinDailyEnergy, Max: c.MaxDailyEnergy},
		FrailAge:        c.FrailAge,
		PowerStepCap:    c.PowerStepCap,
		Thresholds: prescription.Thresholds{
			DurationMinutes: c.AdvisoryDuration,
			PowerWatts:      c.AdvisoryPower,
			ResistanceLevel: c.AdvisoryResistance,
			DailyEnergy:     c.AdvisoryEnergy,
			CautionRatio:    c.CautionRatio,
			OverrideRatio:   c.OverrideRatio,
		},
	}
}

// RequireDatabase reports a missing DATABASE_URL for commands that need one.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks that the configuration is safe to run. Outside
// development a token verifier must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q; "+
				"refusing to start without authentication configuration", c.Env)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if err := c.Prescription().Validate(); err != nil {
		return fmt.Errorf("prescription config: %w", err)
	}
	return nil
}
