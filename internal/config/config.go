package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSigningKey string `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	JWTAudience   string `mapstructure:"JWT_AUDIENCE"`

	// Summary pipeline settings. Loaded once at startup and treated as
	// immutable for the life of the process.
	ExcludedDocumentSystem    string `mapstructure:"EXCLUDED_DOCUMENT_SYSTEM"`
	BundleIdentifierSystem    string `mapstructure:"BUNDLE_IDENTIFIER_SYSTEM"`
	SummaryTimezone           string `mapstructure:"SUMMARY_TIMEZONE"`
	ImmunizationLookbackYears int    `mapstructure:"IMMUNIZATION_LOOKBACK_YEARS"`
	ProcedureLookbackYears    int    `mapstructure:"PROCEDURE_LOOKBACK_YEARS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("EXCLUDED_DOCUMENT_SYSTEM", "http://myportal.org")
	v.SetDefault("BUNDLE_IDENTIFIER_SYSTEM", "http://mhr-operator/fhir/identifier")
	v.SetDefault("SUMMARY_TIMEZONE", "Australia/Sydney")
	v.SetDefault("IMMUNIZATION_LOOKBACK_YEARS", 2)
	v.SetDefault("PROCEDURE_LOOKBACK_YEARS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("JWT_AUDIENCE")
	v.BindEnv("EXCLUDED_DOCUMENT_SYSTEM")
	v.BindEnv("BUNDLE_IDENTIFIER_SYSTEM")
	v.BindEnv("SUMMARY_TIMEZONE")
	v.BindEnv("IMMUNIZATION_LOOKBACK_YEARS")
	v.BindEnv("PROCEDURE_LOOKBACK_YEARS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// the JWT signing key must be set so that real authentication is enforced.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.ImmunizationLookbackYears <= 0 {
		return fmt.Errorf("IMMUNIZATION_LOOKBACK_YEARS must be positive, got %d", c.ImmunizationLookbackYears)
	}
	if c.ProcedureLookbackYears <= 0 {
		return fmt.Errorf("PROCEDURE_LOOKBACK_YEARS must be positive, got %d", c.ProcedureLookbackYears)
	}
	if c.ExcludedDocumentSystem == "" {
		return fmt.Errorf("EXCLUDED_DOCUMENT_SYSTEM must not be empty")
	}
	return nil
}
