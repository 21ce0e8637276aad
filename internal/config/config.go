package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	SessionSecret string   `mapstructure:"SESSION_SECRET"`
	SessionTTLMin int      `mapstructure:"SESSION_TTL_MINUTES"`
	Timezone      string   `mapstructure:"TIMEZONE"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	// Outbound push channel (product mutations). Disabled when AppID is empty.
	PushAppID   string `mapstructure:"PUSH_APP_ID"`
	PushKey     string `mapstructure:"PUSH_KEY"`
	PushSecret  string `mapstructure:"PUSH_SECRET"`
	PushCluster string `mapstructure:"PUSH_CLUSTER"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "9000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL_MINUTES", 480)
	v.SetDefault("TIMEZONE", "America/Matamoros")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("PUSH_CLUSTER", "us2")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SESSION_SECRET")
	v.BindEnv("SESSION_TTL_MINUTES")
	v.BindEnv("TIMEZONE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("PUSH_APP_ID")
	v.BindEnv("PUSH_KEY")
	v.BindEnv("PUSH_SECRET")
	v.BindEnv("PUSH_CLUSTER")

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

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. In production a
// SESSION_SECRET must be set so session tokens cannot be forged; in
// development a throwaway secret is generated at startup instead.
func (c *Config) Validate() error {
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	if c.SessionTTLMin <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive, got %d", c.SessionTTLMin)
	}
	if c.PushAppID != "" && (c.PushKey == "" || c.PushSecret == "") {
		return fmt.Errorf("PUSH_KEY and PUSH_SECRET are required when PUSH_APP_ID is set")
	}
	return nil
}

// PushEnabled reports whether the outbound push channel is configured.
func (c *Config) PushEnabled() bool {
	return c.PushAppID != ""
}
