package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("http_port", 8080)
	v.SetDefault("prune_interval", "1m")
	v.SetDefault("audit_interval", "5m")

	// 2. Configure config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("TOKEND")
	v.AutomaticEnv()

	// Map environment variables to config keys
	// TOKEND_GENESIS_PATH -> genesis_path
	v.BindEnv("genesis_path", "GENESIS_PATH")
	v.BindEnv("receivers", "RECEIVERS")
	v.BindEnv("log_level", "LOG_LEVEL")
	v.BindEnv("http_port", "HTTP_PORT")
	v.BindEnv("prune_interval", "PRUNE_INTERVAL")
	v.BindEnv("audit_interval", "AUDIT_INTERVAL")

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 5. Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Special handling for comma-separated env vars
	if receiversEnv := v.GetString("receivers"); receiversEnv != "" {
		if strings.Contains(receiversEnv, ",") {
			receivers := strings.Split(receiversEnv, ",")
			for i := range receivers {
				receivers[i] = strings.TrimSpace(receivers[i])
			}
			cfg.Receivers = receivers
		}
	}

	// 6. Validate with validator
	validate := NewValidator()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config plus the DATABASE_URL from the environment.
// An empty URL is allowed and means the ledger runs memory-only.
func LoadWithDefaults(configPath string) (*Config, string, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, "", err
	}

	v := viper.New()
	v.BindEnv("database_url", "DATABASE_URL")
	databaseURL := v.GetString("database_url")

	return cfg, databaseURL, nil
}
