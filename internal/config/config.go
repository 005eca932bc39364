package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

// Config represents the application configuration
type Config struct {
	// GenesisPath points at the JSON file establishing the token on first
	// boot. Ignored once the ledger is instantiated.
	GenesisPath string `mapstructure:"genesis_path"`

	// Receivers lists contract accounts registered to accept send
	// notifications.
	Receivers []string `mapstructure:"receivers" validate:"omitempty,dive,eth_addr"`

	PruneInterval string `mapstructure:"prune_interval" validate:"omitempty,duration"`
	AuditInterval string `mapstructure:"audit_interval" validate:"omitempty,duration"`
	LogLevel      string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	HTTPPort      int    `mapstructure:"http_port" validate:"omitempty,min=1024,max=65535"`
}

// PruneEvery returns the prune cadence; zero disables the job.
func (c *Config) PruneEvery() time.Duration {
	return parseInterval(c.PruneInterval)
}

// AuditEvery returns the audit cadence; zero disables the job.
func (c *Config) AuditEvery() time.Duration {
	return parseInterval(c.AuditInterval)
}

func parseInterval(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// ethAddressValidator validates Ethereum-style addresses
func ethAddressValidator(fl validator.FieldLevel) bool {
	return common.IsHexAddress(fl.Field().String())
}

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true // empty disables the job
	}
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("eth_addr", ethAddressValidator)
	validate.RegisterValidation("duration", durationValidator)
	return validate
}
