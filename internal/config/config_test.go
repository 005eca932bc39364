package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigIntervalHelpers(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want time.Duration
	}{
		{
			name: "minutes",
			cfg:  &Config{PruneInterval: "5m"},
			want: 5 * time.Minute,
		},
		{
			name: "seconds",
			cfg:  &Config{PruneInterval: "30s"},
			want: 30 * time.Second,
		},
		{
			name: "empty disables the job",
			cfg:  &Config{PruneInterval: ""},
			want: 0,
		},
		{
			name: "unparseable disables the job",
			cfg:  &Config{PruneInterval: "often"},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.PruneEvery())
		})
	}

	assert.Equal(t, time.Hour, (&Config{AuditInterval: "1h"}).AuditEvery())
}

func TestConfigHTTPPortValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name      string
		httpPort  int
		wantError bool
	}{
		{
			name:      "valid port 8080",
			httpPort:  8080,
			wantError: false,
		},
		{
			name:      "valid port 9090",
			httpPort:  9090,
			wantError: false,
		},
		{
			name:      "port too low (1023)",
			httpPort:  1023,
			wantError: true,
		},
		{
			name:      "port too high (65536)",
			httpPort:  65536,
			wantError: true,
		},
		{
			name:      "minimum valid port (1024)",
			httpPort:  1024,
			wantError: false,
		},
		{
			name:      "maximum valid port (65535)",
			httpPort:  65535,
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{HTTPPort: tt.httpPort}
			err := validator.Struct(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigLogLevelValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name      string
		logLevel  string
		wantError bool
	}{
		{
			name:      "valid debug",
			logLevel:  "debug",
			wantError: false,
		},
		{
			name:      "valid info",
			logLevel:  "info",
			wantError: false,
		},
		{
			name:      "valid warn",
			logLevel:  "warn",
			wantError: false,
		},
		{
			name:      "valid error",
			logLevel:  "error",
			wantError: false,
		},
		{
			name:      "invalid level",
			logLevel:  "invalid",
			wantError: true,
		},
		{
			name:      "empty is valid (uses default)",
			logLevel:  "",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}
			err := validator.Struct(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
