package server

import "time"

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port int    `mapstructure:"port" yaml:"port" json:"port"`

	// API settings
	PathPrefix string `mapstructure:"path_prefix" yaml:"path_prefix" json:"path_prefix"`

	// HTTP timeouts
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`

	// Features
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled" json:"metrics_enabled"`
}

// DefaultConfig returns a Config with sensible defaults. The write timeout
// covers a full enrichment of a submitted record.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           9464,
		PathPrefix:     "/api/v1",
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}
