package app

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/specimap/internal/config"
)

// Config holds the CLI configuration: global flags, logging and the
// engine configuration loaded from the config file and environment.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// Engine configuration
	Engine *config.Config
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.specimap.yaml or ./.specimap.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig("")
}

func loadConfig(file string) (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	home, _ := os.UserHomeDir()
	engine, err := config.Load(viper.New(), file, home)
	if err != nil {
		return nil, err
	}

	return &Config{
		ConfigFile: file,
		LogLevel:   os.Getenv("LOG_LEVEL"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput:  getEnvOrDefault("LOG_OUTPUT", "stderr"),
		Engine:     engine,
	}, nil
}

// Reload re-reads the engine configuration from file, keeping flags and
// logging settings.
func (c *Config) Reload(file string) error {
	fresh, err := loadConfig(file)
	if err != nil {
		return err
	}
	c.ConfigFile = file
	c.Engine = fresh.Engine
	return nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
