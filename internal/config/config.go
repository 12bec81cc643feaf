// Package config loads the engine configuration: source endpoints, timeouts,
// batch limits, the repository, the admission policy, the HTTP server and
// the event sink.
//
// Values come from, in order of precedence, SPECIMAP_* environment
// variables, the YAML config file and the defaults below. Nested keys map
// to environment variables by replacing dots with underscores, so
// batch.parallelism is SPECIMAP_BATCH_PARALLELISM.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/agentstation/specimap/internal/events"
	"github.com/agentstation/specimap/internal/server"
	"github.com/agentstation/specimap/internal/sources"
	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/constants"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/reconcile"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SPECIMAP"

// Config is the process-wide engine configuration. It is passed explicitly
// to constructors; nothing reads it from globals.
type Config struct {
	Sources     sources.Endpoints         `mapstructure:"sources" yaml:"sources" json:"sources"`
	HTTPTimeout time.Duration             `mapstructure:"http_timeout" yaml:"http_timeout" json:"http_timeout"`
	Enrichment  Enrichment                `mapstructure:"enrichment" yaml:"enrichment" json:"enrichment"`
	Batch       Batch                     `mapstructure:"batch" yaml:"batch" json:"batch"`
	Repository  Repository                `mapstructure:"repository" yaml:"repository" json:"repository"`
	Policy      reconcile.AdmissionPolicy `mapstructure:"policy" yaml:"policy" json:"policy"`
	Server      server.Config             `mapstructure:"server" yaml:"server" json:"server"`
	Events      Events                    `mapstructure:"events" yaml:"events" json:"events"`
	DryRun      bool                      `mapstructure:"dry_run" yaml:"dry_run" json:"dry_run"`
}

// Enrichment configures the enrichment orchestrator.
type Enrichment struct {
	Deadline   time.Duration `mapstructure:"deadline" yaml:"deadline" json:"deadline"`
	Provenance bool          `mapstructure:"provenance" yaml:"provenance" json:"provenance"`
}

// Batch configures the batch dispatcher.
type Batch struct {
	Parallelism int           `mapstructure:"parallelism" yaml:"parallelism" json:"parallelism"`
	Deadline    time.Duration `mapstructure:"deadline" yaml:"deadline" json:"deadline"`
}

// Repository configures the object repository.
type Repository struct {
	Path   string `mapstructure:"path" yaml:"path" json:"path"`
	Schema string `mapstructure:"schema" yaml:"schema" json:"schema"`
}

// Events configures the write notification sink. No brokers disables it.
type Events struct {
	Brokers string `mapstructure:"brokers" yaml:"brokers" json:"brokers"`
	Topic   string `mapstructure:"topic" yaml:"topic" json:"topic"`
}

// Enabled reports whether events are published.
func (e Events) Enabled() bool {
	return strings.TrimSpace(e.Brokers) != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Sources:     sources.Defaults(),
		HTTPTimeout: constants.DefaultHTTPTimeout,
		Enrichment: Enrichment{
			Deadline:   constants.EnrichmentDeadline,
			Provenance: true,
		},
		Batch: Batch{
			Parallelism: constants.DefaultBatchParallelism,
			Deadline:    constants.BatchDeadline,
		},
		Repository: Repository{
			Path:   constants.DefaultRepositoryFile,
			Schema: constants.DefaultSchemaName,
		},
		Server: server.DefaultConfig(),
		Events: Events{Topic: events.DefaultTopic},
	}
}

// SetDefaults registers every key of Default with v. Unmarshal only sees
// environment overrides for registered keys.
func SetDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]any{
		"sources.gbif":              d.Sources.GBIF,
		"sources.catalogue":         d.Sources.Catalogue,
		"sources.catalogue_dataset": d.Sources.CatalogueKey,
		"sources.wikidata":          d.Sources.Wikidata,
		"sources.countries":         d.Sources.Countries,
		"sources.countries_offline": d.Sources.CountryOffline,
		"sources.geoip":             d.Sources.GeoIP,
		"sources.geoip_key":         "",
		"http_timeout":              d.HTTPTimeout,
		"enrichment.deadline":       d.Enrichment.Deadline,
		"enrichment.provenance":     d.Enrichment.Provenance,
		"batch.parallelism":         d.Batch.Parallelism,
		"batch.deadline":            d.Batch.Deadline,
		"repository.path":           d.Repository.Path,
		"repository.schema":         d.Repository.Schema,
		"policy.required_region":    d.Policy.RequiredRegion,
		"policy.min_level":          int(d.Policy.MinLevel),
		"server.host":               d.Server.Host,
		"server.port":               d.Server.Port,
		"server.path_prefix":        d.Server.PathPrefix,
		"server.read_timeout":       d.Server.ReadTimeout,
		"server.write_timeout":      d.Server.WriteTimeout,
		"server.idle_timeout":       d.Server.IdleTimeout,
		"server.metrics_enabled":    d.Server.MetricsEnabled,
		"events.brokers":            d.Events.Brokers,
		"events.topic":              d.Events.Topic,
		"dry_run":                   d.DryRun,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Load reads the configuration through v. A non-empty file is read
// explicitly and must exist; otherwise .specimap.yaml is looked up in the
// home and working directories and silently skipped when absent.
func Load(v *viper.Viper, file, home string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.ConfigError{Component: "config", Message: "cannot read " + file, Err: err}
		}
	} else {
		if home != "" {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".specimap")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, &errors.ConfigError{Component: "config", Message: "cannot read config file", Err: err}
			}
		}
	}
	applyFallbacks(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &errors.ConfigError{Component: "config", Message: "cannot decode configuration", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required values.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(msg string) {
		errs = append(errs, &errors.ConfigError{Component: "config", Message: msg})
	}

	if c.HTTPTimeout <= 0 {
		invalid("http_timeout must be positive")
	}
	if c.Enrichment.Deadline <= 0 {
		invalid("enrichment.deadline must be positive")
	}
	if c.Batch.Parallelism < 1 {
		invalid("batch.parallelism must be at least 1")
	}
	if c.Batch.Deadline <= 0 {
		invalid("batch.deadline must be positive")
	}
	if strings.TrimSpace(c.Repository.Path) == "" {
		invalid("repository.path is required")
	}
	if strings.TrimSpace(c.Repository.Schema) == "" {
		invalid("repository.schema is required")
	}
	if c.Policy.MinLevel < completeness.LevelNone || c.Policy.MinLevel > completeness.LevelDescribed {
		invalid("policy.min_level must be between 0 and 3")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		invalid("server.port out of range")
	}
	if c.Sources.GBIF == "" {
		invalid("sources.gbif is required")
	}
	return errors.Join(errs...)
}
