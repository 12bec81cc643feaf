// Package app provides the application context and dependency management
// for the specimap CLI. It centralizes configuration, logging and the
// lifecycle of the wired pipeline.
package app

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/specimap/internal/config"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
)

// App represents the specimap application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	// customLogger keeps an injected logger across flag parsing.
	customLogger bool

	// Pipelines opened by commands, closed on Shutdown.
	mu        sync.Mutex
	pipelines []*Pipeline
}

// New creates a new App instance with the given version information.
// The app is initialized with configuration loaded from the environment
// that can be replaced using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if app.config == nil {
		config, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		app.config = config
	}
	if app.logger == nil {
		logger := NewLogger(app.config)
		app.logger = &logger
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Pipeline builds a pipeline from cfg. The app closes it on Shutdown.
func (a *App) Pipeline(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Pipeline, error) {
	ctx = logging.WithLogger(ctx, a.logger)
	p, err := BuildPipeline(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.pipelines = append(a.pipelines, p)
	a.mu.Unlock()
	return p, nil
}

// Shutdown closes every pipeline the app opened.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	pipelines := a.pipelines
	a.pipelines = nil
	a.mu.Unlock()

	var errs []error
	for _, p := range pipelines {
		if err := p.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close pipeline during shutdown")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		a.customLogger = true
		return nil
	}
}

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}
