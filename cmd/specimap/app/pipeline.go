package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/specimap/internal/archive"
	"github.com/agentstation/specimap/internal/config"
	"github.com/agentstation/specimap/internal/events"
	"github.com/agentstation/specimap/internal/metrics"
	"github.com/agentstation/specimap/internal/repository"
	"github.com/agentstation/specimap/internal/sources"
	"github.com/agentstation/specimap/pkg/dispatch"
	"github.com/agentstation/specimap/pkg/enricher"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
)

// Pipeline is the wired engine: one source set, one repository, one
// metrics registry and one publisher shared by every record of the run.
type Pipeline struct {
	Sources    *sources.Set
	Metrics    *metrics.Metrics
	Store      *repository.Store
	Enricher   *enricher.Orchestrator
	Engine     *reconcile.Engine
	Processor  dispatch.Processor
	Dispatcher *dispatch.Dispatcher

	kafka *events.Kafka
}

// BuildOptions adjusts a pipeline for one command.
type BuildOptions struct {
	// SkipEnrichment reconciles records as read.
	SkipEnrichment bool
	// Registry receives the metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// BuildPipeline wires sources, orchestrator, repository and engine from
// cfg. Close releases the repository lock and the event producer.
func BuildPipeline(ctx context.Context, cfg *config.Config, opts BuildOptions) (*Pipeline, error) {
	logger := logging.FromContext(ctx)

	p := &Pipeline{
		Sources: sources.New(cfg.Sources, cfg.HTTPTimeout),
		Metrics: metrics.New(opts.Registry),
	}
	p.Metrics.TrackRegionCache(p.Sources.Regions.CacheStats)

	store, err := repository.Open(ctx, cfg.Repository.Path, cfg.Repository.Schema)
	if err != nil {
		return nil, err
	}
	p.Store = store

	var publisher reconcile.Publisher = events.Nop{}
	if cfg.Events.Enabled() {
		k, err := events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		p.kafka = k
		publisher = k
		logger.Info().Str("topic", k.Topic()).Msg("Publishing reconciliation events")
	}

	p.Engine, err = reconcile.New(store,
		reconcile.WithPolicy(cfg.Policy),
		reconcile.WithResolver(p.Metrics.Resolver(p.Sources.Regions)),
		reconcile.WithPublisher(publisher),
		reconcile.WithObserver(p.Metrics),
		reconcile.WithDryRun(cfg.DryRun),
	)
	if err != nil {
		_ = p.Close()
		return nil, errors.NewConfigError("reconcile", "invalid engine options", err)
	}

	var enrich dispatch.Enricher
	if !opts.SkipEnrichment {
		p.Enricher, err = enricher.New(p.Sources.Enrichers(),
			enricher.WithDeadline(cfg.Enrichment.Deadline),
			enricher.WithObserver(p.Metrics),
			enricher.WithProvenance(cfg.Enrichment.Provenance),
		)
		if err != nil {
			_ = p.Close()
			return nil, errors.NewConfigError("enricher", "invalid orchestrator options", err)
		}
		enrich = p.Enricher
		logger.Debug().Strs("enrichers", p.Enricher.Enrichers()).Msg("Enrichers ready")
	}

	p.Processor = dispatch.NewPipeline(enrich, p.Engine)
	p.Dispatcher = dispatch.New(p.Processor, &archive.Reader{})
	return p, nil
}

// Close releases the repository and the event producer.
func (p *Pipeline) Close() error {
	if p.kafka != nil {
		p.kafka.Close()
	}
	if p.Store != nil {
		return p.Store.Close()
	}
	return nil
}
