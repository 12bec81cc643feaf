// Package enricher augments specimen records with data from external
// sources.
//
// An Orchestrator runs a fixed set of independent enrichers concurrently
// against a snapshot of the record taken on entry. Each enricher sees only
// that snapshot, never another enricher's output. Results from tasks that
// finish before the deadline are merged additively: a field already set at
// entry is never overwritten. Failures and panics cost only that
// enricher's contribution.
package enricher

import (
	"context"
	"slices"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/specimen"
	"github.com/agentstation/specimap/pkg/workpool"
)

// Enricher derives additional fields for a record.
type Enricher interface {
	// Name identifies the enricher in logs, metrics and provenance.
	Name() string

	// CanEnrich reports whether the enricher has anything to add, typically
	// whether its target fields are still empty.
	CanEnrich(r *specimen.Record) bool

	// Enrich returns the fields to add, or nil for no contribution. The
	// record is a private snapshot and may be read freely.
	Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error)
}

// Orchestrator runs enrichers concurrently for one record at a time. It is
// safe for concurrent use; each Enrich call gets its own pool.
type Orchestrator struct {
	enrichers []Enricher
	opts      *options
}

// New creates an orchestrator over the given enrichers.
func New(enrichers []Enricher, opts ...Option) (*Orchestrator, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		enrichers: slices.Clone(enrichers),
		opts:      o,
	}, nil
}

// Enrichers returns the names of the configured enrichers.
func (o *Orchestrator) Enrichers() []string {
	names := make([]string, len(o.enrichers))
	for i, e := range o.enrichers {
		names[i] = e.Name()
	}
	return names
}

// Enrich returns an enriched copy of r. It never fails on account of an
// enricher; the only error is a canceled parent context.
func (o *Orchestrator) Enrich(ctx context.Context, r *specimen.Record) (*specimen.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	snapshot := r.Clone()

	var (
		tasks []workpool.Task[specimen.Fields]
		names []string
	)
	for _, e := range o.enrichers {
		if !e.CanEnrich(snapshot) {
			continue
		}
		tasks = append(tasks, workpool.Task[specimen.Fields]{
			Name: e.Name(),
			Run: func(ctx context.Context) (specimen.Fields, error) {
				ctx = logging.WithEnricher(ctx, e.Name())
				return e.Enrich(ctx, snapshot.Clone())
			},
		})
		names = append(names, e.Name())
	}

	out := r.Clone()
	if len(tasks) == 0 {
		return out, nil
	}

	res := workpool.Run(ctx, workpool.Pool{Limit: len(tasks), Deadline: o.opts.deadline}, tasks)
	if res.TimedOut {
		logger.Warn().
			Dur("deadline", o.opts.deadline).
			Int("cancelled", res.Count(workpool.StatusCancelled)).
			Msg("Enrichment deadline elapsed, discarding unfinished enrichers")
	}

	var merged []Provenance
	for _, outcome := range res.Outcomes {
		o.observe(outcome)
		switch outcome.Status {
		case workpool.StatusFailed:
			err := errors.WrapEnrichment(outcome.Name, outcome.Err)
			logger.Warn().Err(err).Str("enricher", outcome.Name).Msg("Enricher failed")
			continue
		case workpool.StatusCancelled:
			logger.Debug().Str("enricher", outcome.Name).Msg("Enricher cancelled")
			continue
		}
		applied := out.Merge(outcome.Value)
		slices.Sort(applied)
		for _, field := range applied {
			merged = append(merged, Provenance{Field: field, Source: outcome.Name})
		}
		logger.Debug().
			Str("enricher", outcome.Name).
			Strs("fields", applied).
			Dur("elapsed", outcome.Elapsed).
			Msg("Enricher completed")
	}

	if o.opts.provenance && len(merged) > 0 {
		recordProvenance(out, merged)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	logger.Debug().Strs("enrichers", names).Int("fields", len(merged)).Msg("Enrichment finished")
	return out, nil
}

func (o *Orchestrator) observe(outcome workpool.Outcome[specimen.Fields]) {
	if o.opts.observer == nil {
		return
	}
	o.opts.observer.ObserveEnrichment(outcome.Name, outcome.Status.String(), outcome.Elapsed)
}

// Func adapts plain functions to the Enricher interface.
type Func struct {
	ID    string
	Check func(r *specimen.Record) bool
	Run   func(ctx context.Context, r *specimen.Record) (specimen.Fields, error)
}

// Name implements Enricher.
func (f Func) Name() string { return f.ID }

// CanEnrich implements Enricher. A nil Check always enriches.
func (f Func) CanEnrich(r *specimen.Record) bool {
	return f.Check == nil || f.Check(r)
}

// Enrich implements Enricher.
func (f Func) Enrich(ctx context.Context, r *specimen.Record) (specimen.Fields, error) {
	return f.Run(ctx, r)
}

var _ Enricher = Func{}
