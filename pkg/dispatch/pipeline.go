package dispatch

import (
	"context"

	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Processor runs the whole per-record pipeline.
type Processor interface {
	Process(ctx context.Context, r *specimen.Record) (reconcile.Outcome, error)
}

// Enricher enriches one record.
type Enricher interface {
	Enrich(ctx context.Context, r *specimen.Record) (*specimen.Record, error)
}

// Reconciler reconciles one record.
type Reconciler interface {
	Reconcile(ctx context.Context, r *specimen.Record) (reconcile.Outcome, error)
}

// Pipeline enriches, scores and reconciles a record, strictly in that
// order.
type Pipeline struct {
	enricher   Enricher
	reconciler Reconciler
}

// NewPipeline creates a pipeline. A nil enricher skips enrichment.
func NewPipeline(enricher Enricher, reconciler Reconciler) *Pipeline {
	return &Pipeline{enricher: enricher, reconciler: reconciler}
}

// Process implements Processor. The input record is never modified.
func (p *Pipeline) Process(ctx context.Context, r *specimen.Record) (reconcile.Outcome, error) {
	enriched := r.Clone()
	if p.enricher != nil {
		var err error
		if enriched, err = p.enricher.Enrich(ctx, r); err != nil {
			return reconcile.Outcome{}, err
		}
	}
	completeness.Apply(enriched)
	return p.reconciler.Reconcile(ctx, enriched)
}
