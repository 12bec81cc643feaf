package enricher

import (
	"time"

	"github.com/agentstation/specimap/pkg/constants"
	"github.com/agentstation/specimap/pkg/errors"
)

// Observer receives one callback per finished enrichment task.
type Observer interface {
	ObserveEnrichment(enricher, status string, elapsed time.Duration)
}

type options struct {
	deadline   time.Duration
	observer   Observer
	provenance bool
}

func defaultOptions() *options {
	return &options{
		deadline:   constants.EnrichmentDeadline,
		provenance: true,
	}
}

// Option is a function that configures an Orchestrator.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithDeadline bounds the wall-clock time of one Enrich call.
func WithDeadline(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return &errors.ValidationError{
				Field:   "deadline",
				Value:   d,
				Message: "must be positive",
			}
		}
		o.deadline = d
		return nil
	}
}

// WithObserver reports task outcomes, typically to metrics.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		o.observer = observer
		return nil
	}
}

// WithProvenance controls whether merged fields are listed under the
// record's enrichment field.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}
