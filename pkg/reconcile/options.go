package reconcile

import (
	"context"
)

// Publisher is notified after every successful write.
type Publisher interface {
	Publish(ctx context.Context, o Outcome) error
}

// Observer receives one callback per reconciled record.
type Observer interface {
	ObserveOutcome(kind Kind, reason string)
}

type options struct {
	policy    AdmissionPolicy
	resolver  RegionResolver
	publisher Publisher
	observer  Observer
	dryRun    bool
}

// Option is a function that configures an Engine.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithPolicy sets the admission policy.
func WithPolicy(policy AdmissionPolicy) Option {
	return func(o *options) error {
		o.policy = policy
		return nil
	}
}

// WithResolver sets the region resolver used when a record carries no
// region of its own.
func WithResolver(resolver RegionResolver) Option {
	return func(o *options) error {
		o.resolver = resolver
		return nil
	}
}

// WithPublisher sets the write notification target.
func WithPublisher(p Publisher) Option {
	return func(o *options) error {
		o.publisher = p
		return nil
	}
}

// WithObserver reports outcomes, typically to metrics.
func WithObserver(observer Observer) Option {
	return func(o *options) error {
		o.observer = observer
		return nil
	}
}

// WithDryRun computes outcomes without writing.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}
