// Package handlers provides HTTP request handlers for the specimap API.
package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/specimap/internal/repository"
	"github.com/agentstation/specimap/pkg/dispatch"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Store is the read side of the repository.
type Store interface {
	Get(ctx context.Context, id string) (specimen.Fields, bool, error)
	History(ctx context.Context, id string) ([]repository.Version, error)
	Count(ctx context.Context) (int, error)
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	processor dispatch.Processor
	store     Store
	logger    *zerolog.Logger
}

// New creates a new Handlers instance. A nil processor disables record
// submission.
func New(processor dispatch.Processor, store Store, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		processor: processor,
		store:     store,
		logger:    logger,
	}
}
