// Package reconcile decides whether an enriched specimen needs a
// repository write and performs at most one.
//
// A record is looked up by its natural key. No match creates it; one match
// is compared field by field with the candidate merged over it, and written
// back only when the merge changes something; several matches are an
// ambiguity the engine refuses to resolve. Precondition failures are
// reported as rejected outcomes rather than errors.
package reconcile

import (
	"context"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/specimen"
)

// Repository is the versioned object store.
type Repository interface {
	// FindByNaturalKey returns the stored content of every object matching
	// key exactly, each carrying its persistent id.
	FindByNaturalKey(ctx context.Context, key specimen.NaturalKey) ([]specimen.Fields, error)

	// Validate checks content against the current schema. With requireID
	// false the persistent id may be absent.
	Validate(ctx context.Context, content specimen.Fields, requireID bool) error

	// Create stores new content and returns its persistent id.
	Create(ctx context.Context, content specimen.Fields) (string, error)

	// Update replaces the content stored under id.
	Update(ctx context.Context, id string, content specimen.Fields) error
}

// Engine reconciles records against a Repository. It is safe for
// concurrent use if the Repository is.
type Engine struct {
	repo Repository
	opts *options
}

// New creates an engine.
func New(repo Repository, opts ...Option) (*Engine, error) {
	if repo == nil {
		return nil, &errors.ValidationError{Field: "repository", Message: "cannot be nil"}
	}
	o, err := (&options{}).apply(opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{repo: repo, opts: o}, nil
}

// Policy returns the admission policy in force.
func (e *Engine) Policy() AdmissionPolicy {
	return e.opts.policy
}

// Reconcile runs the preconditions, then creates, updates or skips. The
// returned error is non-nil only for hard repository failures and
// cancellation.
func (e *Engine) Reconcile(ctx context.Context, r *specimen.Record) (Outcome, error) {
	out, err := e.reconcile(ctx, r)
	if err == nil {
		e.observe(out)
	}
	return out, err
}

func (e *Engine) reconcile(ctx context.Context, r *specimen.Record) (Outcome, error) {
	logger := logging.FromContext(ctx)

	key, err := r.NaturalKey()
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected record without natural key")
		return rejected(key, ReasonMissingKey, err), nil
	}
	ctx = logging.WithSpecimen(ctx, key.String())
	logger = logging.FromContext(ctx)

	candidate := r.Content()
	candidate[specimen.FieldScientificName] = key.ScientificName
	candidate[specimen.FieldInstitutionCode] = key.InstitutionCode
	candidate[specimen.FieldPhysicalSpecimenID] = key.PhysicalSpecimenID

	if err := e.repo.Validate(ctx, candidate, false); err != nil {
		if !errors.IsValidationError(err) {
			return Outcome{}, err
		}
		logger.Warn().Err(err).Msg("Rejected record failing schema validation")
		return rejected(key, ReasonSchema, err), nil
	}

	rej, err := e.opts.policy.admit(ctx, r, e.opts.resolver)
	if err != nil {
		return Outcome{}, err
	}
	if rej != nil {
		logger.Warn().Err(rej.cause).Str("reason", rej.reason).Msg("Rejected record by admission policy")
		return rejected(key, rej.reason, rej.cause), nil
	}

	matches, err := e.repo.FindByNaturalKey(ctx, key)
	if err != nil {
		return e.repositoryFailure(ctx, key, "", err)
	}

	switch len(matches) {
	case 0:
		return e.create(ctx, key, candidate)
	case 1:
		return e.update(ctx, key, matches[0], candidate)
	default:
		cause := errors.NewAmbiguityError(key.String(), len(matches), "natural key matches several stored objects")
		logger.Warn().Err(cause).Msg("Rejected ambiguous record")
		return rejected(key, ReasonAmbiguous, cause), nil
	}
}

func (e *Engine) create(ctx context.Context, key specimen.NaturalKey, candidate specimen.Fields) (Outcome, error) {
	content, err := normalize(candidate)
	if err != nil {
		return Outcome{}, errors.WrapValidation("content", err)
	}
	out := Outcome{Kind: KindCreated, Key: key, Changes: diff(nil, content)}
	if e.opts.dryRun {
		return out, nil
	}

	id, err := e.repo.Create(ctx, content)
	if err != nil {
		return e.repositoryFailure(ctx, key, "", err)
	}
	out.ID = id
	logging.FromContext(ctx).Info().Str("id", id).Msg("Created specimen")
	e.publish(ctx, out)
	return out, nil
}

func (e *Engine) update(ctx context.Context, key specimen.NaturalKey, stored, candidate specimen.Fields) (Outcome, error) {
	id, _ := stored[specimen.FieldID].(string)
	if id == "" {
		return Outcome{}, errors.NewRepositoryError("find", key.String(), false,
			errors.New("stored object has no persistent id"))
	}

	existing, err := normalize(stored)
	if err != nil {
		return Outcome{}, errors.WrapValidation("stored", err)
	}
	next, err := normalize(candidate)
	if err != nil {
		return Outcome{}, errors.WrapValidation("content", err)
	}
	merged := overlay(existing, next)

	changes := diff(existing, merged)
	if len(changes) == 0 {
		logging.FromContext(ctx).Debug().Str("id", id).Msg("Specimen unchanged")
		return skipped(key, id, ReasonNoOp, nil), nil
	}

	out := Outcome{Kind: KindUpdated, Key: key, ID: id, Changes: changes}
	if e.opts.dryRun {
		return out, nil
	}

	merged[specimen.FieldID] = id
	if err := e.repo.Update(ctx, id, merged); err != nil {
		return e.repositoryFailure(ctx, key, id, err)
	}
	logging.FromContext(ctx).Info().Str("id", id).Int("changes", len(changes)).Msg("Updated specimen")
	e.publish(ctx, out)
	return out, nil
}

// repositoryFailure downgrades soft failures to a skipped outcome and
// propagates everything else.
func (e *Engine) repositoryFailure(ctx context.Context, key specimen.NaturalKey, id string, err error) (Outcome, error) {
	if errors.IsSoftRepositoryError(err) {
		logging.FromContext(ctx).Warn().Err(err).Msg("Repository declined write")
		return skipped(key, id, ReasonRepositorySoft, err), nil
	}
	return Outcome{}, err
}

func (e *Engine) publish(ctx context.Context, out Outcome) {
	if e.opts.publisher == nil {
		return
	}
	if err := e.opts.publisher.Publish(ctx, out); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("id", out.ID).Msg("Failed to publish reconciliation event")
	}
}

func (e *Engine) observe(out Outcome) {
	if e.opts.observer != nil {
		e.opts.observer.ObserveOutcome(out.Kind, out.Reason)
	}
}
