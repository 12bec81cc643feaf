package reconcile

import (
	"fmt"

	"github.com/agentstation/specimap/pkg/specimen"
)

// Kind is the kind of reconciliation outcome.
type Kind string

// Outcome kinds.
const (
	KindCreated  Kind = "created"
	KindUpdated  Kind = "updated"
	KindRejected Kind = "rejected"
	KindSkipped  Kind = "skipped"
)

// Rejection and skip reasons.
const (
	ReasonMissingKey       = "missing-natural-key"
	ReasonSchema           = "schema-invalid"
	ReasonRegionUnresolved = "region-unresolved"
	ReasonRegionExcluded   = "region-not-admitted"
	ReasonCompleteness     = "below-min-completeness"
	ReasonAmbiguous        = "ambiguous-natural-key"
	ReasonNoOp             = "no-op"
	ReasonRepositorySoft   = "repository-soft-failure"
)

// Outcome describes what Reconcile did with a record. Rejections and skips
// are outcomes, not errors.
type Outcome struct {
	Kind    Kind                `json:"kind" yaml:"kind"`
	Reason  string              `json:"reason,omitempty" yaml:"reason,omitempty"`
	ID      string              `json:"id,omitempty" yaml:"id,omitempty"`
	Key     specimen.NaturalKey `json:"key" yaml:"key"`
	Changes []Change            `json:"changes,omitempty" yaml:"changes,omitempty"`
	// Cause is the typed error behind a rejection or soft failure.
	Cause error `json:"-" yaml:"-"`
}

// Wrote reports whether the outcome involved a repository write.
func (o Outcome) Wrote() bool {
	return o.Kind == KindCreated || o.Kind == KindUpdated
}

// String renders the outcome for logs and tables.
func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Kind)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.Reason)
}

func rejected(key specimen.NaturalKey, reason string, cause error) Outcome {
	return Outcome{Kind: KindRejected, Reason: reason, Key: key, Cause: cause}
}

func skipped(key specimen.NaturalKey, id, reason string, cause error) Outcome {
	return Outcome{Kind: KindSkipped, Reason: reason, Key: key, ID: id, Cause: cause}
}
