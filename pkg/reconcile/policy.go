package reconcile

import (
	"context"
	"strings"

	"github.com/agentstation/specimap/pkg/completeness"
	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/region"
	"github.com/agentstation/specimap/pkg/specimen"
)

// RegionResolver resolves institution regions for the admission policy.
type RegionResolver interface {
	Resolve(ctx context.Context, q region.Query) (region.Resolution, error)
}

// AdmissionPolicy decides which records may enter the repository.
type AdmissionPolicy struct {
	// RequiredRegion admits only records whose institution is in this
	// region. Empty admits any region, resolved or not.
	RequiredRegion string `json:"required_region" yaml:"required_region" mapstructure:"required_region"`
	// MinLevel is the minimum completeness level.
	MinLevel completeness.Level `json:"min_level" yaml:"min_level" mapstructure:"min_level"`
}

// rejection is a failed precondition.
type rejection struct {
	reason string
	cause  error
}

// admit returns nil when the record is admitted. A resolver failure other
// than cancellation is treated as unresolved.
func (p AdmissionPolicy) admit(ctx context.Context, r *specimen.Record, resolver RegionResolver) (*rejection, error) {
	if p.MinLevel > completeness.LevelNone {
		if level := completeness.Score(r); level < p.MinLevel {
			return &rejection{ReasonCompleteness, errors.NewValidationError(specimen.FieldMIDSLevel, int(level),
				"below minimum completeness level")}, nil
		}
	}

	if p.RequiredRegion == "" {
		return nil, nil
	}

	got := r.String(specimen.FieldRegion)
	if got == "" && resolver != nil {
		res, err := resolver.Resolve(ctx, region.QueryFor(r))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res = region.Resolution{Status: region.Unresolved}
		}
		got = res.Region
	}
	if got == "" {
		return &rejection{ReasonRegionUnresolved, errors.NewAmbiguityError(specimen.FieldRegion, 0,
			"institution region could not be resolved")}, nil
	}
	if !strings.EqualFold(got, p.RequiredRegion) {
		return &rejection{ReasonRegionExcluded, errors.NewValidationError(specimen.FieldRegion, got,
			"region not admitted, want "+p.RequiredRegion)}, nil
	}
	return nil, nil
}
