package reconcile

import (
	"encoding/json"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/agentstation/specimap/pkg/specimen"
)

// ChangeType is the kind of field change.
type ChangeType string

// Change types. Merging never removes fields.
const (
	ChangeTypeAdd    ChangeType = "add"
	ChangeTypeUpdate ChangeType = "update"
)

// Change is one field that differs between stored and merged content.
type Change struct {
	Field    string     `json:"field" yaml:"field"`
	Type     ChangeType `json:"type" yaml:"type"`
	OldValue any        `json:"old_value,omitempty" yaml:"old_value,omitempty"`
	NewValue any        `json:"new_value" yaml:"new_value"`
}

var equalOpts = cmp.Options{cmpopts.EquateEmpty()}

// normalize converts content to the shape it has after a round trip
// through the repository, so that an int and the float64 it decodes to
// compare equal. The id is always dropped.
func normalize(fields specimen.Fields) (specimen.Fields, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out specimen.Fields
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = specimen.Fields{}
	}
	delete(out, specimen.FieldID)
	return out, nil
}

// overlay merges candidate over existing. Blank candidate values do not
// clear stored ones.
func overlay(existing, candidate specimen.Fields) specimen.Fields {
	merged := existing.Copy()
	if merged == nil {
		merged = specimen.Fields{}
	}
	for name, value := range candidate {
		if name == specimen.FieldID || specimen.IsBlank(value) {
			continue
		}
		merged[name] = value
	}
	return merged
}

// diff lists fields whose value in next differs from prev, sorted by
// field name. Both sides must be normalized.
func diff(prev, next specimen.Fields) []Change {
	var changes []Change
	for name, value := range next {
		old, ok := prev[name]
		switch {
		case !ok:
			changes = append(changes, Change{Field: name, Type: ChangeTypeAdd, NewValue: value})
		case !cmp.Equal(old, value, equalOpts):
			changes = append(changes, Change{Field: name, Type: ChangeTypeUpdate, OldValue: old, NewValue: value})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}
