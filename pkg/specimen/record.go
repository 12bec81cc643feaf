// Package specimen defines the specimen record that flows through the
// enrichment and reconciliation pipeline.
//
// A Record is a mapping from field name to value plus a raw-source mirror.
// The mirror holds the row exactly as the archive reader produced it and is
// only consulted as a read fallback for fields that have not been promoted
// to the top level yet.
package specimen

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/agentstation/specimap/pkg/errors"
)

// Fields is a field-name to value mapping. It is used both as record
// content and as the partial update returned by an enricher.
type Fields map[string]any

// Record is one specimen being digitised.
type Record struct {
	Fields Fields         `json:"fields" yaml:"fields"`
	Raw    map[string]any `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// New creates a record from top-level fields and an optional raw mirror.
func New(fields Fields, raw map[string]any) *Record {
	if fields == nil {
		fields = Fields{}
	}
	return &Record{Fields: fields, Raw: raw}
}

// Get returns the value of a field, falling back to the raw mirror.
func (r *Record) Get(name string) (any, bool) {
	if v, ok := r.Fields[name]; ok && !IsBlank(v) {
		return v, true
	}
	if v, ok := r.Raw[name]; ok && !IsBlank(v) {
		return v, true
	}
	return nil, false
}

// Has reports whether a field holds a non-blank value.
func (r *Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// String returns a field as a trimmed string, or "" when absent.
func (r *Record) String(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case fmt.Stringer:
		return strings.TrimSpace(s.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Float returns a field parsed as a number.
func (r *Record) Float(name string) (float64, bool) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Set assigns a field unconditionally.
func (r *Record) Set(name string, value any) {
	if r.Fields == nil {
		r.Fields = Fields{}
	}
	r.Fields[name] = value
}

// Merge applies an enrichment update additively: fields that already hold
// a value are left untouched. It returns the names of fields it set.
func (r *Record) Merge(update Fields) []string {
	var applied []string
	for name, value := range update {
		if IsBlank(value) || r.Has(name) {
			continue
		}
		r.Set(name, value)
		applied = append(applied, name)
	}
	return applied
}

// Clone returns a deep copy of the record. Enrichers receive clones so
// they can never observe each other's output.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{Fields: Fields(cloneMap(r.Fields))}
	if r.Raw != nil {
		c.Raw = cloneMap(r.Raw)
	}
	return c
}

// Content returns a copy of the top-level fields without the persistent id.
func (r *Record) Content() Fields {
	content := Fields(cloneMap(r.Fields))
	delete(content, FieldID)
	return content
}

// NaturalKey identifies a specimen independent of any repository id.
type NaturalKey struct {
	ScientificName     string `json:"scientificName" yaml:"scientificName"`
	InstitutionCode    string `json:"institutionCode" yaml:"institutionCode"`
	PhysicalSpecimenID string `json:"physicalSpecimenID" yaml:"physicalSpecimenID"`
}

// String renders the key for logs.
func (k NaturalKey) String() string {
	return k.ScientificName + "|" + k.InstitutionCode + "|" + k.PhysicalSpecimenID
}

// NaturalKey extracts the key, failing with a validation error naming the
// first blank component.
func (r *Record) NaturalKey() (NaturalKey, error) {
	key := NaturalKey{
		ScientificName:     r.String(FieldScientificName),
		InstitutionCode:    r.String(FieldInstitutionCode),
		PhysicalSpecimenID: r.String(FieldPhysicalSpecimenID),
	}
	switch {
	case key.ScientificName == "":
		return key, errors.NewValidationError(FieldScientificName, nil, "natural key component is blank")
	case key.InstitutionCode == "":
		return key, errors.NewValidationError(FieldInstitutionCode, nil, "natural key component is blank")
	case key.PhysicalSpecimenID == "":
		return key, errors.NewValidationError(FieldPhysicalSpecimenID, nil, "natural key component is blank")
	}
	return key, nil
}

// IsBlank reports whether a value counts as absent: nil, whitespace-only
// strings and empty collections.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Fields:
		return len(t) == 0
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Fields:
		return Fields(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

// Copy returns a shallow copy of the fields.
func (f Fields) Copy() Fields {
	return maps.Clone(f)
}
