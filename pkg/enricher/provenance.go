package enricher

import (
	"sort"

	"github.com/agentstation/specimap/pkg/specimen"
)

// Provenance records which enricher contributed a field.
type Provenance struct {
	Field  string `json:"field" yaml:"field"`
	Source string `json:"source" yaml:"source"`
}

// recordProvenance appends entries to the record's enrichment list. Entries
// carry no timestamp so that re-enriching an unchanged record yields
// identical content. The list is kept sorted by field.
func recordProvenance(r *specimen.Record, entries []Provenance) {
	existing := ProvenanceOf(r)
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p.Field] = true
	}
	for _, p := range entries {
		if !seen[p.Field] {
			existing = append(existing, p)
			seen[p.Field] = true
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Field < existing[j].Field })

	list := make([]any, len(existing))
	for i, p := range existing {
		list[i] = map[string]any{"field": p.Field, "source": p.Source}
	}
	r.Set(specimen.FieldEnrichment, list)
}

// ProvenanceOf reads the enrichment list back from a record.
func ProvenanceOf(r *specimen.Record) []Provenance {
	raw, ok := r.Fields[specimen.FieldEnrichment].([]any)
	if !ok {
		return nil
	}
	out := make([]Provenance, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		field, _ := m["field"].(string)
		source, _ := m["source"].(string)
		if field == "" {
			continue
		}
		out = append(out, Provenance{Field: field, Source: source})
	}
	return out
}
