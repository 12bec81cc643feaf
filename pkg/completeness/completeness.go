// Package completeness computes the MIDS level of a specimen record: a
// tiered 0-3 score of how many minimum-information categories it meets.
package completeness

import (
	"github.com/agentstation/specimap/pkg/specimen"
)

// Level is a MIDS level.
type Level int

// MIDS levels.
const (
	LevelNone Level = iota
	LevelBasic
	LevelLocated
	LevelDescribed
)

// describingFields satisfy level 3 when any one is present.
var describingFields = []string{
	specimen.FieldVernacularName,
	specimen.FieldAssociatedMedia,
	specimen.FieldAnnotations,
	specimen.FieldInterpretations,
	specimen.FieldReferences,
}

// Score computes the level. Each tier requires the one below it.
func Score(r *specimen.Record) Level {
	if r == nil {
		return LevelNone
	}
	if !r.Has(specimen.FieldScientificName) || !r.Has(specimen.FieldCatalogNumber) {
		return LevelNone
	}
	if !r.Has(specimen.FieldLocality) || !r.Has(specimen.FieldCountry) || !hasCoordinates(r) {
		return LevelBasic
	}
	for _, name := range describingFields {
		if r.Has(name) {
			return LevelDescribed
		}
	}
	return LevelLocated
}

// Apply scores the record and writes the level under the MIDS field.
func Apply(r *specimen.Record) Level {
	level := Score(r)
	r.Set(specimen.FieldMIDSLevel, int(level))
	return level
}

// hasCoordinates requires both coordinates to parse as numbers.
func hasCoordinates(r *specimen.Record) bool {
	_, latOK := r.Float(specimen.FieldDecimalLatitude)
	_, lonOK := r.Float(specimen.FieldDecimalLongitude)
	return latOK && lonOK
}
