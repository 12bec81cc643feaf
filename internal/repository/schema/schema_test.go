package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/specimen"
)

func validSpecimen() specimen.Fields {
	return specimen.Fields{
		"id":                 "3f2b6a9e-4c1d-4e8a-9b7f-2d5c8e1a0b64",
		"scientificName":     "Agathis montana de Laub.",
		"institutionCode":    "MNHN",
		"physicalSpecimenID": "P00012",
		"countryCode":        "nc",
		"decimalLatitude":    "-20.6",
		"decimalLongitude":   164.8,
		"midsLevel":          2,
		"enrichment":         []any{map[string]any{"field": "country", "source": "country"}},
	}
}

func TestLoad(t *testing.T) {
	s, err := Load("specimen")
	require.NoError(t, err)
	assert.Equal(t, "specimen", s.Name)
	assert.True(t, s.Fields["scientificName"].Required)
	assert.Equal(t, FormatLatitude, s.Fields["decimalLatitude"].Format)

	_, err = Load("nope")
	assert.True(t, errors.IsNotFound(err))

	assert.Contains(t, Names(), "specimen")
}

func TestValidate(t *testing.T) {
	s, err := Load("specimen")
	require.NoError(t, err)

	assert.NoError(t, s.Validate(validSpecimen(), true))

	t.Run("id relaxed before creation", func(t *testing.T) {
		c := validSpecimen()
		delete(c, "id")
		assert.NoError(t, s.Validate(c, false))
		assert.True(t, errors.IsValidationError(s.Validate(c, true)))
	})

	tests := []struct {
		name  string
		field string
		value any
	}{
		{"missing required", "scientificName", ""},
		{"wrong type", "institutionCode", 42},
		{"bad latitude", "decimalLatitude", "95.2"},
		{"bad longitude", "decimalLongitude", 181.0},
		{"bad country", "countryCode", "XX1"},
		{"level out of range", "midsLevel", 4},
		{"fractional level", "midsLevel", 1.5},
		{"bad id", "id", "not-a-uuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validSpecimen()
			c[tt.field] = tt.value
			err := s.Validate(c, true)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))

			var ve *errors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateStrict(t *testing.T) {
	s, err := Parse([]byte(`
name: strict
strict: true
fields:
  a:
    type: string
`))
	require.NoError(t, err)
	assert.NoError(t, s.Validate(specimen.Fields{"a": "x"}, true))
	assert.Error(t, s.Validate(specimen.Fields{"a": "x", "b": 1}, true))
}

func TestParseRejectsUnknownRules(t *testing.T) {
	_, err := Parse([]byte("name: x\nfields:\n  a:\n    type: decimal\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("name: x\nfields:\n  a:\n    format: isbn\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("fields: {}\n"))
	assert.Error(t, err)
}
