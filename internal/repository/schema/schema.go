// Package schema validates specimen content against the repository's
// declarative field schemas. Schemas are YAML files embedded at build time.
package schema

import (
	"embed"
	"fmt"
	"math"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/goccy/go-yaml"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/specimen"
)

//go:embed schemas/*.yaml
var schemasFS embed.FS

// Field types.
const (
	TypeAny     = ""
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Field formats.
const (
	FormatUUID      = "uuid"
	FormatURL       = "url"
	FormatLatitude  = "latitude"
	FormatLongitude = "longitude"
	FormatCountry   = "iso3166-alpha2"
)

// Field is the rule set for one field.
type Field struct {
	Type     string   `yaml:"type,omitempty" json:"type,omitempty"`
	Format   string   `yaml:"format,omitempty" json:"format,omitempty"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Minimum  *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum  *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`
}

// Schema is a named set of field rules. Fields it does not name are
// accepted unless Strict is set.
type Schema struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	Strict      bool             `yaml:"strict,omitempty" json:"strict,omitempty"`
	Fields      map[string]Field `yaml:"fields" json:"fields"`
}

// Parse reads a schema from YAML.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Name == "" {
		return nil, errors.NewValidationError("name", "", "schema has no name")
	}
	for name, f := range s.Fields {
		switch f.Type {
		case TypeAny, TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeArray, TypeObject:
		default:
			return nil, errors.NewValidationError(name, f.Type, "unknown field type")
		}
		switch f.Format {
		case "", FormatUUID, FormatURL, FormatLatitude, FormatLongitude, FormatCountry:
		default:
			return nil, errors.NewValidationError(name, f.Format, "unknown field format")
		}
	}
	return &s, nil
}

// Load returns the embedded schema with the given name.
func Load(name string) (*Schema, error) {
	file := path.Join("schemas", name+".yaml")
	data, err := schemasFS.ReadFile(file)
	if err != nil {
		return nil, &errors.NotFoundError{Resource: "schema", ID: name}
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.WrapParse("yaml", file, err)
	}
	return s, nil
}

// Names lists the embedded schemas.
func Names() []string {
	entries, _ := schemasFS.ReadDir("schemas")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Validate checks content against the schema. The id requirement is
// dropped when requireID is false, which is how content is checked before
// the repository has assigned one. All violations are returned joined, in
// field order.
func (s *Schema) Validate(content specimen.Fields, requireID bool) error {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		rule := s.Fields[name]
		v, ok := content[name]
		if !ok || specimen.IsBlank(v) {
			if rule.Required && (requireID || name != specimen.FieldID) {
				errs = append(errs, errors.NewValidationError(name, nil, "required field is missing"))
			}
			continue
		}
		if err := rule.check(name, v); err != nil {
			errs = append(errs, err)
		}
	}

	if s.Strict {
		var extra []string
		for name := range content {
			if _, ok := s.Fields[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			errs = append(errs, errors.NewValidationError(name, content[name], "field is not part of schema "+s.Name))
		}
	}
	return errors.Join(errs...)
}

func (f Field) check(name string, v any) error {
	switch f.Type {
	case TypeString:
		if _, ok := v.(string); !ok {
			return errors.NewValidationError(name, v, "must be a string")
		}
	case TypeNumber:
		if _, ok := number(v); !ok {
			return errors.NewValidationError(name, v, "must be a number")
		}
	case TypeInteger:
		n, ok := number(v)
		if !ok || n != math.Trunc(n) {
			return errors.NewValidationError(name, v, "must be an integer")
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return errors.NewValidationError(name, v, "must be a boolean")
		}
	case TypeArray:
		switch v.(type) {
		case []any, []string, []map[string]any:
		default:
			return errors.NewValidationError(name, v, "must be an array")
		}
	case TypeObject:
		switch v.(type) {
		case map[string]any, specimen.Fields:
		default:
			return errors.NewValidationError(name, v, "must be an object")
		}
	}

	if f.Minimum != nil || f.Maximum != nil {
		n, ok := number(v)
		if !ok {
			return errors.NewValidationError(name, v, "must be a number")
		}
		if f.Minimum != nil && n < *f.Minimum {
			return errors.NewValidationError(name, v, fmt.Sprintf("must be at least %v", *f.Minimum))
		}
		if f.Maximum != nil && n > *f.Maximum {
			return errors.NewValidationError(name, v, fmt.Sprintf("must be at most %v", *f.Maximum))
		}
	}

	if f.Format == "" {
		return nil
	}
	s := text(v)
	var valid bool
	switch f.Format {
	case FormatUUID:
		valid = govalidator.IsUUID(s)
	case FormatURL:
		valid = govalidator.IsURL(s)
	case FormatLatitude:
		valid = govalidator.IsLatitude(s)
	case FormatLongitude:
		valid = govalidator.IsLongitude(s)
	case FormatCountry:
		valid = govalidator.IsISO3166Alpha2(strings.ToUpper(s))
	}
	if !valid {
		return errors.NewValidationError(name, v, "is not a valid "+f.Format)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
