package features

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is the value unexposed categorical fields carry.
const Unknown = "Unknown"

type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var defaultCatalog = mustParseCatalog(embeddedCatalog)

// Field describes one raw attribute. Fields with a Label are exposed on the form.
type Field struct {
	Name          string   `yaml:"name" json:"name"`
	Kind          Kind     `yaml:"kind" json:"kind"`
	Label         string   `yaml:"label,omitempty" json:"label"`
	Min           *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max           *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Step          float64  `yaml:"step,omitempty" json:"step,omitempty"`
	Options       []string `yaml:"options,omitempty" json:"options,omitempty"`
	DefaultNumber float64  `yaml:"default_number,omitempty" json:"defaultNumber,omitempty"`
	DefaultLabel  string   `yaml:"default_label,omitempty" json:"defaultLabel,omitempty"`
}

func (f Field) Exposed() bool {
	return f.Label != ""
}

// Catalog is the ordered set of raw fields a RawRecord is built from.
type Catalog struct {
	fields []Field
	byName map[string]int
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// ParseCatalog decodes a YAML field catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Fields []Field `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(doc.Fields) == 0 {
		return nil, fmt.Errorf("catalog has no fields")
	}

	c := &Catalog{fields: doc.Fields, byName: make(map[string]int, len(doc.Fields))}
	for i, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("catalog field %d has no name", i)
		}
		if _, dup := c.byName[f.Name]; dup {
			return nil, fmt.Errorf("catalog field %q declared twice", f.Name)
		}
		switch f.Kind {
		case KindNumeric:
			if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
				return nil, fmt.Errorf("catalog field %q: min above max", f.Name)
			}
		case KindCategorical:
			if f.Exposed() && !slices.Contains(f.Options, f.DefaultLabel) {
				return nil, fmt.Errorf("catalog field %q: default %q is not an option", f.Name, f.DefaultLabel)
			}
		default:
			return nil, fmt.Errorf("catalog field %q: unknown kind %q", f.Name, f.Kind)
		}
		c.byName[f.Name] = i
	}
	return c, nil
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Fields() []Field {
	return slices.Clone(c.fields)
}

// Exposed returns the fields shown on the form, in catalog order.
func (c *Catalog) Exposed() []Field {
	out := make([]Field, 0, len(c.fields))
	for _, f := range c.fields {
		if f.Exposed() {
			out = append(out, f)
		}
	}
	return out
}

func (c *Catalog) Field(name string) (Field, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Field{}, false
	}
	return c.fields[i], true
}

// NewRecord returns a record holding every catalog field. Exposed fields take
// their form default, the rest 0 or Unknown.
func (c *Catalog) NewRecord() RawRecord {
	rec := RawRecord{
		Numbers: make(map[string]float64),
		Labels:  make(map[string]string),
	}
	for _, f := range c.fields {
		switch f.Kind {
		case KindNumeric:
			rec.Numbers[f.Name] = f.DefaultNumber
		case KindCategorical:
			if f.Exposed() {
				rec.Labels[f.Name] = f.DefaultLabel
			} else {
				rec.Labels[f.Name] = Unknown
			}
		}
	}
	return rec
}

// Validate checks exposed fields against the ranges and option lists the form
// widgets enforce.
func (c *Catalog) Validate(rec RawRecord) error {
	var errs FieldErrors
	for _, f := range c.Exposed() {
		switch f.Kind {
		case KindNumeric:
			v, ok := rec.Numbers[f.Name]
			if !ok {
				errs = append(errs, FieldError{Field: f.Name, Message: f.Label + " is required"})
				continue
			}
			if (f.Min != nil && v < *f.Min) || (f.Max != nil && v > *f.Max) {
				errs = append(errs, FieldError{
					Field:   f.Name,
					Message: fmt.Sprintf("%s must be between %s and %s", f.Label, formatBound(f.Min), formatBound(f.Max)),
				})
			}
		case KindCategorical:
			v, ok := rec.Labels[f.Name]
			if !ok || !slices.Contains(f.Options, v) {
				errs = append(errs, FieldError{
					Field:   f.Name,
					Message: fmt.Sprintf("%s must be one of %s", f.Label, strings.Join(f.Options, ", ")),
				})
			}
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func formatBound(b *float64) string {
	if b == nil {
		return "any"
	}
	return strconv.FormatFloat(*b, 'f', -1, 64)
}

// FieldError is a single form constraint violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}
