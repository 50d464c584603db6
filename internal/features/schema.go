package features

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Schema is the ordered list of feature columns the classifier was trained on.
// One-hot columns are named <field>_<category>; numeric fields appear verbatim.
type Schema struct {
	columns []string
	known   map[string]struct{}
}

func NewSchema(columns []string) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, fmt.Errorf("schema has no columns")
	}
	known := make(map[string]struct{}, len(columns))
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return Schema{}, fmt.Errorf("schema column %d is blank", i)
		}
		known[c] = struct{}{}
	}
	return Schema{columns: slices.Clone(columns), known: known}, nil
}

// DecodeSchema reads a schema artifact: a JSON array of column names.
func DecodeSchema(payload []byte) (Schema, error) {
	var columns []string
	if err := json.Unmarshal(payload, &columns); err != nil {
		return Schema{}, fmt.Errorf("decode schema: %w", err)
	}
	return NewSchema(columns)
}

func (s Schema) Len() int {
	return len(s.columns)
}

func (s Schema) Columns() []string {
	return slices.Clone(s.columns)
}

func (s Schema) Has(column string) bool {
	_, ok := s.known[column]
	return ok
}

func (s Schema) Equal(columns []string) bool {
	return slices.Equal(s.columns, columns)
}
