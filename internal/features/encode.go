package features

import (
	"maps"
	"slices"
)

// RawRecord holds one patient's attributes before one-hot expansion.
type RawRecord struct {
	Numbers map[string]float64
	Labels  map[string]string
}

// Clone returns a deep copy so callers can vary a record without aliasing.
func (r RawRecord) Clone() RawRecord {
	return RawRecord{Numbers: maps.Clone(r.Numbers), Labels: maps.Clone(r.Labels)}
}

// Vector is an encoded record, one value per schema column in schema order.
type Vector []float64

// OneHot expands categorical fields into <field>_<value> indicator columns and
// passes numeric fields through. Only produced columns are present in the
// result; it never carries the full category universe.
func OneHot(raw RawRecord) map[string]float64 {
	sparse := make(map[string]float64, len(raw.Numbers)+len(raw.Labels))
	for name, v := range raw.Numbers {
		sparse[name] = v
	}
	for name, label := range raw.Labels {
		sparse[name+"_"+label] = 1
	}
	return sparse
}

// Encode aligns raw onto schema. Columns the schema lacks are dropped and
// schema columns the record did not produce are zero. A category never seen in
// training therefore encodes exactly as if the field were absent.
func Encode(raw RawRecord, schema Schema) Vector {
	sparse := OneHot(raw)
	out := make(Vector, len(schema.columns))
	for i, col := range schema.columns {
		if v, ok := sparse[col]; ok {
			out[i] = v
		}
	}
	return out
}

// Alignment describes how a record lined up with a schema.
type Alignment struct {
	Matched    []string `json:"matched" yaml:"matched"`
	Dropped    []string `json:"dropped" yaml:"dropped"`
	ZeroFilled int      `json:"zeroFilled" yaml:"zero_filled"`
}

// Explain reports the columns Encode keeps and discards for raw. It has no
// effect on encoding.
func Explain(raw RawRecord, schema Schema) Alignment {
	sparse := OneHot(raw)
	a := Alignment{Matched: []string{}, Dropped: []string{}}
	for col := range sparse {
		if schema.Has(col) {
			a.Matched = append(a.Matched, col)
		} else {
			a.Dropped = append(a.Dropped, col)
		}
	}
	slices.Sort(a.Matched)
	slices.Sort(a.Dropped)

	for _, col := range schema.columns {
		if _, ok := sparse[col]; !ok {
			a.ZeroFilled++
		}
	}
	return a
}
