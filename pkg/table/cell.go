// Package table defines the tabular request and response contract shared
// by every operation: rows of string or numeric cells, the inbound schema
// each operation accepts and the descriptors of the tables it returns.
package table

import (
	"bytes"
	"math"
	"strconv"

	"github.com/ajitpratap0/nebula-ml/pkg/json"
)

// Cell holds either a string or a number
type Cell struct {
	Str   string
	Num   float64
	IsNum bool
}

// S returns a string cell
func S(s string) Cell { return Cell{Str: s} }

// N returns a numeric cell
func N(f float64) Cell { return Cell{Num: f, IsNum: true} }

// String renders the cell as text
func (c Cell) String() string {
	if c.IsNum {
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	}
	return c.Str
}

// Number returns the numeric value of the cell, parsing string cells
func (c Cell) Number() (float64, bool) {
	if c.IsNum {
		return c.Num, true
	}
	f, err := strconv.ParseFloat(c.Str, 64)
	return f, err == nil
}

// MarshalJSON encodes numbers as JSON numbers and everything else as
// strings. Non-finite numbers are encoded as strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.IsNum && !math.IsNaN(c.Num) && !math.IsInf(c.Num, 0) {
		return strconv.AppendFloat(nil, c.Num, 'g', -1, 64), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a JSON string, number, bool or null
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*c = Cell{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = S(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*c = S(string(data))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = N(f)
	return nil
}

// Row builds a row of string cells
func Row(values ...string) []Cell {
	out := make([]Cell, len(values))
	for i, v := range values {
		out[i] = S(v)
	}
	return out
}
