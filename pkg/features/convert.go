package features

import (
	"math"
	"strconv"
	"strings"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
)

// Value is a converted field. Numeric columns use Num (NaN when missing),
// str columns use Str ("" when missing).
type Value struct {
	Str     string
	Num     float64
	Missing bool
}

// Key returns the category key of the value, used by one hot encoding and
// hashing. Numeric values use their shortest decimal form so "1" and "1.0"
// land on the same category.
func (v Value) Key(dt DataType) string {
	if v.Missing {
		return ""
	}
	if dt == TypeString {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// IsMissing reports whether raw is one of the missing value tokens
func IsMissing(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "nan", "null", "none":
		return true
	}
	return false
}

// Convert applies the declared data type of spec to raw
func Convert(spec Spec, raw string) (Value, error) {
	if IsMissing(raw) {
		return Value{Num: math.NaN(), Missing: true}, nil
	}
	s := strings.TrimSpace(raw)

	switch spec.DataType {
	case TypeString:
		return Value{Str: s, Num: math.NaN()}, nil

	case TypeInt:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Value{Str: s, Num: float64(n)}, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return Value{}, conversionError(spec, raw)
		}
		return Value{Str: s, Num: f}, nil

	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, conversionError(spec, raw)
		}
		return Value{Str: s, Num: f}, nil

	case TypeBool:
		switch strings.ToLower(s) {
		case "true", "1":
			return Value{Str: "true", Num: 1}, nil
		case "false", "0":
			return Value{Str: "false", Num: 0}, nil
		}
		return Value{}, conversionError(spec, raw)
	}
	return Value{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown data type %q", spec.DataType)
}

// ConvertRow converts the fields of one vector against specs, position by position
func ConvertRow(specs []Spec, fields []string) ([]Value, error) {
	if len(fields) != len(specs) {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
			"feature vector has %d fields, expected %d", len(fields), len(specs))
	}
	out := make([]Value, len(specs))
	for i, spec := range specs {
		v, err := Convert(spec, fields[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func conversionError(spec Spec, raw string) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeParse,
		"cannot convert %q to %s for column %q", raw, spec.DataType, spec.Name).
		WithDetail("column", spec.Name)
}
