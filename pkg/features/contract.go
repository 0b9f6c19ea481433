// Package features defines the feature contract of a model: the ordered
// column definitions that say how each field of an inbound vector is typed,
// what role it plays and how it is encoded.
package features

import (
	"strings"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
)

// Role is the part a column plays in training
type Role string

const (
	RoleFeature    Role = "feature"
	RoleTarget     Role = "target"
	RoleExcluded   Role = "excluded"
	RoleIdentifier Role = "identifier"
)

// DataType is the declared type of a column's values
type DataType string

const (
	TypeString DataType = "str"
	TypeInt    DataType = "int"
	TypeFloat  DataType = "float"
	TypeBool   DataType = "bool"
)

// Strategy is how a feature column is encoded for the estimator
type Strategy string

const (
	StrategyOneHot  Strategy = "one hot encoding"
	StrategyHashing Strategy = "hashing"
	StrategyScaling Strategy = "scaling"
	StrategyNone    Strategy = "none"
)

// VectorDelimiter separates fields of an inbound feature vector
const VectorDelimiter = "|"

// Spec defines one column
type Spec struct {
	Name      string   `json:"name"`
	Role      Role     `json:"role"`
	DataType  DataType `json:"data_type"`
	Strategy  Strategy `json:"strategy"`
	HashWidth int      `json:"hash_width"`
}

// Numeric reports whether the column is encoded as a number
func (s Spec) Numeric() bool {
	return s.Strategy == StrategyScaling || s.Strategy == StrategyNone
}

// ParseRole resolves a role name, ignoring case and surrounding space
func ParseRole(s string) (Role, error) {
	switch r := Role(normalize(s)); r {
	case RoleFeature, RoleTarget, RoleExcluded, RoleIdentifier:
		return r, nil
	}
	return "", nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown variable type %q", s)
}

// ParseDataType resolves a data type name
func ParseDataType(s string) (DataType, error) {
	switch d := DataType(normalize(s)); d {
	case TypeString, TypeInt, TypeFloat, TypeBool:
		return d, nil
	}
	return "", nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown data type %q", s)
}

// ParseStrategy resolves a feature strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(normalize(s)); st {
	case StrategyOneHot, StrategyHashing, StrategyScaling, StrategyNone:
		return st, nil
	}
	return "", nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown feature strategy %q", s)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Contract is a validated, ordered set of column definitions. It is never
// mutated after construction.
type Contract struct {
	specs []Spec
}

// NewContract validates specs and builds a contract. Hash widths of
// non-hashing columns are reset to zero.
func NewContract(specs []Spec) (*Contract, error) {
	if len(specs) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "feature contract is empty")
	}
	seen := make(map[string]bool, len(specs))
	out := make([]Spec, len(specs))
	for i, s := range specs {
		if s.Name == "" {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "feature %d has no name", i+1)
		}
		if seen[s.Name] {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "duplicate feature %q", s.Name)
		}
		seen[s.Name] = true

		if _, err := ParseRole(string(s.Role)); err != nil {
			return nil, err
		}
		if _, err := ParseDataType(string(s.DataType)); err != nil {
			return nil, err
		}
		if _, err := ParseStrategy(string(s.Strategy)); err != nil {
			return nil, err
		}

		if s.Strategy == StrategyHashing {
			if s.HashWidth <= 0 {
				return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
					"feature %q uses hashing and needs a positive hash width", s.Name)
			}
		} else {
			s.HashWidth = 0
		}
		if s.Role == RoleFeature && s.DataType == TypeString && s.Numeric() {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"feature %q is a str column and cannot use the %s strategy", s.Name, s.Strategy)
		}
		out[i] = s
	}
	return &Contract{specs: out}, nil
}

// Full returns every column in definition order
func (c *Contract) Full() []Spec {
	return append([]Spec(nil), c.specs...)
}

// Len returns the number of columns in the full contract
func (c *Contract) Len() int {
	return len(c.specs)
}

// Training returns the feature-role columns in definition order
func (c *Contract) Training() []Spec {
	out := make([]Spec, 0, len(c.specs))
	for _, s := range c.specs {
		if s.Role == RoleFeature {
			out = append(out, s)
		}
	}
	return out
}

// TrainingIndices returns the positions of the training columns within
// the full contract
func (c *Contract) TrainingIndices() []int {
	out := make([]int, 0, len(c.specs))
	for i, s := range c.specs {
		if s.Role == RoleFeature {
			out = append(out, i)
		}
	}
	return out
}

// Target returns the single target column and its position
func (c *Contract) Target() (Spec, int, error) {
	found := -1
	for i, s := range c.specs {
		if s.Role != RoleTarget {
			continue
		}
		if found >= 0 {
			return Spec{}, -1, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"more than one target defined: %q and %q", c.specs[found].Name, s.Name)
		}
		found = i
	}
	if found < 0 {
		return Spec{}, -1, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no target defined")
	}
	return c.specs[found], found, nil
}

// Expression returns the load script expression that joins the training
// columns into a vector, e.g. [f1] &'|'& [f2]
func (c *Contract) Expression() string {
	names := make([]string, 0, len(c.specs))
	for _, s := range c.Training() {
		names = append(names, s.Name)
	}
	return stringpool.JoinWrapped(names, "[", "]", " &'"+VectorDelimiter+"'& ")
}

// SplitVector splits a delimiter joined vector into exactly n fields
func SplitVector(s string, n int) ([]string, error) {
	fields := strings.Split(s, VectorDelimiter)
	if len(fields) != n {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
			"feature vector has %d fields, expected %d", len(fields), n).
			WithDetail("vector", s)
	}
	return fields, nil
}
