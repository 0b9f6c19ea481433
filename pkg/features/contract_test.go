package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
)

func sampleSpecs() []Spec {
	return []Spec{
		{Name: "id", Role: RoleIdentifier, DataType: TypeInt, Strategy: StrategyNone},
		{Name: "age", Role: RoleFeature, DataType: TypeInt, Strategy: StrategyScaling},
		{Name: "city", Role: RoleFeature, DataType: TypeString, Strategy: StrategyOneHot},
		{Name: "notes", Role: RoleExcluded, DataType: TypeString, Strategy: StrategyNone},
		{Name: "user", Role: RoleFeature, DataType: TypeString, Strategy: StrategyHashing, HashWidth: 4},
		{Name: "churned", Role: RoleTarget, DataType: TypeBool, Strategy: StrategyNone},
	}
}

func TestNewContract(t *testing.T) {
	c, err := NewContract(sampleSpecs())
	require.NoError(t, err)

	assert.Equal(t, 6, c.Len())
	assert.Len(t, c.Full(), 6)

	training := c.Training()
	require.Len(t, training, 3)
	assert.Equal(t, "age", training[0].Name)
	assert.Equal(t, "city", training[1].Name)
	assert.Equal(t, "user", training[2].Name)
	assert.Equal(t, []int{1, 2, 4}, c.TrainingIndices())

	target, pos, err := c.Target()
	require.NoError(t, err)
	assert.Equal(t, "churned", target.Name)
	assert.Equal(t, 5, pos)

	// views do not alias the contract
	full := c.Full()
	full[0].Name = "changed"
	assert.Equal(t, "id", c.Full()[0].Name)
}

func TestNewContractResetsHashWidth(t *testing.T) {
	specs := sampleSpecs()
	specs[1].HashWidth = 12
	c, err := NewContract(specs)
	require.NoError(t, err)
	assert.Zero(t, c.Full()[1].HashWidth)
}

func TestNewContractErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]Spec) []Spec
	}{
		{"empty", func([]Spec) []Spec { return nil }},
		{"blank name", func(s []Spec) []Spec { s[1].Name = ""; return s }},
		{"duplicate", func(s []Spec) []Spec { s[2].Name = "age"; return s }},
		{"bad role", func(s []Spec) []Spec { s[1].Role = "label"; return s }},
		{"bad type", func(s []Spec) []Spec { s[1].DataType = "double"; return s }},
		{"bad strategy", func(s []Spec) []Spec { s[1].Strategy = "binning"; return s }},
		{"hashing without width", func(s []Spec) []Spec { s[4].HashWidth = 0; return s }},
		{"scaling a string", func(s []Spec) []Spec { s[2].Strategy = StrategyScaling; return s }},
		{"none on a string", func(s []Spec) []Spec { s[2].Strategy = StrategyNone; return s }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewContract(tt.mutate(sampleSpecs()))
			require.Error(t, err)
			assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig), err.Error())
		})
	}
}

func TestTargetErrors(t *testing.T) {
	specs := sampleSpecs()
	specs[5].Role = RoleExcluded
	c, err := NewContract(specs)
	require.NoError(t, err)
	_, _, err = c.Target()
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

	specs = sampleSpecs()
	specs[1].Role = RoleTarget
	c, err = NewContract(specs)
	require.NoError(t, err)
	_, _, err = c.Target()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than one target")
}

func TestParseNames(t *testing.T) {
	r, err := ParseRole("  Feature ")
	require.NoError(t, err)
	assert.Equal(t, RoleFeature, r)

	d, err := ParseDataType("FLOAT")
	require.NoError(t, err)
	assert.Equal(t, TypeFloat, d)

	s, err := ParseStrategy("One  Hot Encoding")
	require.NoError(t, err)
	assert.Equal(t, StrategyOneHot, s)

	_, err = ParseStrategy("embedding")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestExpression(t *testing.T) {
	c, err := NewContract(sampleSpecs())
	require.NoError(t, err)
	assert.Equal(t, "[age] &'|'& [city] &'|'& [user]", c.Expression())
}

func TestSplitVector(t *testing.T) {
	fields, err := SplitVector("1|a|", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "a", ""}, fields)

	_, err = SplitVector("1|a", 3)
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeSchema))
}

func TestConvert(t *testing.T) {
	intSpec := Spec{Name: "n", DataType: TypeInt}
	v, err := Convert(intSpec, " 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v.Num)

	v, err = Convert(intSpec, "3.0")
	require.NoError(t, err)
	assert.Equal(t, 3.0, v.Num)

	_, err = Convert(intSpec, "3.5")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeParse))

	v, err = Convert(Spec{Name: "f", DataType: TypeFloat}, "2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Num)

	v, err = Convert(Spec{Name: "b", DataType: TypeBool}, "TRUE")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Num)

	_, err = Convert(Spec{Name: "b", DataType: TypeBool}, "yes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "b"`)

	v, err = Convert(Spec{Name: "s", DataType: TypeString}, "Paris")
	require.NoError(t, err)
	assert.Equal(t, "Paris", v.Str)
	assert.Equal(t, "Paris", v.Key(TypeString))
}

func TestConvertMissing(t *testing.T) {
	for _, raw := range []string{"", "  ", "nan", "NaN", "null", "None"} {
		v, err := Convert(Spec{Name: "f", DataType: TypeFloat}, raw)
		require.NoError(t, err, raw)
		assert.True(t, v.Missing, raw)
		assert.True(t, math.IsNaN(v.Num), raw)

		s, err := Convert(Spec{Name: "s", DataType: TypeString}, raw)
		require.NoError(t, err)
		assert.Equal(t, "", s.Str)
	}
}

func TestValueKeyNormalizesNumbers(t *testing.T) {
	spec := Spec{Name: "n", DataType: TypeFloat}
	a, err := Convert(spec, "1")
	require.NoError(t, err)
	b, err := Convert(spec, "1.0")
	require.NoError(t, err)
	assert.Equal(t, a.Key(TypeFloat), b.Key(TypeFloat))
}

func TestConvertRow(t *testing.T) {
	c, err := NewContract(sampleSpecs())
	require.NoError(t, err)

	row, err := ConvertRow(c.Training(), []string{"31", "Oslo", "u-17"})
	require.NoError(t, err)
	assert.Equal(t, 31.0, row[0].Num)
	assert.Equal(t, "Oslo", row[1].Str)

	_, err = ConvertRow(c.Training(), []string{"31"})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeSchema))
}
