package pipeline

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"strconv"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
)

// Dataset is a set of training rows split into raw feature fields and raw
// target values
type Dataset struct {
	Features [][]string `json:"features"`
	Target   []string   `json:"target"`
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Features)
}

// NewDataset splits full-width vectors against the contract, keeping the
// training columns and the target
func NewDataset(contract *features.Contract, vectors []string) (*Dataset, error) {
	_, targetPos, err := contract.Target()
	if err != nil {
		return nil, err
	}
	indices := contract.TrainingIndices()
	if len(indices) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no feature columns defined")
	}

	ds := &Dataset{
		Features: make([][]string, 0, len(vectors)),
		Target:   make([]string, 0, len(vectors)),
	}
	for i, vec := range vectors {
		fields, err := features.SplitVector(vec, contract.Len())
		if err != nil {
			return nil, withRow(err, i)
		}
		row := make([]string, len(indices))
		for k, idx := range indices {
			row[k] = fields[idx]
		}
		ds.Features = append(ds.Features, row)
		ds.Target = append(ds.Target, fields[targetPos])
	}
	return ds, nil
}

// Split partitions the dataset with a seeded permutation. The test side
// receives ceil(n*testSize) rows; both sides must be non-empty.
func (d *Dataset) Split(testSize float64, seed int64) (train, test *Dataset, err error) {
	n := d.Len()
	nTest := int(math.Ceil(float64(n) * testSize))
	if testSize <= 0 || testSize >= 1 || nTest < 1 || nTest >= n {
		return nil, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"test_size %g leaves an empty side when splitting %d rows", testSize, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = d.subset(perm[:nTest])
	train = d.subset(perm[nTest:])
	return train, test, nil
}

func (d *Dataset) subset(idx []int) *Dataset {
	out := &Dataset{
		Features: make([][]string, len(idx)),
		Target:   make([]string, len(idx)),
	}
	for k, i := range idx {
		out.Features[k] = d.Features[i]
		out.Target[k] = d.Target[i]
	}
	return out
}

func withRow(err error, row int) error {
	var e *nebulaerrors.Error
	if errors.As(err, &e) {
		return e.WithDetail("row", row)
	}
	return err
}

// TargetEncoder maps raw target values to estimator labels and back. str
// targets are label encoded over their sorted unique values and bool
// targets map to 0 and 1.
type TargetEncoder struct {
	Spec   features.Spec `json:"spec"`
	Labels []string      `json:"labels,omitempty"`
}

// Fit learns the label set of a str target
func (t *TargetEncoder) Fit(raw []string) error {
	if t.Spec.DataType != features.TypeString {
		return nil
	}
	seen := make(map[string]bool)
	for _, r := range raw {
		v, err := t.convert(r)
		if err != nil {
			return err
		}
		seen[v.Str] = true
	}
	t.Labels = make([]string, 0, len(seen))
	for l := range seen {
		t.Labels = append(t.Labels, l)
	}
	sort.Strings(t.Labels)
	return nil
}

// Encode converts raw target values to labels
func (t *TargetEncoder) Encode(raw []string) ([]float64, error) {
	index := make(map[string]int, len(t.Labels))
	for i, l := range t.Labels {
		index[l] = i
	}
	out := make([]float64, len(raw))
	for i, r := range raw {
		v, err := t.convert(r)
		if err != nil {
			return nil, withRow(err, i)
		}
		if t.Spec.DataType != features.TypeString {
			out[i] = v.Num
			continue
		}
		k, ok := index[v.Str]
		if !ok {
			// label unseen at fit time, cannot match any class
			out[i] = -1
			continue
		}
		out[i] = float64(k)
	}
	return out, nil
}

// Decode renders an estimator label for display
func (t *TargetEncoder) Decode(label float64) string {
	switch t.Spec.DataType {
	case features.TypeString:
		k := int(label)
		if k >= 0 && k < len(t.Labels) {
			return t.Labels[k]
		}
		return strconv.FormatFloat(label, 'f', -1, 64)
	case features.TypeBool:
		return strconv.FormatBool(label != 0)
	}
	return strconv.FormatFloat(label, 'f', -1, 64)
}

func (t *TargetEncoder) convert(raw string) (features.Value, error) {
	v, err := features.Convert(t.Spec, raw)
	if err != nil {
		return v, err
	}
	if v.Missing {
		return v, nebulaerrors.Newf(nebulaerrors.ErrorTypeParse,
			"target %q has a missing value", t.Spec.Name).
			WithDetail("column", t.Spec.Name)
	}
	return v, nil
}
