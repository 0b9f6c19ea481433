package algorithms

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
)

var (
	// ErrNotFitted is returned when predicting or transforming before Fit
	ErrNotFitted = errors.New("algorithm is not fitted")
	// ErrEmptyInput is returned when fitting on zero rows
	ErrEmptyInput = errors.New("empty input")
)

// checkMatrix verifies X is non-empty and rectangular and returns its width
func checkMatrix(X [][]float64) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyInput
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return 0, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), p)
		}
	}
	return p, nil
}

func checkXY(X [][]float64, y []float64) (int, error) {
	p, err := checkMatrix(X)
	if err != nil {
		return 0, err
	}
	if len(y) != len(X) {
		return 0, fmt.Errorf("X has %d rows but y has %d", len(X), len(y))
	}
	return p, nil
}

// checkWidth verifies every row of X has p columns
func checkWidth(X [][]float64, p int) error {
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d columns, model was fitted on %d", i, len(row), p)
		}
	}
	return nil
}

// sortedUnique returns the distinct values of y in ascending order
func sortedUnique(y []float64) []float64 {
	seen := make(map[float64]struct{}, len(y))
	out := make([]float64, 0)
	for _, v := range y {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// classIndex maps each label to its position in classes
func classIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

// argmax returns the first index of the largest value
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// column extracts column j of X
func column(X [][]float64, j int) []float64 {
	col := make([]float64, len(X))
	for i, row := range X {
		col[i] = row[j]
	}
	return col
}

func copyMatrix(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// predictFromProba turns probability rows into class labels
func predictFromProba(classes []float64, proba [][]float64) []float64 {
	out := make([]float64, len(proba))
	for i, p := range proba {
		out[i] = classes[argmax(p)]
	}
	return out
}

func softmaxInPlace(z []float64) {
	maxZ := math.Inf(-1)
	for _, v := range z {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float64
	for i, v := range z {
		z[i] = math.Exp(v - maxZ)
		sum += z[i]
	}
	for i := range z {
		z[i] /= sum
	}
}

func strValue(s string) kwargs.Value { return kwargs.StringValue(s) }
