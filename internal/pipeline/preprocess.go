package pipeline

import (
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/nebula-ml/pkg/algorithms"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
)

// Preprocessor turns converted feature rows into the numeric matrix the
// estimator sees. Columns are laid out in contract order: scaling and none
// contribute one column each, one hot encoding one column per learned
// category and hashing HashWidth columns.
type Preprocessor struct {
	Specs       []features.Spec `json:"specs"`
	Missing     string          `json:"missing"`
	ScaleHashed bool            `json:"scale_hashed"`
	Fill        []float64       `json:"fill"`
	Categories  [][]string      `json:"categories"`
	Scaled      []int           `json:"scaled"`
	Width       int             `json:"width"`

	scaler algorithms.Transformable
}

func newPreprocessor(specs []features.Spec, missing string, scaleHashed bool, scaler algorithms.Transformable) *Preprocessor {
	return &Preprocessor{
		Specs:       specs,
		Missing:     missing,
		ScaleHashed: scaleHashed,
		scaler:      scaler,
	}
}

// Fit learns fill values, categories and the scaler from rows
func (p *Preprocessor) Fit(rows [][]features.Value) ([][]float64, error) {
	if len(rows) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no rows to fit the preprocessor on")
	}
	p.Fill = make([]float64, len(p.Specs))
	p.Categories = make([][]string, len(p.Specs))
	p.Scaled = p.Scaled[:0]
	p.Width = 0

	for j, spec := range p.Specs {
		switch spec.Strategy {
		case features.StrategyScaling, features.StrategyNone:
			p.Fill[j] = fillValue(p.Missing, numericColumn(rows, j))
			if spec.Strategy == features.StrategyScaling {
				p.Scaled = append(p.Scaled, p.Width)
			}
			p.Width++
		case features.StrategyOneHot:
			p.Categories[j] = categories(rows, j, spec.DataType)
			p.Width += len(p.Categories[j])
		case features.StrategyHashing:
			if p.ScaleHashed {
				for k := 0; k < spec.HashWidth; k++ {
					p.Scaled = append(p.Scaled, p.Width+k)
				}
			}
			p.Width += spec.HashWidth
		}
	}
	if p.Width == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "the feature contract encodes to zero columns")
	}

	X := p.encode(rows)
	if len(p.Scaled) == 0 {
		return X, nil
	}
	sub := p.scaledColumns(X)
	if err := p.scaler.Fit(sub); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "scaler fit failed")
	}
	return p.applyScaler(X, sub)
}

// Transform encodes rows with the fitted state
func (p *Preprocessor) Transform(rows [][]features.Value) ([][]float64, error) {
	if p.Width == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeState, "preprocessor is not fitted")
	}
	X := p.encode(rows)
	if len(p.Scaled) == 0 {
		return X, nil
	}
	return p.applyScaler(X, p.scaledColumns(X))
}

func (p *Preprocessor) encode(rows [][]features.Value) [][]float64 {
	lookups := make([]map[string]int, len(p.Specs))
	for j, cats := range p.Categories {
		if cats == nil {
			continue
		}
		lookups[j] = make(map[string]int, len(cats))
		for k, c := range cats {
			lookups[j][c] = k
		}
	}

	X := make([][]float64, len(rows))
	for i, row := range rows {
		out := make([]float64, p.Width)
		col := 0
		for j, spec := range p.Specs {
			v := row[j]
			switch spec.Strategy {
			case features.StrategyScaling, features.StrategyNone:
				if v.Missing || math.IsNaN(v.Num) {
					out[col] = p.Fill[j]
				} else {
					out[col] = v.Num
				}
				col++
			case features.StrategyOneHot:
				if k, ok := lookups[j][v.Key(spec.DataType)]; ok && !v.Missing {
					out[col+k] = 1
				}
				col += len(p.Categories[j])
			case features.StrategyHashing:
				if !v.Missing {
					out[col+hashBucket(v.Key(spec.DataType), spec.HashWidth)]++
				}
				col += spec.HashWidth
			}
		}
		X[i] = out
	}
	return X
}

func (p *Preprocessor) scaledColumns(X [][]float64) [][]float64 {
	sub := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(p.Scaled))
		for k, c := range p.Scaled {
			r[k] = row[c]
		}
		sub[i] = r
	}
	return sub
}

func (p *Preprocessor) applyScaler(X, sub [][]float64) ([][]float64, error) {
	if p.scaler == nil {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeState, "preprocessor has no scaler")
	}
	scaled, err := p.scaler.Transform(sub)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "scaler transform failed")
	}
	for i, row := range X {
		for k, c := range p.Scaled {
			row[c] = scaled[i][k]
		}
	}
	return X, nil
}

func hashBucket(key string, width int) int {
	return int(xxhash.Sum64String(key) % uint64(width))
}

func numericColumn(rows [][]features.Value, j int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		if !row[j].Missing && !math.IsNaN(row[j].Num) {
			out = append(out, row[j].Num)
		}
	}
	return out
}

func categories(rows [][]features.Value, j int, dt features.DataType) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		if !row[j].Missing {
			seen[row[j].Key(dt)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// fillValue computes the imputation value for a column. A column with no
// observed values fills with zero.
func fillValue(strategy string, observed []float64) float64 {
	if len(observed) == 0 {
		return 0
	}
	switch strategy {
	case MissingMean:
		return stat.Mean(observed, nil)
	case MissingMedian:
		sorted := append([]float64(nil), observed...)
		sort.Float64s(sorted)
		n := len(sorted)
		if n%2 == 1 {
			return sorted[n/2]
		}
		return (sorted[n/2-1] + sorted[n/2]) / 2
	case MissingMode:
		sorted := append([]float64(nil), observed...)
		sort.Float64s(sorted)
		mode, _ := stat.Mode(sorted, nil)
		return mode
	}
	return 0
}
