package algorithms

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// columnTransform applies f to every cell of X, column aware
func columnTransform(X [][]float64, width int, f func(j int, v float64) float64) ([][]float64, error) {
	if err := checkWidth(X, width); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = f(j, v)
		}
	}
	return out, nil
}

// StandardScaler removes the mean and scales to unit variance
type StandardScaler struct {
	WithMean bool      `json:"with_mean"`
	WithStd  bool      `json:"with_std"`
	Mean     []float64 `json:"mean"`
	Scale    []float64 `json:"scale"`
}

// Fit computes per-column mean and population standard deviation
func (s *StandardScaler) Fit(X [][]float64) error {
	p, err := checkMatrix(X)
	if err != nil {
		return err
	}
	s.Mean = make([]float64, p)
	s.Scale = make([]float64, p)
	for j := 0; j < p; j++ {
		m, v := stat.PopMeanVariance(column(X, j), nil)
		s.Mean[j] = m
		s.Scale[j] = safeScale(math.Sqrt(v))
	}
	return nil
}

// Transform standardises X
func (s *StandardScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Mean == nil {
		return nil, ErrNotFitted
	}
	return columnTransform(X, len(s.Mean), func(j int, v float64) float64 {
		if s.WithMean {
			v -= s.Mean[j]
		}
		if s.WithStd {
			v /= s.Scale[j]
		}
		return v
	})
}

// safeScale maps a zero spread to one so constant columns pass through
func safeScale(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

// MinMaxScaler maps each column onto [FeatureMin, FeatureMax]
type MinMaxScaler struct {
	FeatureMin float64   `json:"feature_min"`
	FeatureMax float64   `json:"feature_max"`
	Clip       bool      `json:"clip"`
	DataMin    []float64 `json:"data_min"`
	DataRange  []float64 `json:"data_range"`
}

// Fit records per-column minimum and range
func (s *MinMaxScaler) Fit(X [][]float64) error {
	p, err := checkMatrix(X)
	if err != nil {
		return err
	}
	s.DataMin = make([]float64, p)
	s.DataRange = make([]float64, p)
	for j := 0; j < p; j++ {
		col := column(X, j)
		lo, hi := col[0], col[0]
		for _, v := range col {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		s.DataMin[j] = lo
		s.DataRange[j] = safeScale(hi - lo)
	}
	return nil
}

// Transform rescales X
func (s *MinMaxScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.DataMin == nil {
		return nil, ErrNotFitted
	}
	span := s.FeatureMax - s.FeatureMin
	return columnTransform(X, len(s.DataMin), func(j int, v float64) float64 {
		out := (v-s.DataMin[j])/s.DataRange[j]*span + s.FeatureMin
		if s.Clip {
			out = math.Max(s.FeatureMin, math.Min(s.FeatureMax, out))
		}
		return out
	})
}

// MaxAbsScaler divides each column by its largest absolute value
type MaxAbsScaler struct {
	MaxAbs []float64 `json:"max_abs"`
}

// Fit records per-column maximum absolute values
func (s *MaxAbsScaler) Fit(X [][]float64) error {
	p, err := checkMatrix(X)
	if err != nil {
		return err
	}
	s.MaxAbs = make([]float64, p)
	for j := 0; j < p; j++ {
		var m float64
		for _, v := range column(X, j) {
			m = math.Max(m, math.Abs(v))
		}
		s.MaxAbs[j] = safeScale(m)
	}
	return nil
}

// Transform rescales X into [-1, 1]
func (s *MaxAbsScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.MaxAbs == nil {
		return nil, ErrNotFitted
	}
	return columnTransform(X, len(s.MaxAbs), func(j int, v float64) float64 {
		return v / s.MaxAbs[j]
	})
}

// RobustScaler centres on the median and scales by an interquantile range
type RobustScaler struct {
	WithCentering bool      `json:"with_centering"`
	WithScaling   bool      `json:"with_scaling"`
	QuantileLow   float64   `json:"quantile_range_low"`
	QuantileHigh  float64   `json:"quantile_range_high"`
	UnitVariance  bool      `json:"unit_variance"`
	Center        []float64 `json:"center"`
	Scale         []float64 `json:"scale"`
}

// Fit computes medians and interquantile ranges
func (s *RobustScaler) Fit(X [][]float64) error {
	p, err := checkMatrix(X)
	if err != nil {
		return err
	}
	s.Center = make([]float64, p)
	s.Scale = make([]float64, p)

	adjust := 1.0
	if s.UnitVariance {
		adjust = distuv.UnitNormal.Quantile(s.QuantileHigh/100) - distuv.UnitNormal.Quantile(s.QuantileLow/100)
	}
	for j := 0; j < p; j++ {
		col := column(X, j)
		s.Center[j] = quantileOf(col, 0.5)
		iqr := quantileOf(col, s.QuantileHigh/100) - quantileOf(col, s.QuantileLow/100)
		s.Scale[j] = safeScale(iqr / adjust)
	}
	return nil
}

// Transform centres and scales X
func (s *RobustScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.Center == nil {
		return nil, ErrNotFitted
	}
	return columnTransform(X, len(s.Center), func(j int, v float64) float64 {
		if s.WithCentering {
			v -= s.Center[j]
		}
		if s.WithScaling {
			v /= s.Scale[j]
		}
		return v
	})
}

// QuantileTransformer maps each column through its empirical CDF onto a
// uniform or normal distribution
type QuantileTransformer struct {
	NQuantiles         int         `json:"n_quantiles"`
	OutputDistribution string      `json:"output_distribution"`
	References         []float64   `json:"references"`
	Quantiles          [][]float64 `json:"quantiles"` // per column
}

// Fit records NQuantiles landmarks per column
func (q *QuantileTransformer) Fit(X [][]float64) error {
	p, err := checkMatrix(X)
	if err != nil {
		return err
	}
	n := q.NQuantiles
	if n > len(X) {
		n = len(X)
	}
	q.References = make([]float64, n)
	for i := range q.References {
		if n == 1 {
			q.References[i] = 0.5
		} else {
			q.References[i] = float64(i) / float64(n-1)
		}
	}
	q.Quantiles = make([][]float64, p)
	for j := 0; j < p; j++ {
		col := column(X, j)
		landmarks := make([]float64, n)
		for i, r := range q.References {
			landmarks[i] = quantileOf(col, r)
		}
		q.Quantiles[j] = landmarks
	}
	return nil
}

// Transform maps X onto the output distribution
func (q *QuantileTransformer) Transform(X [][]float64) ([][]float64, error) {
	if q.Quantiles == nil {
		return nil, ErrNotFitted
	}
	const clip = 1e-7
	return columnTransform(X, len(q.Quantiles), func(j int, v float64) float64 {
		u := interpolate(q.Quantiles[j], q.References, v)
		if q.OutputDistribution == "normal" {
			u = math.Max(clip, math.Min(1-clip, u))
			return distuv.UnitNormal.Quantile(u)
		}
		return u
	})
}

// interpolate maps v through the piecewise linear function xs -> ys.
// Repeated landmarks equal to v map to the midpoint of their outputs.
func interpolate(xs, ys []float64, v float64) float64 {
	n := len(xs)
	if v <= xs[0] {
		return ys[0]
	}
	if v >= xs[n-1] {
		return ys[n-1]
	}
	k := sort.SearchFloat64s(xs, v)
	if xs[k] == v {
		r := k
		for r+1 < n && xs[r+1] == v {
			r++
		}
		return (ys[k] + ys[r]) / 2
	}
	frac := (v - xs[k-1]) / (xs[k] - xs[k-1])
	return ys[k-1] + frac*(ys[k]-ys[k-1])
}

func init() {
	register(&Spec{
		Name:   "StandardScaler",
		Kind:   KindScaler,
		Params: withCompat(boolParam("with_mean", true), boolParam("with_std", true), boolParam("copy", true)),
		newTransformer: func(p Params) (Transformable, error) {
			return &StandardScaler{WithMean: p.Bool("with_mean"), WithStd: p.Bool("with_std")}, nil
		},
	})
	register(&Spec{
		Name: "MinMaxScaler",
		Kind: KindScaler,
		Params: withCompat(
			floatParam("feature_range_min", 0),
			floatParam("feature_range_max", 1),
			boolParam("clip", false),
			boolParam("copy", true),
		),
		newTransformer: func(p Params) (Transformable, error) {
			lo, hi := p.Float("feature_range_min"), p.Float("feature_range_max")
			if lo >= hi {
				return nil, configErr("MinMaxScaler", fmt.Errorf("feature_range_min must be below feature_range_max"))
			}
			return &MinMaxScaler{FeatureMin: lo, FeatureMax: hi, Clip: p.Bool("clip")}, nil
		},
	})
	register(&Spec{
		Name:   "MaxAbsScaler",
		Kind:   KindScaler,
		Params: withCompat(boolParam("copy", true)),
		newTransformer: func(Params) (Transformable, error) {
			return &MaxAbsScaler{}, nil
		},
	})
	register(&Spec{
		Name: "RobustScaler",
		Kind: KindScaler,
		Params: withCompat(
			boolParam("with_centering", true),
			boolParam("with_scaling", true),
			floatParam("quantile_range_low", 25),
			floatParam("quantile_range_high", 75),
			boolParam("unit_variance", false),
			boolParam("copy", true),
		),
		newTransformer: func(p Params) (Transformable, error) {
			lo, hi := p.Float("quantile_range_low"), p.Float("quantile_range_high")
			if lo < 0 || hi > 100 || lo >= hi {
				return nil, configErr("RobustScaler", fmt.Errorf("quantile range must satisfy 0 <= low < high <= 100"))
			}
			return &RobustScaler{
				WithCentering: p.Bool("with_centering"),
				WithScaling:   p.Bool("with_scaling"),
				QuantileLow:   lo,
				QuantileHigh:  hi,
				UnitVariance:  p.Bool("unit_variance"),
			}, nil
		},
	})
	register(&Spec{
		Name: "QuantileTransformer",
		Kind: KindScaler,
		Params: withCompat(
			intParam("n_quantiles", 1000),
			strParam("output_distribution", "uniform"),
			intParam("subsample", 100000),
			intParam("random_state", 0),
			boolParam("copy", true),
		),
		newTransformer: func(p Params) (Transformable, error) {
			dist := p.Str("output_distribution")
			if err := oneOf("output_distribution", dist, "uniform", "normal"); err != nil {
				return nil, configErr("QuantileTransformer", err)
			}
			if p.Int("n_quantiles") < 1 {
				return nil, configErr("QuantileTransformer", fmt.Errorf("n_quantiles must be at least 1"))
			}
			return &QuantileTransformer{NQuantiles: p.Int("n_quantiles"), OutputDistribution: dist}, nil
		},
	})
}
