package algorithms

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GaussianNB is a Gaussian naive Bayes classifier
type GaussianNB struct {
	VarSmoothing float64     `json:"var_smoothing"`
	ClassLabels  []float64   `json:"classes"`
	Priors       []float64   `json:"priors"`
	Means        [][]float64 `json:"means"`
	Variances    [][]float64 `json:"variances"`
}

// Fit estimates per-class feature means and variances
func (g *GaussianNB) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	g.ClassLabels = sortedUnique(y)
	k := len(g.ClassLabels)
	index := classIndex(g.ClassLabels)

	groups := make([][][]float64, k)
	for i, x := range X {
		c := index[y[i]]
		groups[c] = append(groups[c], x)
	}

	// Smoothing is relative to the largest feature variance
	var maxVar float64
	for j := 0; j < p; j++ {
		_, v := stat.PopMeanVariance(column(X, j), nil)
		maxVar = math.Max(maxVar, v)
	}
	epsilon := g.VarSmoothing * maxVar
	if epsilon == 0 {
		epsilon = 1e-12
	}

	g.Priors = make([]float64, k)
	g.Means = make([][]float64, k)
	g.Variances = make([][]float64, k)
	for c, rows := range groups {
		g.Priors[c] = float64(len(rows)) / float64(len(X))
		g.Means[c] = make([]float64, p)
		g.Variances[c] = make([]float64, p)
		for j := 0; j < p; j++ {
			m, v := stat.PopMeanVariance(column(rows, j), nil)
			g.Means[c][j] = m
			g.Variances[c][j] = v + epsilon
		}
	}
	return nil
}

// Classes returns the sorted training labels
func (g *GaussianNB) Classes() []float64 { return g.ClassLabels }

// PredictProba returns normalised posterior probabilities
func (g *GaussianNB) PredictProba(X [][]float64) ([][]float64, error) {
	if g.Means == nil {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(g.Means[0])); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		logp := make([]float64, len(g.ClassLabels))
		for c := range logp {
			lp := math.Log(g.Priors[c])
			for j, v := range x {
				d := v - g.Means[c][j]
				lp -= 0.5*math.Log(2*math.Pi*g.Variances[c][j]) + d*d/(2*g.Variances[c][j])
			}
			logp[c] = lp
		}
		softmaxInPlace(logp)
		out[i] = logp
	}
	return out, nil
}

// Predict returns the most probable class of each row
func (g *GaussianNB) Predict(X [][]float64) ([]float64, error) {
	proba, err := g.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(g.ClassLabels, proba), nil
}

// DummyClassifier ignores the features
type DummyClassifier struct {
	Strategy    string    `json:"strategy"`
	RandomState int64     `json:"random_state"`
	ClassLabels []float64 `json:"classes"`
	Prior       []float64 `json:"prior"`
}

// Fit records the class frequencies
func (d *DummyClassifier) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	d.ClassLabels = sortedUnique(y)
	index := classIndex(d.ClassLabels)
	d.Prior = make([]float64, len(d.ClassLabels))
	for _, v := range y {
		d.Prior[index[v]]++
	}
	for c := range d.Prior {
		d.Prior[c] /= float64(len(y))
	}
	return nil
}

// Classes returns the sorted training labels
func (d *DummyClassifier) Classes() []float64 { return d.ClassLabels }

// PredictProba returns the class prior for prior and most_frequent,
// a flat distribution for uniform
func (d *DummyClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if d.Prior == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(d.Prior))
		switch d.Strategy {
		case "uniform":
			for c := range row {
				row[c] = 1 / float64(len(row))
			}
		case "most_frequent":
			row[argmax(d.Prior)] = 1
		default:
			copy(row, d.Prior)
		}
		out[i] = row
	}
	return out, nil
}

// Predict returns the majority class, or a seeded random draw for the
// uniform and stratified strategies
func (d *DummyClassifier) Predict(X [][]float64) ([]float64, error) {
	if d.Prior == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	rng := rand.New(rand.NewSource(d.RandomState))
	for i := range X {
		switch d.Strategy {
		case "uniform":
			out[i] = d.ClassLabels[rng.Intn(len(d.ClassLabels))]
		case "stratified":
			r, acc := rng.Float64(), 0.0
			out[i] = d.ClassLabels[len(d.ClassLabels)-1]
			for c, p := range d.Prior {
				acc += p
				if r < acc {
					out[i] = d.ClassLabels[c]
					break
				}
			}
		default:
			out[i] = d.ClassLabels[argmax(d.Prior)]
		}
	}
	return out, nil
}

// DummyRegressor predicts a constant
type DummyRegressor struct {
	Strategy string  `json:"strategy"`
	Constant float64 `json:"constant"`
	Quantile float64 `json:"quantile"`
	Value    float64 `json:"value"`
	Fitted   bool    `json:"fitted"`
}

// Fit computes the constant from y
func (d *DummyRegressor) Fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	switch d.Strategy {
	case "median":
		d.Value = quantileOf(y, 0.5)
	case "quantile":
		d.Value = quantileOf(y, d.Quantile)
	case "constant":
		d.Value = d.Constant
	default:
		d.Value = stat.Mean(y, nil)
	}
	d.Fitted = true
	return nil
}

// Predict returns the fitted constant for every row
func (d *DummyRegressor) Predict(X [][]float64) ([]float64, error) {
	if !d.Fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(X))
	for i := range out {
		out[i] = d.Value
	}
	return out, nil
}

// quantileOf returns the linearly interpolated q-quantile of v
func quantileOf(v []float64, q float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

func init() {
	register(&Spec{
		Name:   "GaussianNB",
		Kind:   KindEstimator,
		Task:   TaskClassification,
		Params: withCompat(floatParam("var_smoothing", 1e-9)),
		newEstimator: func(p Params) (Trainable, error) {
			return &GaussianNB{VarSmoothing: p.Float("var_smoothing")}, nil
		},
	})
	register(&Spec{
		Name:   "DummyClassifier",
		Kind:   KindEstimator,
		Task:   TaskClassification,
		Params: withCompat(strParam("strategy", "prior"), intParam("random_state", 0)),
		newEstimator: func(p Params) (Trainable, error) {
			s := p.Str("strategy")
			if err := oneOf("strategy", s, "prior", "most_frequent", "uniform", "stratified"); err != nil {
				return nil, configErr("DummyClassifier", err)
			}
			return &DummyClassifier{Strategy: s, RandomState: int64(p.Int("random_state"))}, nil
		},
	})
	register(&Spec{
		Name:   "DummyRegressor",
		Kind:   KindEstimator,
		Task:   TaskRegression,
		Params: withCompat(strParam("strategy", "mean"), floatParam("constant", 0), floatParam("quantile", 0.5)),
		newEstimator: func(p Params) (Trainable, error) {
			s := p.Str("strategy")
			if err := oneOf("strategy", s, "mean", "median", "quantile", "constant"); err != nil {
				return nil, configErr("DummyRegressor", err)
			}
			q := p.Float("quantile")
			if q < 0 || q > 1 {
				return nil, configErr("DummyRegressor", fmt.Errorf("quantile must be within [0, 1]"))
			}
			return &DummyRegressor{Strategy: s, Constant: p.Float("constant"), Quantile: q}, nil
		},
	})
}
