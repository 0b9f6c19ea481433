package algorithms

import (
	"fmt"
	"math"
	"sort"
)

// NeighborsParams control k-nearest-neighbour lookups
type NeighborsParams struct {
	NNeighbors int     `json:"n_neighbors"`
	Weights    string  `json:"weights"`
	P          float64 `json:"p"`
}

func neighborsParamsFrom(p Params) (NeighborsParams, error) {
	np := NeighborsParams{
		NNeighbors: p.Int("n_neighbors"),
		Weights:    p.Str("weights"),
		P:          p.Float("p"),
	}
	if np.NNeighbors < 1 {
		return np, fmt.Errorf("n_neighbors must be at least 1")
	}
	if np.Weights != "uniform" && np.Weights != "distance" {
		return np, fmt.Errorf("weights must be uniform or distance, got %q", np.Weights)
	}
	if np.P < 1 {
		return np, fmt.Errorf("p must be at least 1")
	}
	return np, nil
}

// NeighborIndex holds the training set, which is the whole fitted state
// of a neighbours model
type NeighborIndex struct {
	NeighborsParams
	TrainX [][]float64 `json:"train_x"`
	TrainY []float64   `json:"train_y"`
}

type neighbor struct {
	index    int
	distance float64
}

func (s *NeighborIndex) minkowski(a, b []float64) float64 {
	if s.P == 2 {
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	var sum float64
	for i := range a {
		sum += math.Pow(math.Abs(a[i]-b[i]), s.P)
	}
	return math.Pow(sum, 1/s.P)
}

// nearest returns the k closest training rows, ties broken by index
func (s *NeighborIndex) nearest(x []float64) []neighbor {
	all := make([]neighbor, len(s.TrainX))
	for i, row := range s.TrainX {
		all[i] = neighbor{index: i, distance: s.minkowski(x, row)}
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].distance < all[b].distance })
	k := s.NNeighbors
	if k > len(all) {
		k = len(all)
	}
	return all[:k]
}

// weights returns the vote weight of each neighbour. With distance
// weighting an exact match takes all the weight.
func (s *NeighborIndex) weights(ns []neighbor) []float64 {
	w := make([]float64, len(ns))
	if s.Weights == "uniform" {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	exact := false
	for _, n := range ns {
		if n.distance == 0 {
			exact = true
		}
	}
	for i, n := range ns {
		switch {
		case exact && n.distance == 0:
			w[i] = 1
		case exact:
			w[i] = 0
		default:
			w[i] = 1 / n.distance
		}
	}
	return w
}

func (s *NeighborIndex) fit(X [][]float64, y []float64) error {
	if _, err := checkXY(X, y); err != nil {
		return err
	}
	s.TrainX = copyMatrix(X)
	s.TrainY = append([]float64(nil), y...)
	return nil
}

func (s *NeighborIndex) check(X [][]float64) error {
	if len(s.TrainX) == 0 {
		return ErrNotFitted
	}
	return checkWidth(X, len(s.TrainX[0]))
}

// KNeighborsClassifier votes among the nearest training rows
type KNeighborsClassifier struct {
	NeighborIndex
	ClassLabels []float64 `json:"classes"`
}

// Fit memorises the training set
func (k *KNeighborsClassifier) Fit(X [][]float64, y []float64) error {
	if err := k.fit(X, y); err != nil {
		return err
	}
	k.ClassLabels = sortedUnique(y)
	return nil
}

// Classes returns the sorted training labels
func (k *KNeighborsClassifier) Classes() []float64 { return k.ClassLabels }

// PredictProba returns the weighted vote share of each class
func (k *KNeighborsClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if err := k.check(X); err != nil {
		return nil, err
	}
	index := classIndex(k.ClassLabels)
	out := make([][]float64, len(X))
	for i, x := range X {
		ns := k.nearest(x)
		w := k.weights(ns)
		proba := make([]float64, len(k.ClassLabels))
		var total float64
		for j, n := range ns {
			proba[index[k.TrainY[n.index]]] += w[j]
			total += w[j]
		}
		for c := range proba {
			proba[c] /= total
		}
		out[i] = proba
	}
	return out, nil
}

// Predict returns the winning class of each row
func (k *KNeighborsClassifier) Predict(X [][]float64) ([]float64, error) {
	proba, err := k.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(k.ClassLabels, proba), nil
}

// KNeighborsRegressor averages the targets of the nearest training rows
type KNeighborsRegressor struct {
	NeighborIndex
}

// Fit memorises the training set
func (k *KNeighborsRegressor) Fit(X [][]float64, y []float64) error {
	return k.fit(X, y)
}

// Predict returns the weighted mean target of each row's neighbours
func (k *KNeighborsRegressor) Predict(X [][]float64) ([]float64, error) {
	if err := k.check(X); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		ns := k.nearest(x)
		w := k.weights(ns)
		var sum, total float64
		for j, n := range ns {
			sum += w[j] * k.TrainY[n.index]
			total += w[j]
		}
		out[i] = sum / total
	}
	return out, nil
}

func init() {
	params := withCompat(
		intParam("n_neighbors", 5),
		strParam("weights", "uniform"),
		floatParam("p", 2),
		strParam("algorithm", "auto"),
		intParam("leaf_size", 30),
	)
	register(&Spec{
		Name:   "KNeighborsClassifier",
		Kind:   KindEstimator,
		Task:   TaskClassification,
		Params: params,
		newEstimator: func(p Params) (Trainable, error) {
			np, err := neighborsParamsFrom(p)
			if err != nil {
				return nil, configErr("KNeighborsClassifier", err)
			}
			return &KNeighborsClassifier{NeighborIndex: NeighborIndex{NeighborsParams: np}}, nil
		},
	})
	register(&Spec{
		Name:   "KNeighborsRegressor",
		Kind:   KindEstimator,
		Task:   TaskRegression,
		Params: params,
		newEstimator: func(p Params) (Trainable, error) {
			np, err := neighborsParamsFrom(p)
			if err != nil {
				return nil, configErr("KNeighborsRegressor", err)
			}
			return &KNeighborsRegressor{NeighborIndex: NeighborIndex{NeighborsParams: np}}, nil
		},
	})
}
