package algorithms

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
)

// ForestParams extend TreeParams with ensemble controls
type ForestParams struct {
	TreeParams
	NEstimators int  `json:"n_estimators"`
	Bootstrap   bool `json:"bootstrap"`
	NJobs       int  `json:"n_jobs"`
	// Extra selects the extremely randomized trees splitter
	Extra bool `json:"extra"`
}

func forestParamSpecs(criterion string, bootstrap bool) []ParamSpec {
	specs := []ParamSpec{
		intParam("n_estimators", 100),
		boolParam("bootstrap", bootstrap),
	}
	for _, s := range treeParamSpecs(criterion) {
		if s.Name != "splitter" {
			specs = append(specs, s)
		}
	}
	return withCompat(specs...)
}

func forestParamsFrom(p Params, extra bool) (ForestParams, error) {
	p["splitter"] = strValue("best")
	tp, err := treeParamsFrom(p)
	if err != nil {
		return ForestParams{}, err
	}
	fp := ForestParams{
		TreeParams:  tp,
		NEstimators: p.Int("n_estimators"),
		Bootstrap:   p.Bool("bootstrap"),
		NJobs:       p.Int("n_jobs"),
		Extra:       extra,
	}
	if fp.NEstimators < 1 {
		return fp, fmt.Errorf("n_estimators must be at least 1")
	}
	return fp, nil
}

// growForest fits NEstimators trees concurrently. Tree i is seeded with
// RandomState+i so the ensemble is deterministic regardless of scheduling.
func growForest(fp ForestParams, X [][]float64, y []float64, nClasses, maxFeatures int) [][]TreeNode {
	trees := make([][]TreeNode, fp.NEstimators)
	workers := fp.NJobs
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	n := len(X)
	for i := 0; i < fp.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := fp.RandomState + int64(i)
			idx := allIndices(n)
			if fp.Bootstrap {
				rng := rand.New(rand.NewSource(seed))
				for j := range idx {
					idx[j] = rng.Intn(n)
				}
			}
			// Offset the splitter seed so it does not replay the bootstrap draw
			trees[i] = growTree(fp.TreeParams, X, y, nClasses, idx, maxFeatures, fp.Extra, seed+1_000_003)
		}(i)
	}
	wg.Wait()
	return trees
}

// ForestClassifier is a random forest or extra-trees classifier
type ForestClassifier struct {
	ForestParams
	ClassLabels []float64    `json:"classes"`
	NFeatures   int          `json:"n_features"`
	Trees       [][]TreeNode `json:"trees"`
}

// Fit grows the ensemble
func (f *ForestClassifier) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	f.ClassLabels = sortedUnique(y)
	f.NFeatures = p
	k := featuresPerSplit(f.MaxFeatures, p, sqrtFeatures(p))
	f.Trees = growForest(f.ForestParams, X, encodeLabels(y, f.ClassLabels), len(f.ClassLabels), k)
	return nil
}

// Classes returns the sorted training labels
func (f *ForestClassifier) Classes() []float64 { return f.ClassLabels }

// PredictProba averages the leaf distributions of all trees
func (f *ForestClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, f.NFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		acc := make([]float64, len(f.ClassLabels))
		for _, tree := range f.Trees {
			for c, v := range walkTree(tree, x) {
				acc[c] += v
			}
		}
		for c := range acc {
			acc[c] /= float64(len(f.Trees))
		}
		out[i] = acc
	}
	return out, nil
}

// Predict returns the most probable class of each row
func (f *ForestClassifier) Predict(X [][]float64) ([]float64, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(f.ClassLabels, proba), nil
}

// ForestRegressor is a random forest or extra-trees regressor
type ForestRegressor struct {
	ForestParams
	NFeatures int          `json:"n_features"`
	Trees     [][]TreeNode `json:"trees"`
}

// Fit grows the ensemble
func (f *ForestRegressor) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	f.NFeatures = p
	k := featuresPerSplit(f.MaxFeatures, p, p)
	f.Trees = growForest(f.ForestParams, X, y, 0, k)
	return nil
}

// Predict averages the tree predictions
func (f *ForestRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, f.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += walkTree(tree, x)[0]
		}
		out[i] = sum / float64(len(f.Trees))
	}
	return out, nil
}

func registerForest(name string, task Task, extra bool) {
	criterion, allowed := "gini", []string{"gini", "entropy", "log_loss"}
	if task == TaskRegression {
		criterion, allowed = "squared_error", []string{"squared_error"}
	}
	register(&Spec{
		Name:   name,
		Kind:   KindEstimator,
		Task:   task,
		Params: forestParamSpecs(criterion, !extra),
		newEstimator: func(p Params) (Trainable, error) {
			fp, err := forestParamsFrom(p, extra)
			if err == nil {
				err = oneOf("criterion", fp.Criterion, allowed...)
			}
			if err != nil {
				return nil, configErr(name, err)
			}
			if task == TaskRegression {
				return &ForestRegressor{ForestParams: fp}, nil
			}
			return &ForestClassifier{ForestParams: fp}, nil
		},
	})
}

func init() {
	registerForest("RandomForestClassifier", TaskClassification, false)
	registerForest("RandomForestRegressor", TaskRegression, false)
	registerForest("ExtraTreesClassifier", TaskClassification, true)
	registerForest("ExtraTreesRegressor", TaskRegression, true)
}
