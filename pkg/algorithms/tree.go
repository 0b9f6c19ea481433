package algorithms

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a fitted CART tree. Leaves carry Value: the class
// distribution for classifiers or a single mean for regressors.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Leaf      bool      `json:"leaf"`
	Value     []float64 `json:"value"`
}

// TreeParams are the growth controls shared by trees and forests
type TreeParams struct {
	Criterion       string  `json:"criterion"`
	Splitter        string  `json:"splitter"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     float64 `json:"max_features"`
	RandomState     int64   `json:"random_state"`
}

func treeParamSpecs(criterion string) []ParamSpec {
	return []ParamSpec{
		strParam("criterion", criterion),
		strParam("splitter", "best"),
		intParam("max_depth", 0),
		intParam("min_samples_split", 2),
		intParam("min_samples_leaf", 1),
		floatParam("max_features", 0),
		intParam("random_state", 0),
	}
}

func treeParamsFrom(p Params) (TreeParams, error) {
	tp := TreeParams{
		Criterion:       p.Str("criterion"),
		Splitter:        p.Str("splitter"),
		MaxDepth:        p.Int("max_depth"),
		MinSamplesSplit: p.Int("min_samples_split"),
		MinSamplesLeaf:  p.Int("min_samples_leaf"),
		MaxFeatures:     p.Float("max_features"),
		RandomState:     int64(p.Int("random_state")),
	}
	switch tp.Splitter {
	case "best", "random":
	default:
		return tp, fmt.Errorf("splitter must be best or random, got %q", tp.Splitter)
	}
	if tp.MinSamplesSplit < 2 {
		return tp, fmt.Errorf("min_samples_split must be at least 2")
	}
	if tp.MinSamplesLeaf < 1 {
		return tp, fmt.Errorf("min_samples_leaf must be at least 1")
	}
	if tp.MaxDepth < 0 || tp.MaxFeatures < 0 {
		return tp, fmt.Errorf("max_depth and max_features must not be negative")
	}
	return tp, nil
}

// featuresPerSplit resolves max_features: 0 selects def, a value in (0,1]
// is a fraction of p and anything larger is a count.
func featuresPerSplit(maxFeatures float64, p int, def int) int {
	k := def
	switch {
	case maxFeatures <= 0:
	case maxFeatures <= 1:
		k = int(math.Ceil(maxFeatures * float64(p)))
	default:
		k = int(maxFeatures)
	}
	if k < 1 {
		k = 1
	}
	if k > p {
		k = p
	}
	return k
}

func sqrtFeatures(p int) int {
	return int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
}

type treeBuilder struct {
	params      TreeParams
	X           [][]float64
	y           []float64 // class index for classification, target for regression
	nClasses    int       // 0 for regression
	maxFeatures int
	random      bool
	rng         *rand.Rand
	nodes       []TreeNode
}

func growTree(params TreeParams, X [][]float64, y []float64, nClasses int, idx []int, maxFeatures int, random bool, seed int64) []TreeNode {
	b := &treeBuilder{
		params:      params,
		X:           X,
		y:           y,
		nClasses:    nClasses,
		maxFeatures: maxFeatures,
		random:      random,
		rng:         rand.New(rand.NewSource(seed)),
	}
	b.build(idx, 0)
	return b.nodes
}

func (b *treeBuilder) leafValue(idx []int) []float64 {
	if b.nClasses == 0 {
		var sum float64
		for _, i := range idx {
			sum += b.y[i]
		}
		return []float64{sum / float64(len(idx))}
	}
	dist := make([]float64, b.nClasses)
	for _, i := range idx {
		dist[int(b.y[i])]++
	}
	for c := range dist {
		dist[c] /= float64(len(idx))
	}
	return dist
}

func (b *treeBuilder) impurity(idx []int) float64 {
	if b.nClasses == 0 {
		var sum, sumSq float64
		for _, i := range idx {
			sum += b.y[i]
			sumSq += b.y[i] * b.y[i]
		}
		return varianceOf(sum, sumSq, float64(len(idx)))
	}
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[int(b.y[i])]++
	}
	return b.classImpurity(counts, float64(len(idx)))
}

func (b *treeBuilder) classImpurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if b.params.Criterion == "entropy" || b.params.Criterion == "log_loss" {
		var h float64
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func varianceOf(sum, sumSq, n float64) float64 {
	if n == 0 {
		return 0
	}
	mean := sum / n
	v := sumSq/n - mean*mean
	if v < 0 {
		return 0
	}
	return v
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	found     bool
}

func (b *treeBuilder) build(idx []int, depth int) int {
	nodeID := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Leaf: true, Value: b.leafValue(idx)})

	parentImpurity := b.impurity(idx)
	if parentImpurity <= 1e-12 ||
		len(idx) < b.params.MinSamplesSplit ||
		len(idx) < 2*b.params.MinSamplesLeaf ||
		(b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return nodeID
	}

	best := split{}
	for _, f := range b.candidateFeatures() {
		var s split
		if b.random {
			s = b.randomSplit(idx, f, parentImpurity)
		} else {
			s = b.bestSplit(idx, f, parentImpurity)
		}
		if s.found && (!best.found || s.gain > best.gain) {
			best = s
		}
	}
	if !best.found || best.gain <= 1e-12 {
		return nodeID
	}

	left := make([]int, 0, len(idx)/2)
	right := make([]int, 0, len(idx)/2)
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[nodeID] = TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     r,
		Value:     b.nodes[nodeID].Value,
	}
	return nodeID
}

func (b *treeBuilder) candidateFeatures() []int {
	p := len(b.X[0])
	if b.maxFeatures >= p {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(p)[:b.maxFeatures]
}

// bestSplit sweeps the sorted values of feature f and evaluates every
// midpoint between distinct neighbours.
func (b *treeBuilder) bestSplit(idx []int, f int, parentImpurity float64) split {
	sorted := append([]int(nil), idx...)
	sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })

	n := float64(len(sorted))
	minLeaf := b.params.MinSamplesLeaf
	best := split{feature: f}

	if b.nClasses == 0 {
		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}
		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			yi := b.y[sorted[k]]
			leftSum += yi
			leftSq += yi * yi
			nl := k + 1
			if nl < minLeaf || len(sorted)-nl < minLeaf {
				continue
			}
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			fl, fr := float64(nl), n-float64(nl)
			child := (fl*varianceOf(leftSum, leftSq, fl) + fr*varianceOf(totalSum-leftSum, totalSq-leftSq, fr)) / n
			if gain := parentImpurity - child; !best.found || gain > best.gain {
				best = split{feature: f, threshold: (lo + hi) / 2, gain: gain, found: true}
			}
		}
		return best
	}

	total := make([]float64, b.nClasses)
	for _, i := range sorted {
		total[int(b.y[i])]++
	}
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)
	for k := 0; k < len(sorted)-1; k++ {
		leftCounts[int(b.y[sorted[k]])]++
		nl := k + 1
		if nl < minLeaf || len(sorted)-nl < minLeaf {
			continue
		}
		lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
		if lo == hi {
			continue
		}
		for c := range rightCounts {
			rightCounts[c] = total[c] - leftCounts[c]
		}
		fl, fr := float64(nl), n-float64(nl)
		child := (fl*b.classImpurity(leftCounts, fl) + fr*b.classImpurity(rightCounts, fr)) / n
		if gain := parentImpurity - child; !best.found || gain > best.gain {
			best = split{feature: f, threshold: (lo + hi) / 2, gain: gain, found: true}
		}
	}
	return best
}

// randomSplit draws one threshold uniformly between the feature's min and
// max, the extremely randomized trees rule.
func (b *treeBuilder) randomSplit(idx []int, f int, parentImpurity float64) split {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := b.X[i][f]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return split{}
	}
	threshold := lo + b.rng.Float64()*(hi-lo)
	if threshold == hi {
		threshold = lo
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][f] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.MinSamplesLeaf || len(right) < b.params.MinSamplesLeaf {
		return split{}
	}
	n := float64(len(idx))
	child := (float64(len(left))*b.impurity(left) + float64(len(right))*b.impurity(right)) / n
	return split{feature: f, threshold: threshold, gain: parentImpurity - child, found: true}
}

// walkTree returns the leaf value reached by x
func walkTree(nodes []TreeNode, x []float64) []float64 {
	i := 0
	for !nodes[i].Leaf {
		if x[nodes[i].Feature] <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// encodeLabels maps y onto indices of classes
func encodeLabels(y, classes []float64) []float64 {
	index := classIndex(classes)
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(index[v])
	}
	return out
}

// DecisionTreeClassifier is a CART classifier
type DecisionTreeClassifier struct {
	TreeParams
	ClassLabels []float64  `json:"classes"`
	NFeatures   int        `json:"n_features"`
	Nodes       []TreeNode `json:"nodes"`
}

// Fit grows the tree on X and y
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	t.ClassLabels = sortedUnique(y)
	t.NFeatures = p
	k := featuresPerSplit(t.MaxFeatures, p, p)
	t.Nodes = growTree(t.TreeParams, X, encodeLabels(y, t.ClassLabels), len(t.ClassLabels),
		allIndices(len(X)), k, t.Splitter == "random", t.RandomState)
	return nil
}

// Classes returns the sorted training labels
func (t *DecisionTreeClassifier) Classes() []float64 { return t.ClassLabels }

// PredictProba returns the leaf class distribution of each row
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, t.NFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = append([]float64(nil), walkTree(t.Nodes, x)...)
	}
	return out, nil
}

// Predict returns the most probable class of each row
func (t *DecisionTreeClassifier) Predict(X [][]float64) ([]float64, error) {
	proba, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return predictFromProba(t.ClassLabels, proba), nil
}

// DecisionTreeRegressor is a CART regressor minimising squared error
type DecisionTreeRegressor struct {
	TreeParams
	NFeatures int        `json:"n_features"`
	Nodes     []TreeNode `json:"nodes"`
}

// Fit grows the tree on X and y
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	t.NFeatures = p
	k := featuresPerSplit(t.MaxFeatures, p, p)
	t.Nodes = growTree(t.TreeParams, X, y, 0, allIndices(len(X)), k, t.Splitter == "random", t.RandomState)
	return nil
}

// Predict returns the leaf mean of each row
func (t *DecisionTreeRegressor) Predict(X [][]float64) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, t.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = walkTree(t.Nodes, x)[0]
	}
	return out, nil
}

func init() {
	register(&Spec{
		Name:   "DecisionTreeClassifier",
		Kind:   KindEstimator,
		Task:   TaskClassification,
		Params: withCompat(treeParamSpecs("gini")...),
		newEstimator: func(p Params) (Trainable, error) {
			tp, err := treeParamsFrom(p)
			if err != nil {
				return nil, configErr("DecisionTreeClassifier", err)
			}
			if err := oneOf("criterion", tp.Criterion, "gini", "entropy", "log_loss"); err != nil {
				return nil, configErr("DecisionTreeClassifier", err)
			}
			return &DecisionTreeClassifier{TreeParams: tp}, nil
		},
	})
	register(&Spec{
		Name:   "DecisionTreeRegressor",
		Kind:   KindEstimator,
		Task:   TaskRegression,
		Params: withCompat(treeParamSpecs("squared_error")...),
		newEstimator: func(p Params) (Trainable, error) {
			tp, err := treeParamsFrom(p)
			if err != nil {
				return nil, configErr("DecisionTreeRegressor", err)
			}
			if err := oneOf("criterion", tp.Criterion, "squared_error"); err != nil {
				return nil, configErr("DecisionTreeRegressor", err)
			}
			return &DecisionTreeRegressor{TreeParams: tp}, nil
		},
	})
}

func oneOf(param, got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %v, got %q", param, allowed, got)
}
