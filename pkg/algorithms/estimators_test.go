package algorithms

import (
	"math"
	"testing"

	"github.com/ajitpratap0/nebula-ml/pkg/json"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/ajitpratap0/nebula-ml/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEstimator(t *testing.T, name, args string) Trainable {
	t.Helper()
	spec, err := Lookup(KindEstimator, name)
	require.NoError(t, err)
	est, err := spec.NewEstimator(kwargs.MustParse(args))
	require.NoError(t, err)
	return est
}

func accuracy(a, b []float64) float64 {
	var hit int
	for i := range a {
		if a[i] == b[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(a))
}

func TestClassifiersSeparateClusters(t *testing.T) {
	X, y := testutil.XYMatrix(80, 3)
	Xtest, ytest := testutil.XYMatrix(40, 4)

	cases := map[string]string{
		"DecisionTreeClassifier": "",
		"RandomForestClassifier": "n_estimators=15, random_state=1",
		"ExtraTreesClassifier":   "n_estimators=15, random_state=1",
		"KNeighborsClassifier":   "n_neighbors=3",
		"LogisticRegression":     "max_iter=200",
		"GaussianNB":             "",
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			est := newEstimator(t, name, args)
			require.NoError(t, est.Fit(X, y))

			pred, err := est.Predict(Xtest)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, accuracy(pred, ytest), 0.95)

			clf := est.(Classifier)
			assert.Equal(t, []float64{0, 1}, clf.Classes())
			proba, err := clf.PredictProba(Xtest)
			require.NoError(t, err)
			for _, row := range proba {
				require.Len(t, row, 2)
				assert.InDelta(t, 1.0, row[0]+row[1], 1e-9)
			}
		})
	}
}

func TestRegressorsRecoverLine(t *testing.T) {
	X := make([][]float64, 60)
	y := make([]float64, 60)
	for i := range X {
		x := float64(i) / 6
		X[i] = []float64{x}
		y[i] = 2*x + 1
	}

	cases := map[string]struct {
		args string
		tol  float64
	}{
		"LinearRegression":      {"", 1e-6},
		"Ridge":                 {"alpha=0.001", 1e-2},
		"DecisionTreeRegressor": {"", 0.5},
		"RandomForestRegressor": {"n_estimators=10", 1.0},
		"ExtraTreesRegressor":   {"n_estimators=10", 1.0},
		"KNeighborsRegressor":   {"n_neighbors=2", 0.5},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			est := newEstimator(t, name, tc.args)
			require.NoError(t, est.Fit(X, y))
			pred, err := est.Predict([][]float64{{2.5}, {7.5}})
			require.NoError(t, err)
			assert.InDelta(t, 6.0, pred[0], tc.tol)
			assert.InDelta(t, 16.0, pred[1], tc.tol)
		})
	}
}

func TestLinearRegressionCoefficients(t *testing.T) {
	X := [][]float64{{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 3}}
	y := make([]float64, len(X))
	for i, x := range X {
		y[i] = 3*x[0] - 2*x[1] + 0.5
	}
	lm := newEstimator(t, "LinearRegression", "").(*LinearModel)
	require.NoError(t, lm.Fit(X, y))
	assert.InDelta(t, 3.0, lm.Coef[0], 1e-9)
	assert.InDelta(t, -2.0, lm.Coef[1], 1e-9)
	assert.InDelta(t, 0.5, lm.Intercept, 1e-9)
}

func TestForestIsDeterministic(t *testing.T) {
	X, y := testutil.XYMatrix(60, 9)
	a := newEstimator(t, "RandomForestClassifier", "n_estimators=8, random_state=42, n_jobs=4")
	b := newEstimator(t, "RandomForestClassifier", "n_estimators=8, random_state=42, n_jobs=1")
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, _ := a.(Classifier).PredictProba(X)
	pb, _ := b.(Classifier).PredictProba(X)
	assert.Equal(t, pa, pb)
}

func TestDummyEstimators(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 1, 1, 0}

	clf := newEstimator(t, "DummyClassifier", "")
	require.NoError(t, clf.Fit(X, y))
	pred, _ := clf.Predict(X)
	assert.Equal(t, []float64{1, 1, 1, 1}, pred)
	proba, _ := clf.(Classifier).PredictProba(X[:1])
	assert.Equal(t, [][]float64{{0.25, 0.75}}, proba)

	reg := newEstimator(t, "DummyRegressor", "strategy=median")
	require.NoError(t, reg.Fit(X, []float64{1, 2, 3, 10}))
	out, _ := reg.Predict(X[:2])
	assert.Equal(t, []float64{2.5, 2.5}, out)
}

func TestNotFittedAndWidthErrors(t *testing.T) {
	est := newEstimator(t, "DecisionTreeClassifier", "")
	_, err := est.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, est.Fit([][]float64{{0, 0}, {1, 1}}, []float64{0, 1}))
	_, err = est.Predict([][]float64{{1}})
	assert.Error(t, err)

	assert.Error(t, est.Fit(nil, nil))
	assert.Error(t, est.Fit([][]float64{{1}}, []float64{1, 2}))
}

// Fitted state survives a JSON round trip into a freshly constructed value
func TestFittedStateSnapshots(t *testing.T) {
	X, y := testutil.XYMatrix(40, 5)
	for _, name := range Names(KindEstimator) {
		t.Run(name, func(t *testing.T) {
			spec, _ := Lookup(KindEstimator, name)
			est, err := spec.NewEstimator(kwargs.MustParse(""))
			require.NoError(t, err)
			require.NoError(t, est.Fit(X, y))

			data, err := json.Marshal(est)
			require.NoError(t, err)

			restored, err := spec.NewEstimator(kwargs.New())
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(data, restored))

			want, err := est.Predict(X)
			require.NoError(t, err)
			got, err := restored.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLogisticProbabilitiesFinite(t *testing.T) {
	X, y := testutil.XYMatrix(30, 2)
	est := newEstimator(t, "LogisticRegression", "C=10")
	require.NoError(t, est.Fit(X, y))
	proba, err := est.(Classifier).PredictProba([][]float64{{100, 100}, {-100, -100}})
	require.NoError(t, err)
	for _, row := range proba {
		for _, p := range row {
			assert.False(t, math.IsNaN(p))
		}
	}
	assert.Greater(t, proba[0][1], 0.99)
	assert.Greater(t, proba[1][0], 0.99)
}
