package algorithms

import (
	"math"
	"testing"

	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func newTransformer(t *testing.T, kind Kind, name, args string) Transformable {
	t.Helper()
	spec, err := Lookup(kind, name)
	require.NoError(t, err)
	tr, err := spec.NewTransformer(kwargs.MustParse(args))
	require.NoError(t, err)
	return tr
}

var sample = [][]float64{
	{1, 10, 5},
	{2, 20, 5},
	{3, 30, 5},
	{4, 40, 5},
	{10, 100, 5},
}

func TestStandardScaler(t *testing.T) {
	s := newTransformer(t, KindScaler, "StandardScaler", "")
	require.NoError(t, s.Fit(sample))
	out, err := s.Transform(sample)
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		m, v := stat.PopMeanVariance(column(out, j), nil)
		assert.InDelta(t, 0, m, 1e-12)
		assert.InDelta(t, 1, v, 1e-12)
	}
	// Constant column maps to zero rather than NaN
	for _, row := range out {
		assert.Equal(t, 0.0, row[2])
	}
}

func TestMinMaxAndMaxAbs(t *testing.T) {
	mm := newTransformer(t, KindScaler, "MinMaxScaler", "feature_range_min=-1, feature_range_max=1")
	require.NoError(t, mm.Fit(sample))
	out, _ := mm.Transform([][]float64{{1, 10, 5}, {10, 100, 5}, {20, 0, 5}})
	assert.Equal(t, []float64{-1, -1, -1}, out[0])
	assert.Equal(t, 1.0, out[1][0])
	assert.Greater(t, out[2][0], 1.0, "no clipping by default")

	ma := newTransformer(t, KindScaler, "MaxAbsScaler", "")
	require.NoError(t, ma.Fit([][]float64{{-4, 2}, {2, 1}}))
	out, _ = ma.Transform([][]float64{{-4, 2}})
	assert.Equal(t, []float64{-1, 1}, out[0])
}

func TestRobustScaler(t *testing.T) {
	rs := newTransformer(t, KindScaler, "RobustScaler", "")
	require.NoError(t, rs.Fit(sample))
	out, _ := rs.Transform([][]float64{{3, 30, 5}})
	assert.Equal(t, 0.0, out[0][0], "median maps to zero")
	assert.Equal(t, 0.0, out[0][1])
}

func TestQuantileTransformer(t *testing.T) {
	q := newTransformer(t, KindScaler, "QuantileTransformer", "n_quantiles=5")
	require.NoError(t, q.Fit(sample))
	out, _ := q.Transform([][]float64{{1, 10, 5}, {3, 30, 5}, {10, 100, 5}, {100, -5, 5}})
	assert.Equal(t, 0.0, out[0][0])
	assert.Equal(t, 0.5, out[1][0])
	assert.Equal(t, 1.0, out[2][0])
	assert.Equal(t, 1.0, out[3][0], "clamped above")
	assert.Equal(t, 0.0, out[3][1], "clamped below")

	normal := newTransformer(t, KindScaler, "QuantileTransformer", "n_quantiles=5, output_distribution=normal")
	require.NoError(t, normal.Fit(sample))
	out, _ = normal.Transform([][]float64{{3, 30, 5}})
	assert.InDelta(t, 0, out[0][0], 1e-9)
}

func correlatedSample() [][]float64 {
	X := make([][]float64, 50)
	for i := range X {
		x := float64(i%10) - 4.5
		noise := float64(i%3) * 0.01
		X[i] = []float64{x, 2*x + noise, -x + noise}
	}
	return X
}

func TestPCAAndIncrementalAgree(t *testing.T) {
	X := correlatedSample()

	pca := newTransformer(t, KindDecomposition, "PCA", "n_components=1")
	ipca := newTransformer(t, KindDecomposition, "IncrementalPCA", "n_components=1, batch_size=7")
	require.NoError(t, pca.Fit(X))
	require.NoError(t, ipca.Fit(X))

	a, err := pca.Transform(X)
	require.NoError(t, err)
	b, err := ipca.Transform(X)
	require.NoError(t, err)
	for i := range a {
		require.Len(t, a[i], 1)
		assert.InDelta(t, a[i][0], b[i][0], 1e-6)
	}

	p := pca.(*PCA)
	var norm float64
	for _, v := range p.Components[0] {
		norm += v * v
	}
	assert.InDelta(t, 1, math.Sqrt(norm), 1e-9)
}

func TestPCAComponentBounds(t *testing.T) {
	pca := newTransformer(t, KindDecomposition, "PCA", "n_components=4")
	assert.Error(t, pca.Fit(correlatedSample()))
}

func TestTruncatedSVD(t *testing.T) {
	svd := newTransformer(t, KindDecomposition, "TruncatedSVD", "n_components=2")
	require.NoError(t, svd.Fit(correlatedSample()))
	out, err := svd.Transform(correlatedSample()[:3])
	require.NoError(t, err)
	assert.Len(t, out[0], 2)

	tooMany := newTransformer(t, KindDecomposition, "TruncatedSVD", "n_components=3")
	assert.Error(t, tooMany.Fit(correlatedSample()))
}
