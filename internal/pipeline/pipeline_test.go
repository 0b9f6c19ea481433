package pipeline

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
	"github.com/ajitpratap0/nebula-ml/pkg/json"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/ajitpratap0/nebula-ml/pkg/testutil"
)

func mustConfig(t *testing.T, est, scaler, reduction string) Config {
	t.Helper()
	var red *kwargs.Args
	if reduction != "" {
		red = kwargs.MustParse(reduction)
	}
	cfg, err := NewConfig(kwargs.MustParse(est), kwargs.MustParse(scaler), red)
	require.NoError(t, err)
	return cfg
}

func classificationContract(t *testing.T, target features.DataType) *features.Contract {
	t.Helper()
	c, err := features.NewContract([]features.Spec{
		{Name: "x1", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "x2", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyNone},
		{Name: "label", Role: features.RoleTarget, DataType: target, Strategy: features.StrategyNone},
	})
	require.NoError(t, err)
	return c
}

func classificationData(t *testing.T, c *features.Contract, n int) (*Dataset, *Dataset) {
	t.Helper()
	ds, err := NewDataset(c, testutil.ClassificationVectors(n, 7))
	require.NoError(t, err)
	train, test, err := ds.Split(0.33, 42)
	require.NoError(t, err)
	return train, test
}

func TestNewConfig(t *testing.T) {
	estArgs := kwargs.MustParse("estimator=RandomForestClassifier, n_estimators=10")
	scalerArgs := kwargs.MustParse("scaler=StandardScaler, missing=Mean, scale_hashed=true")

	cfg, err := NewConfig(estArgs, scalerArgs, nil)
	require.NoError(t, err)
	assert.Equal(t, "RandomForestClassifier", cfg.Estimator.Algorithm)
	assert.Equal(t, []string{"n_estimators"}, cfg.Estimator.Args.Keys())
	assert.Equal(t, "StandardScaler", cfg.Scaler.Algorithm)
	assert.Zero(t, cfg.Scaler.Args.Len())
	assert.Equal(t, MissingMean, cfg.Missing)
	assert.True(t, cfg.ScaleHashed)
	assert.Nil(t, cfg.Reduction)
	assert.True(t, cfg.Probabilistic())

	// inputs are left untouched
	assert.True(t, estArgs.Has(KeyEstimator))
	assert.True(t, scalerArgs.Has(KeyMissing))
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := mustConfig(t, "estimator=LinearRegression", "scaler=MinMaxScaler", "reduction=PCA, n_components=1")
	assert.Equal(t, MissingZeros, cfg.Missing)
	assert.False(t, cfg.ScaleHashed)
	require.NotNil(t, cfg.Reduction)
	assert.Equal(t, "PCA", cfg.Reduction.Algorithm)
	assert.False(t, cfg.Probabilistic())
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name      string
		est       string
		scaler    string
		reduction string
	}{
		{"missing estimator", "n_estimators=5", "scaler=StandardScaler", ""},
		{"missing scaler", "estimator=GaussianNB", "missing=mean", ""},
		{"missing reduction", "estimator=GaussianNB", "scaler=StandardScaler", "n_components=2"},
		{"unknown estimator", "estimator=SVC", "scaler=StandardScaler", ""},
		{"unknown scaler", "estimator=GaussianNB", "scaler=Normalizer", ""},
		{"unknown argument", "estimator=GaussianNB, depth=3", "scaler=StandardScaler", ""},
		{"bad argument type", "estimator=DecisionTreeClassifier, max_depth=deep", "scaler=StandardScaler", ""},
		{"unknown missing strategy", "estimator=GaussianNB", "scaler=StandardScaler, missing=drop", ""},
		{"scale_hashed not a bool", "estimator=GaussianNB", "scaler=StandardScaler, scale_hashed=3", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var red *kwargs.Args
			if tt.reduction != "" {
				red = kwargs.MustParse(tt.reduction)
			}
			_, err := NewConfig(kwargs.MustParse(tt.est), kwargs.MustParse(tt.scaler), red)
			require.Error(t, err)
			assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig), err.Error())
		})
	}
}

func TestConfigCloneIsDeep(t *testing.T) {
	cfg := mustConfig(t, "estimator=Ridge, alpha=2.0", "scaler=StandardScaler", "reduction=PCA")
	clone := cfg.Clone()
	clone.Estimator.Args.Set("alpha", kwargs.FloatValue(9))
	clone.Reduction.Algorithm = "TruncatedSVD"

	alpha, _ := cfg.Estimator.Args.Get("alpha")
	f, _ := alpha.Float()
	assert.Equal(t, 2.0, f)
	assert.Equal(t, "PCA", cfg.Reduction.Algorithm)
}

func TestSplit(t *testing.T) {
	c := classificationContract(t, features.TypeInt)
	ds, err := NewDataset(c, testutil.ClassificationVectors(10, 1))
	require.NoError(t, err)

	train, test, err := ds.Split(0.33, 42)
	require.NoError(t, err)
	assert.Equal(t, 4, test.Len())
	assert.Equal(t, 6, train.Len())

	again, _, err := ds.Split(0.33, 42)
	require.NoError(t, err)
	assert.Equal(t, train.Features, again.Features)

	for _, size := range []float64{0, 1, 0.99, -0.2} {
		_, _, err := ds.Split(size, 42)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig), "test_size %g", size)
	}
}

func TestNewDatasetChecksWidth(t *testing.T) {
	c := classificationContract(t, features.TypeInt)
	_, err := NewDataset(c, []string{"1|2|0", "1|2"})
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeSchema))

	var e *nebulaerrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Details["row"])
}

func TestClassificationPipeline(t *testing.T) {
	c := classificationContract(t, features.TypeInt)
	train, test := classificationData(t, c, 90)

	p, err := New(mustConfig(t, "estimator=DecisionTreeClassifier", "scaler=StandardScaler", ""), c)
	require.NoError(t, err)
	assert.Equal(t, "DecisionTreeClassifier", p.EstimatorName())
	assert.False(t, p.Fitted())

	require.NoError(t, p.Fit(train))
	score, err := p.Score(test)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.95)

	classes, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, classes)

	labels, err := p.Predict(test.Features)
	require.NoError(t, err)
	require.Len(t, labels, test.Len())
	for _, l := range labels {
		assert.Contains(t, classes, l)
	}

	proba, err := p.PredictProba(test.Features)
	require.NoError(t, err)
	for _, row := range proba {
		require.Len(t, row, 2)
		assert.InDelta(t, 1.0, row[0]+row[1], 1e-9)
	}

	logProba, err := p.PredictLogProba(test.Features)
	require.NoError(t, err)
	for i, row := range logProba {
		for k, v := range row {
			assert.Equal(t, math.Log(proba[i][k]), v)
		}
	}
}

func TestStringTargetIsLabelEncoded(t *testing.T) {
	c := classificationContract(t, features.TypeString)
	vectors := testutil.ClassificationVectors(60, 3)
	names := map[string]string{"0": "no", "1": "yes"}
	for i, v := range vectors {
		cut := strings.LastIndex(v, "|") + 1
		vectors[i] = v[:cut] + names[v[cut:]]
	}
	ds, err := NewDataset(c, vectors)
	require.NoError(t, err)

	p, err := New(mustConfig(t, "estimator=GaussianNB", "scaler=StandardScaler", ""), c)
	require.NoError(t, err)
	require.NoError(t, p.Fit(ds))

	classes, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"no", "yes"}, classes)

	labels, err := p.Predict([][]string{{"-3", "-3"}, {"3", "3"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"no", "yes"}, labels)
}

func TestBoolTarget(t *testing.T) {
	c := classificationContract(t, features.TypeBool)
	vectors := testutil.ClassificationVectors(40, 5)
	ds, err := NewDataset(c, vectors)
	require.NoError(t, err)

	p, err := New(mustConfig(t, "estimator=KNeighborsClassifier, n_neighbors=3", "scaler=MaxAbsScaler", ""), c)
	require.NoError(t, err)
	require.NoError(t, p.Fit(ds))

	classes, err := p.Classes()
	require.NoError(t, err)
	assert.Equal(t, []string{"false", "true"}, classes)
}

func TestRegressionPipeline(t *testing.T) {
	c, err := features.NewContract([]features.Spec{
		{Name: "x", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "y", Role: features.RoleTarget, DataType: features.TypeFloat, Strategy: features.StrategyNone},
	})
	require.NoError(t, err)
	ds, err := NewDataset(c, testutil.RegressionVectors(80, 11))
	require.NoError(t, err)
	train, test, err := ds.Split(0.25, 1)
	require.NoError(t, err)

	p, err := New(mustConfig(t, "estimator=LinearRegression", "scaler=StandardScaler", ""), c)
	require.NoError(t, err)
	require.NoError(t, p.Fit(train))

	score, err := p.Score(test)
	require.NoError(t, err)
	assert.Greater(t, score, 0.99)

	out, err := p.Predict([][]string{{"2"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	y, err := strconv.ParseFloat(out[0], 64)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, y, 0.1)

	_, err = p.PredictProba([][]string{{"2"}})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
	_, err = p.Classes()
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestNewRequiresTargetAndFeatures(t *testing.T) {
	cfg := mustConfig(t, "estimator=GaussianNB", "scaler=StandardScaler", "")

	c, err := features.NewContract([]features.Spec{
		{Name: "x", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
	})
	require.NoError(t, err)
	_, err = New(cfg, c)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

	c, err = features.NewContract([]features.Spec{
		{Name: "y", Role: features.RoleTarget, DataType: features.TypeInt, Strategy: features.StrategyNone},
	})
	require.NoError(t, err)
	_, err = New(cfg, c)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestUntrainedPipeline(t *testing.T) {
	c := classificationContract(t, features.TypeInt)
	p, err := New(mustConfig(t, "estimator=GaussianNB", "scaler=StandardScaler", ""), c)
	require.NoError(t, err)

	_, err = p.Predict([][]string{{"1", "2"}})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeState))
	_, err = p.Snapshot()
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeState))
}

func TestParseVectors(t *testing.T) {
	c, err := features.NewContract([]features.Spec{
		{Name: "id", Role: features.RoleIdentifier, DataType: features.TypeInt, Strategy: features.StrategyNone},
		{Name: "x1", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "x2", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "label", Role: features.RoleTarget, DataType: features.TypeInt, Strategy: features.StrategyNone},
	})
	require.NoError(t, err)
	p, err := New(mustConfig(t, "estimator=GaussianNB", "scaler=StandardScaler", ""), c)
	require.NoError(t, err)

	rows, err := p.ParseVectors([]string{"1.5|2.5", "7|1.5|2.5|1"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1.5", "2.5"}, {"1.5", "2.5"}}, rows)

	_, err = p.ParseVectors([]string{"1|2|3"})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeSchema))
}

func TestSnapshotRestore(t *testing.T) {
	c := classificationContract(t, features.TypeInt)
	train, test := classificationData(t, c, 60)

	cfg := mustConfig(t, "estimator=LogisticRegression", "scaler=RobustScaler", "reduction=PCA, n_components=1")
	p, err := New(cfg, c)
	require.NoError(t, err)
	require.NoError(t, p.Fit(train))

	st, err := p.Snapshot()
	require.NoError(t, err)
	data, err := json.Marshal(st)
	require.NoError(t, err)

	var decoded State
	require.NoError(t, json.Unmarshal(data, &decoded))
	restored, err := Restore(&decoded)
	require.NoError(t, err)
	assert.True(t, restored.Fitted())

	want, err := p.PredictProba(test.Features)
	require.NoError(t, err)
	got, err := restored.PredictProba(test.Features)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantScore, err := p.Score(test)
	require.NoError(t, err)
	gotScore, err := restored.Score(test)
	require.NoError(t, err)
	assert.Equal(t, wantScore, gotScore)
}

func TestRestoreRejectsIncompleteState(t *testing.T) {
	_, err := Restore(&State{})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeInternal))
}

func TestFormatProbabilities(t *testing.T) {
	assert.Equal(t, "no: 0.250, yes: 0.750", FormatProbabilities([]string{"no", "yes"}, []float64{0.25, 0.75}))
	assert.Equal(t, "a: -inf, b: 0.000", FormatProbabilities([]string{"a", "b"}, []float64{math.Inf(-1), 0}))
	assert.Equal(t, "a: -0.693", FormatProbabilities([]string{"a"}, []float64{math.Log(0.5)}))
	assert.Equal(t, "0.957", FormatScore(0.95652))
}

func TestFormatProbabilitiesRoundsHalfToEven(t *testing.T) {
	assert.Equal(t, "a: 0.062, b: 0.938", FormatProbabilities([]string{"a", "b"}, []float64{0.0625, 0.9375}))
	assert.Equal(t, "0.188", FormatScore(0.1875))
	assert.Equal(t, "1.000", FormatScore(1))
	assert.Equal(t, "a: -0.000", FormatProbabilities([]string{"a"}, []float64{-0.0001}))
}
