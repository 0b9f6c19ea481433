package algorithms

import (
	"testing"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryContents(t *testing.T) {
	assert.Equal(t, []string{
		"DecisionTreeClassifier", "DecisionTreeRegressor",
		"DummyClassifier", "DummyRegressor",
		"ExtraTreesClassifier", "ExtraTreesRegressor",
		"GaussianNB",
		"KNeighborsClassifier", "KNeighborsRegressor",
		"LinearRegression", "LogisticRegression",
		"RandomForestClassifier", "RandomForestRegressor",
		"Ridge",
	}, Names(KindEstimator))
	assert.Equal(t, []string{"MaxAbsScaler", "MinMaxScaler", "QuantileTransformer", "RobustScaler", "StandardScaler"}, Names(KindScaler))
	assert.Equal(t, []string{"IncrementalPCA", "PCA", "TruncatedSVD"}, Names(KindDecomposition))
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup(KindEstimator, "SVC")
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "estimator")
	assert.Contains(t, err.Error(), "SVC")

	// Names are scoped by kind
	_, err = Lookup(KindScaler, "PCA")
	assert.Error(t, err)
}

func TestValidateStrict(t *testing.T) {
	spec, err := Lookup(KindEstimator, "RandomForestClassifier")
	require.NoError(t, err)

	params, err := spec.Validate(kwargs.MustParse("n_estimators=5, max_features=1, n_jobs=2, verbose=1"))
	require.NoError(t, err)
	assert.Equal(t, 5, params.Int("n_estimators"))
	assert.Equal(t, 1.0, params.Float("max_features"), "int widens to float")
	assert.Equal(t, "gini", params.Str("criterion"), "defaults filled in")
	assert.True(t, params.Bool("bootstrap"))

	_, err = spec.Validate(kwargs.MustParse("n_trees=5"))
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "n_trees")
	assert.Contains(t, err.Error(), "RandomForestClassifier")

	_, err = spec.Validate(kwargs.MustParse("n_estimators=5.5"))
	require.Error(t, err, "float does not narrow to int")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

	_, err = spec.Validate(kwargs.MustParse("bootstrap=yes"))
	assert.Error(t, err)
}

func TestConstructorRejectsBadValues(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		args string
	}{
		{KindEstimator, "DecisionTreeClassifier", "criterion=squared_error"},
		{KindEstimator, "RandomForestRegressor", "n_estimators=0"},
		{KindEstimator, "KNeighborsClassifier", "weights=cosine"},
		{KindEstimator, "LogisticRegression", "C=0"},
		{KindEstimator, "DummyClassifier", "strategy=constant"},
		{KindScaler, "MinMaxScaler", "feature_range_min=2, feature_range_max=1"},
		{KindScaler, "QuantileTransformer", "output_distribution=poisson"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Lookup(tt.kind, tt.name)
			require.NoError(t, err)
			if tt.kind == KindEstimator {
				_, err = spec.NewEstimator(kwargs.MustParse(tt.args))
			} else {
				_, err = spec.NewTransformer(kwargs.MustParse(tt.args))
			}
			require.Error(t, err)
			assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestEveryEstimatorConstructsWithDefaults(t *testing.T) {
	for _, name := range Names(KindEstimator) {
		spec, _ := Lookup(KindEstimator, name)
		est, err := spec.NewEstimator(kwargs.New())
		require.NoError(t, err, name)
		_, isClassifier := est.(Classifier)
		assert.Equal(t, spec.Probabilistic(), isClassifier, name)
	}
	for _, kind := range []Kind{KindScaler, KindDecomposition} {
		for _, name := range Names(kind) {
			spec, _ := Lookup(kind, name)
			_, err := spec.NewTransformer(kwargs.New())
			require.NoError(t, err, name)
		}
	}
}
