package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/nebula-ml/internal/pipeline"
	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	"github.com/ajitpratap0/nebula-ml/pkg/config"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
	"github.com/ajitpratap0/nebula-ml/pkg/testutil"
)

func newModel(t *testing.T, name string) *model.Model {
	t.Helper()
	cfg, err := pipeline.NewConfig(
		kwargs.MustParse("estimator=KNeighborsClassifier, n_neighbors=3"),
		kwargs.MustParse("scaler=StandardScaler"),
		nil,
	)
	require.NoError(t, err)
	m, err := model.New(name, cfg, model.DefaultExec())
	require.NoError(t, err)
	return m
}

func trainedModel(t *testing.T, name string) (*model.Model, [][]string) {
	t.Helper()
	m := newModel(t, name)
	c, err := features.NewContract([]features.Spec{
		{Name: "x1", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "x2", Role: features.RoleFeature, DataType: features.TypeFloat, Strategy: features.StrategyScaling},
		{Name: "y", Role: features.RoleTarget, DataType: features.TypeInt, Strategy: features.StrategyNone},
	})
	require.NoError(t, err)
	m.DefineFeatures(c)

	ds, err := pipeline.NewDataset(c, testutil.ClassificationVectors(30, 4))
	require.NoError(t, err)
	p, err := pipeline.New(m.Config, c)
	require.NoError(t, err)
	require.NoError(t, p.Fit(ds))
	m.SetTrained(p, 1, nil)
	return m, ds.Features
}

func TestEncodeDecodeAllCodecs(t *testing.T) {
	m, rows := trainedModel(t, "m1")
	want, err := m.Pipeline().Predict(rows)
	require.NoError(t, err)

	for _, codec := range []compression.Algorithm{compression.None, compression.Gzip, compression.Zstd, compression.LZ4, compression.S2} {
		t.Run(string(codec), func(t *testing.T) {
			data, err := Encode(m, codec, compression.Level(6))
			require.NoError(t, err)
			assert.Equal(t, "NBML", string(data[:4]))
			id, _ := codec.ID()
			assert.Equal(t, id, data[5])
			assert.Equal(t, byte(6), data[6])

			restored, err := Decode(data)
			require.NoError(t, err)
			got, err := restored.Pipeline().Predict(rows)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeRejectsLevel(t *testing.T) {
	m := newModel(t, "m1")
	for _, level := range []compression.Level{0, 10} {
		_, err := Encode(m, compression.Gzip, level)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
	}
	_, err := Encode(m, compression.Algorithm("brotli"), 3)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("NBML"), []byte("XXXX\x01\x01\x03\x00body"), []byte("NBML\x09\x01\x03\x00body"), []byte("NBML\x01\x63\x03\x00body")} {
		_, err := Decode(data)
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeInternal), "%q", data)
	}
}

func TestMatchNames(t *testing.T) {
	names := []string{"churn", "alpha", "churn-v2", "beta"}
	got, err := matchNames(names, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "churn", "churn-v2"}, got)

	got, err = matchNames(names, "churn*")
	require.NoError(t, err)
	assert.Equal(t, []string{"churn", "churn-v2"}, got)

	_, err = matchNames(names, "[")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

type FileStoreSuite struct {
	testutil.IntegrationTestSuite
	store *FileStore
}

func (s *FileStoreSuite) SetupTest() {
	st, err := NewFileStore(s.SubDir(s.T().Name()), compression.Zstd, testutil.TestLogger(s.T()))
	s.Require().NoError(err)
	s.store = st
}

func (s *FileStoreSuite) TestSaveLoad() {
	ctx := s.Context()
	m, rows := trainedModel(s.T(), "churn")
	s.Require().NoError(s.store.Save(ctx, m, 3))

	_, err := os.Stat(filepath.Join(s.store.Dir(), "churn.model"))
	s.NoError(err)

	loaded, err := s.store.Load(ctx, "churn")
	s.Require().NoError(err)
	s.Equal("churn", loaded.Name)
	s.True(loaded.Trained())

	want, _ := m.Pipeline().Predict(rows)
	got, err := loaded.Pipeline().Predict(rows)
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *FileStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(s.Context(), "nope")
	s.True(nebulaerrors.IsType(err, nebulaerrors.ErrorTypeNotFound))

	ok, err := s.store.Exists(s.Context(), "nope")
	s.NoError(err)
	s.False(ok)
}

func (s *FileStoreSuite) TestSaveReplaces() {
	ctx := s.Context()
	m := newModel(s.T(), "m")
	s.Require().NoError(s.store.Save(ctx, m, 3))

	m2 := m.Clone()
	m2.Exec.Debug = true
	s.Require().NoError(s.store.Save(ctx, m2, 9))

	loaded, err := s.store.Load(ctx, "m")
	s.Require().NoError(err)
	s.True(loaded.Exec.Debug)

	ok, err := s.store.Exists(ctx, "m")
	s.NoError(err)
	s.True(ok)
}

func (s *FileStoreSuite) TestListSkipsForeignFiles() {
	ctx := s.Context()
	for _, name := range []string{"b", "a", "c1"} {
		s.Require().NoError(s.store.Save(ctx, newModel(s.T(), name), 1))
	}
	s.Require().NoError(os.WriteFile(filepath.Join(s.store.Dir(), "notes.txt"), []byte("x"), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(s.store.Dir(), ".x-1.tmp"), []byte("x"), 0o644))

	names, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Equal([]string{"a", "b", "c1"}, names)

	names, err = s.store.List(ctx, "c?")
	s.Require().NoError(err)
	s.Equal([]string{"c1"}, names)
}

func (s *FileStoreSuite) TestRejectsUnsafeNames() {
	_, err := s.store.Load(s.Context(), "../etc/passwd")
	s.True(nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestFileStore(t *testing.T) {
	suite.Run(t, new(FileStoreSuite))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "s3"}, nil)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestPostgresStore(t *testing.T) {
	testutil.IntegrationTest(t)
	dsn := os.Getenv("NEBULA_ML_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("NEBULA_ML_TEST_PG_DSN not set")
	}
	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	st, err := NewPostgresStore(ctx, dsn, compression.S2, testutil.TestLogger(t))
	require.NoError(t, err)
	defer st.Close()

	m, rows := trainedModel(t, "pg-test-model")
	require.NoError(t, st.Save(ctx, m, 5))
	require.NoError(t, st.Save(ctx, m, 5))

	ok, err := st.Exists(ctx, "pg-test-model")
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := st.Load(ctx, "pg-test-model")
	require.NoError(t, err)
	want, _ := m.Pipeline().Predict(rows)
	got, err := loaded.Pipeline().Predict(rows)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	names, err := st.List(ctx, "pg-test-*")
	require.NoError(t, err)
	assert.Contains(t, names, "pg-test-model")

	_, err = st.Load(ctx, "pg-test-absent")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeNotFound))
}
