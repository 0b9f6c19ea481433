package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for end to end tests
// that need a model directory and a debug log directory.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "nebula-ml-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	s.T().Logf("Integration test suite started in %s", s.tempDir)
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()

	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}

	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// SubDir returns a directory below the suite's temp directory, creating it
func (s *IntegrationTestSuite) SubDir(name string) string {
	path := filepath.Join(s.tempDir, name)
	require.NoError(s.T(), os.MkdirAll(path, 0o755))
	return path
}

// CreateTempFile creates a temporary file with content
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	err := os.WriteFile(path, content, 0644)
	require.NoError(s.T(), err)
	return path
}

// ClassificationVectors returns n "|"-joined vectors "<x1>|<x2>|<label>"
// drawn from two well separated clusters. The label is 0 or 1.
func ClassificationVectors(n int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	out := make([]string, n)
	for i := range out {
		label := i % 2
		center := -3.0
		if label == 1 {
			center = 3.0
		}
		x1 := center + rng.NormFloat64()*0.5
		x2 := center + rng.NormFloat64()*0.5
		out[i] = fmt.Sprintf("%s|%s|%d", formatFloat(x1), formatFloat(x2), label)
	}
	return out
}

// RegressionVectors returns n vectors "<x>|<y>" with y = 2x + 1 plus noise
func RegressionVectors(n int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	out := make([]string, n)
	for i := range out {
		x := rng.Float64() * 10
		y := 2*x + 1 + rng.NormFloat64()*0.05
		out[i] = formatFloat(x) + "|" + formatFloat(y)
	}
	return out
}

// DropLastField strips the trailing "|"-separated field of each vector,
// turning training vectors into prediction vectors.
func DropLastField(vectors []string) []string {
	out := make([]string, len(vectors))
	for i, v := range vectors {
		if idx := strings.LastIndex(v, "|"); idx >= 0 {
			out[i] = v[:idx]
		} else {
			out[i] = v
		}
	}
	return out
}

// XYMatrix returns a numeric dataset with two separated classes, for
// algorithm level tests.
func XYMatrix(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		label := float64(i % 2)
		center := -2.0 + 4.0*label
		X[i] = []float64{center + rng.NormFloat64()*0.4, center + rng.NormFloat64()*0.4}
		y[i] = label
	}
	return X, y
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
