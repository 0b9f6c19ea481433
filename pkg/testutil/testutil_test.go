package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassificationVectorsDeterministic(t *testing.T) {
	a := ClassificationVectors(10, 42)
	b := ClassificationVectors(10, 42)
	assert.Equal(t, a, b)
	for i, v := range a {
		fields := strings.Split(v, "|")
		assert.Len(t, fields, 3)
		if i%2 == 0 {
			assert.Equal(t, "0", fields[2])
		} else {
			assert.Equal(t, "1", fields[2])
		}
	}
}

func TestDropLastField(t *testing.T) {
	assert.Equal(t, []string{"1|2", "x"}, DropLastField([]string{"1|2|3", "x"}))
}

func TestXYMatrix(t *testing.T) {
	X, y := XYMatrix(6, 1)
	assert.Len(t, X, 6)
	assert.Len(t, y, 6)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 1}, y)
}

func TestAssertEventually(t *testing.T) {
	start := time.Now()
	AssertEventually(t, func() bool { return time.Since(start) > 20*time.Millisecond }, time.Second, "clock")
}
