package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("get-features", StatusSuccess))
	errBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues("get-features", StatusError))

	ObserveOperation("get-features", 5*time.Millisecond, nil)
	ObserveOperation("get-features", 5*time.Millisecond, errors.New("boom"))
	ObserveOperation("get-features", 5*time.Millisecond, nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(OperationsTotal.WithLabelValues("get-features", StatusSuccess)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("get-features", StatusError)))
}

func TestCacheObserver(t *testing.T) {
	var obs CacheObserver
	hits := testutil.ToFloat64(CacheHits)
	misses := testutil.ToFloat64(CacheMisses)
	evictions := testutil.ToFloat64(CacheEvictions)

	obs.Hit()
	obs.Miss()
	obs.Evict()
	obs.Size(2)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheHits))
	assert.Equal(t, misses+1, testutil.ToFloat64(CacheMisses))
	assert.Equal(t, evictions+1, testutil.ToFloat64(CacheEvictions))
	assert.Equal(t, 2.0, testutil.ToFloat64(CacheEntries))
}

func TestTimer(t *testing.T) {
	timer := NewTimer("train")
	time.Sleep(time.Millisecond)
	assert.Equal(t, "train", timer.Name())
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
}
