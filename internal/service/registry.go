// Package service implements the nebula-ml operations on top of a Registry
// that owns the model cache, the snapshot store and the debug log sequence.
package service

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/pkg/cache"
	"github.com/ajitpratap0/nebula-ml/pkg/config"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/metrics"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
	"github.com/ajitpratap0/nebula-ml/pkg/store"
)

// Registry is the process wide state shared by concurrent calls. Build one
// at startup and Close it at shutdown.
type Registry struct {
	store    store.Store
	cache    *cache.LRU[*model.Model]
	seq      atomic.Uint64
	debugDir string

	// commitMu serializes writers so Create sees a stable existence check.
	commitMu sync.Mutex
	logger   *zap.Logger
}

// RegistryOptions tune a Registry
type RegistryOptions struct {
	CacheCapacity int
	DebugDir      string
}

// NewRegistry wraps st with a model cache
func NewRegistry(st store.Store, opts RegistryOptions, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DebugDir == "" {
		opts.DebugDir = "."
	}
	r := &Registry{
		store:    st,
		debugDir: opts.DebugDir,
		logger:   logger.With(zap.String("component", "registry")),
	}
	r.cache = cache.New[*model.Model](opts.CacheCapacity, r.load, cache.WithObserver[*model.Model](metrics.CacheObserver{}))
	return r
}

// OpenRegistry opens the configured store and builds a Registry on it
func OpenRegistry(ctx context.Context, cfg *config.ServiceConfig, logger *zap.Logger) (*Registry, error) {
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	return NewRegistry(st, RegistryOptions{
		CacheCapacity: cfg.Cache.Capacity,
		DebugDir:      cfg.Logging.DebugDir,
	}, logger), nil
}

func (r *Registry) load(ctx context.Context, name string) (*model.Model, error) {
	m, err := r.store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("model loaded from store", zap.String("model", name))
	return m, nil
}

// Resolve returns the named model from the cache, loading it from the
// store on a miss
func (r *Registry) Resolve(ctx context.Context, name string) (*model.Model, error) {
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}
	return r.cache.Get(ctx, name)
}

// Exists reports whether a model is cached or stored under name
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	if r.cache.Contains(name) {
		return true, nil
	}
	return r.store.Exists(ctx, name)
}

// Commit persists m and makes it the cached value for its name. m must
// not be modified afterwards.
func (r *Registry) Commit(ctx context.Context, m *model.Model) error {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()
	return r.commit(ctx, m)
}

// Create commits a freshly configured model. When a model of the same name
// already exists it is replaced only if overwrite is set; otherwise a config
// error is returned and nothing is written. The check and the write happen
// under one lock, so two concurrent creates of a new name cannot both win.
func (r *Registry) Create(ctx context.Context, m *model.Model, overwrite bool) (replaced bool, err error) {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()

	exists, err := r.Exists(ctx, m.Name)
	if err != nil {
		return false, err
	}
	if exists && !overwrite {
		return false, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"model %q already exists; set overwrite=true to replace it", m.Name).
			WithDetail("model", m.Name)
	}
	if err := r.commit(ctx, m); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Registry) commit(ctx context.Context, m *model.Model) error {
	if err := r.store.Save(ctx, m, m.Exec.Level()); err != nil {
		return err
	}
	r.cache.Put(m.Name, m)
	return nil
}

// List returns stored model names matching a shell glob
func (r *Registry) List(ctx context.Context, pattern string) ([]string, error) {
	return r.store.List(ctx, pattern)
}

// CachedModels returns resident model names, most recently used first
func (r *Registry) CachedModels() []string {
	return r.cache.Keys()
}

// CacheStats returns the model cache counters
func (r *Registry) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// NextSeq allocates the next debug log sequence number
func (r *Registry) NextSeq() uint64 {
	return r.seq.Add(1)
}

// DebugDir returns where per-call debug logs are written
func (r *Registry) DebugDir() string { return r.debugDir }

// Close releases the store
func (r *Registry) Close() error {
	return r.store.Close()
}
