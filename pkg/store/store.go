// Package store persists model snapshots. A snapshot is an 8 byte header
// followed by the compressed JSON form of the model:
//
//	offset 0  "NBML" magic
//	offset 4  format version
//	offset 5  codec id (see compression.Algorithm.ID)
//	offset 6  compression level
//	offset 7  reserved, zero
//
// Readers pick the codec from the header, so the configured codec can
// change without breaking existing snapshots.
package store

import (
	"context"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	"github.com/ajitpratap0/nebula-ml/pkg/config"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
)

// Store persists models by name
type Store interface {
	// Save writes the model snapshot compressed at level, replacing any
	// previous snapshot with the same name
	Save(ctx context.Context, m *model.Model, level compression.Level) error
	// Load reads a model. An absent model is a not found error.
	Load(ctx context.Context, name string) (*model.Model, error)
	// Exists reports whether a snapshot exists for name
	Exists(ctx context.Context, name string) (bool, error)
	// List returns the sorted names matching a shell glob. An empty
	// pattern matches everything.
	List(ctx context.Context, pattern string) ([]string, error)
	// Close releases resources held by the store
	Close() error
}

func notFound(name string) error {
	return nebulaerrors.Newf(nebulaerrors.ErrorTypeNotFound, "model %q does not exist", name).
		WithDetail("model", name)
}

// matchNames filters names with a shell glob and sorts the result
func matchNames(names []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid search pattern "+pattern)
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if ok, _ := path.Match(pattern, n); ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Open builds the store selected by cfg
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	codec := compression.Algorithm(cfg.Codec)
	if cfg.Codec == "" {
		codec = compression.Gzip
	}
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Dir, codec, logger)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN, codec, logger)
	}
	return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "unknown store backend %q", cfg.Backend)
}
