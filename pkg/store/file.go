package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
)

// FileExtension is appended to model names to form snapshot file names
const FileExtension = ".model"

// FileStore keeps one snapshot file per model in a directory
type FileStore struct {
	dir    string
	codec  compression.Algorithm
	logger *zap.Logger
}

// NewFileStore creates the directory if needed and returns a store that
// writes snapshots with codec
func NewFileStore(dir string, codec compression.Algorithm, logger *zap.Logger) (*FileStore, error) {
	if _, err := codec.ID(); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid snapshot codec")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot create model directory "+dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		dir:    dir,
		codec:  codec,
		logger: logger.With(zap.String("component", "file_store")),
	}, nil
}

// Dir returns the snapshot directory
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+FileExtension)
}

// Save writes the snapshot to a temporary file and renames it into place
func (s *FileStore) Save(_ context.Context, m *model.Model, level compression.Level) error {
	if err := model.ValidateName(m.Name); err != nil {
		return err
	}
	data, err := Encode(m, s.codec, level)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+m.Name+"-*.tmp")
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot create temporary snapshot")
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot write snapshot")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot sync snapshot")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot close snapshot")
	}
	if err := os.Rename(tmpName, s.path(m.Name)); err != nil {
		cleanup()
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot replace snapshot")
	}

	s.logger.Debug("snapshot saved",
		zap.String("model", m.Name),
		zap.Int("bytes", len(data)),
		zap.String("codec", string(s.codec)),
		zap.Stringer("level", level))
	return nil
}

// Load reads and decodes the snapshot of name
func (s *FileStore) Load(_ context.Context, name string) (*model.Model, error) {
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot read snapshot of "+name)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("snapshot loaded", zap.String("model", name), zap.Int("bytes", len(data)))
	return m, nil
}

// Exists reports whether a snapshot file exists for name
func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	if err := model.ValidateName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot stat snapshot of "+name)
	}
	return true, nil
}

// List returns snapshot names matching pattern
func (s *FileStore) List(_ context.Context, pattern string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeFile, "cannot list "+s.dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, FileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, FileExtension))
	}
	return matchNames(names, pattern)
}

// Close is a no-op for the file store
func (s *FileStore) Close() error { return nil }
