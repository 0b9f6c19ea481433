package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS nebula_models (
    name       text PRIMARY KEY,
    snapshot   bytea NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`

const upsertSQL = `
INSERT INTO nebula_models (name, snapshot, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE
SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`

// PostgresStore keeps one row per model in the nebula_models table
type PostgresStore struct {
	pool   *pgxpool.Pool
	codec  compression.Algorithm
	logger *zap.Logger
}

// NewPostgresStore connects to dsn and creates the table if needed
func NewPostgresStore(ctx context.Context, dsn string, codec compression.Algorithm, logger *zap.Logger) (*PostgresStore, error) {
	if _, err := codec.ID(); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid snapshot codec")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to parse connection string")
	}
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = 10
	}
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "failed to validate connection")
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "failed to create nebula_models table")
	}

	s := &PostgresStore{
		pool:   pool,
		codec:  codec,
		logger: logger.With(zap.String("component", "postgres_store")),
	}
	s.logger.Info("Connected to PostgreSQL",
		zap.Int32("max_connections", poolConfig.MaxConns),
		zap.Duration("idle_timeout", poolConfig.MaxConnIdleTime))
	return s, nil
}

// Save upserts the snapshot row
func (s *PostgresStore) Save(ctx context.Context, m *model.Model, level compression.Level) error {
	if err := model.ValidateName(m.Name); err != nil {
		return err
	}
	data, err := Encode(m, s.codec, level)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, m.Name, data, m.UpdatedAt); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot save snapshot of "+m.Name)
	}
	s.logger.Debug("snapshot saved", zap.String("model", m.Name), zap.Int("bytes", len(data)))
	return nil
}

// Load reads and decodes the snapshot row of name
func (s *PostgresStore) Load(ctx context.Context, name string) (*model.Model, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM nebula_models WHERE name = $1`, name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot load snapshot of "+name)
	}
	return Decode(data)
}

// Exists reports whether a row exists for name
func (s *PostgresStore) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM nebula_models WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot check snapshot of "+name)
	}
	return exists, nil
}

// List returns model names matching pattern
func (s *PostgresStore) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM nebula_models`)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot list models")
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot list models")
	}
	return matchNames(names, pattern)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
