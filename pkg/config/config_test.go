package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(*ServiceConfig) {}},
		{name: "unknown backend", mutate: func(c *ServiceConfig) { c.Store.Backend = "s3" }, wantErr: "unknown store backend"},
		{name: "unknown codec", mutate: func(c *ServiceConfig) { c.Store.Codec = "brotli" }, wantErr: "unknown store codec"},
		{name: "zero capacity", mutate: func(c *ServiceConfig) { c.Cache.Capacity = 0 }, wantErr: "cache.capacity"},
		{name: "empty dir", mutate: func(c *ServiceConfig) { c.Store.Dir = "" }, wantErr: "store.dir"},
		{name: "sample rate", mutate: func(c *ServiceConfig) { c.Observability.TracingSampleRate = 2 }, wantErr: "tracing_sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewServiceConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nebula-ml.yaml")

	cfg := NewServiceConfig()
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Logging.DebugDir = "/tmp/debug"
	require.NoError(t, Save(path, cfg))

	loaded := &ServiceConfig{}
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), NewServiceConfig())
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("NEBULA_ML_TEST_DSN", "postgres://db/models")
	out := substituteEnvVars("dsn: ${NEBULA_ML_TEST_DSN} other: ${NEBULA_ML_TEST_UNSET}")
	assert.Equal(t, "dsn: postgres://db/models other: ", out)
}
