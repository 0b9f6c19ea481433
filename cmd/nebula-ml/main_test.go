package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-ml/pkg/table"
)

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "nebula-ml.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
store:
  dir: /from/file
  codec: zstd
cache:
  capacity: 5
`), 0o644))

	t.Setenv("NEBULA_ML_STORE_DIR", "/from/env")

	a := newApp()
	require.NoError(t, a.root.ParseFlags([]string{"--cache-capacity", "7"}))

	cfg, err := loadConfig(a.v, file)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Store.Dir)
	assert.Equal(t, "zstd", cfg.Store.Codec)
	assert.Equal(t, 7, cfg.Cache.Capacity)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("NEBULA_ML_STORE_CODEC", "brotli")
	_, err := newApp().load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "brotli")
}

func TestReadRows(t *testing.T) {
	rows, err := readRows(strings.NewReader(`[["m", 3, "a|b"]]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "m", rows[0][0].Str)
	assert.True(t, rows[0][1].IsNum)

	rows, err = readRows(strings.NewReader(`{"rows": [["m"], ["n"]]}`))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = readRows(strings.NewReader(`{"rows": [`))
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	tbl := table.New(table.Models)
	require.NoError(t, tbl.Append(table.S("alpha, beta")))

	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, tbl, outputText))
	assert.Contains(t, buf.String(), "alpha, beta")

	buf.Reset()
	require.NoError(t, writeTable(&buf, tbl, outputJSON))
	assert.Contains(t, buf.String(), `"name": "models"`)

	assert.Error(t, writeTable(&buf, tbl, "xml"))
}

func TestVersionCommand(t *testing.T) {
	a := newApp()
	var out bytes.Buffer
	a.root.SetOut(&out)
	a.root.SetArgs([]string{"version"})
	require.NoError(t, a.root.Execute())
	assert.Contains(t, out.String(), "nebula-ml v"+version)
}
