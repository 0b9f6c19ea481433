package model

import (
	"github.com/ajitpratap0/nebula-ml/pkg/compression"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
)

// Execution argument keys
const (
	ExecOverwrite   = "overwrite"
	ExecTestSize    = "test_size"
	ExecRandomState = "random_state"
	ExecCompress    = "compress"
	ExecRetainData  = "retain_data"
	ExecDebug       = "debug"
)

// Exec holds the execution options of a model
type Exec struct {
	Overwrite   bool    `json:"overwrite"`
	TestSize    float64 `json:"test_size"`
	RandomState int64   `json:"random_state"`
	Compress    int     `json:"compress"`
	RetainData  bool    `json:"retain_data"`
	Debug       bool    `json:"debug"`
}

// DefaultExec returns the execution options used for absent keys
func DefaultExec() Exec {
	return Exec{
		Overwrite:   false,
		TestSize:    0.33,
		RandomState: 42,
		Compress:    int(compression.DefaultLevel),
		RetainData:  false,
		Debug:       false,
	}
}

// ParseExec builds execution options from parsed arguments. Unknown keys
// and values of the wrong type are config errors.
func ParseExec(args *kwargs.Args) (Exec, error) {
	exec := DefaultExec()
	for _, key := range args.Keys() {
		v, _ := args.Get(key)
		var ok bool
		switch key {
		case ExecOverwrite:
			exec.Overwrite, ok = v.Bool()
		case ExecTestSize:
			exec.TestSize, ok = v.Float()
		case ExecRandomState:
			exec.RandomState, ok = v.Int()
		case ExecCompress:
			var n int64
			n, ok = v.Int()
			exec.Compress = int(n)
		case ExecRetainData:
			exec.RetainData, ok = v.Bool()
		case ExecDebug:
			exec.Debug, ok = v.Bool()
		default:
			return exec, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"unknown execution argument %q", key).
				WithDetail("key", key)
		}
		if !ok {
			return exec, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"execution argument %q has the wrong type %s", key, v.Kind()).
				WithDetail("key", key)
		}
	}
	return exec, exec.Validate()
}

// Validate checks option ranges
func (e Exec) Validate() error {
	if !compression.Level(e.Compress).Valid() {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"compress must be between %d and %d, got %d", compression.MinLevel, compression.MaxLevel, e.Compress).
			WithDetail("key", ExecCompress)
	}
	if e.TestSize <= 0 || e.TestSize >= 1 {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"test_size must be between 0 and 1 exclusive, got %g", e.TestSize).
			WithDetail("key", ExecTestSize)
	}
	return nil
}

// Level returns the snapshot compression level
func (e Exec) Level() compression.Level {
	return compression.Level(e.Compress)
}
