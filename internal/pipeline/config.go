// Package pipeline assembles and runs the model pipeline: a preprocessor
// that converts, imputes, encodes and scales feature vectors, an optional
// dimensionality reduction, and the estimator.
//
// # Basic Usage
//
//	cfg, err := pipeline.NewConfig(estimatorArgs, scalerArgs, nil)
//	p, err := pipeline.New(cfg, contract)
//	err = p.Fit(train)
//	score, err := p.Score(test)
//	labels, err := p.Predict(rows)
//
// A fitted pipeline is captured with Snapshot and rebuilt with Restore.
package pipeline

import (
	"strings"

	"github.com/ajitpratap0/nebula-ml/pkg/algorithms"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
)

// Selector keys and preprocessing options carried in the argument strings
const (
	KeyEstimator   = "estimator"
	KeyScaler      = "scaler"
	KeyReduction   = "reduction"
	KeyMissing     = "missing"
	KeyScaleHashed = "scale_hashed"
)

// Missing value strategies for numeric columns
const (
	MissingZeros  = "zeros"
	MissingMean   = "mean"
	MissingMedian = "median"
	MissingMode   = "mode"
)

// Selection names an algorithm and the arguments it is built with
type Selection struct {
	Algorithm string       `json:"algorithm"`
	Args      *kwargs.Args `json:"args"`
}

// Config is the validated description of a pipeline
type Config struct {
	Estimator   Selection  `json:"estimator"`
	Scaler      Selection  `json:"scaler"`
	Missing     string     `json:"missing"`
	ScaleHashed bool       `json:"scale_hashed"`
	Reduction   *Selection `json:"reduction,omitempty"`
}

// NewConfig pulls the selector keys out of the argument sets and validates
// every algorithm and its remaining arguments. reductionArgs may be nil.
// The inputs are not modified.
func NewConfig(estimatorArgs, scalerArgs, reductionArgs *kwargs.Args) (Config, error) {
	var cfg Config

	est, err := takeSelection(estimatorArgs, KeyEstimator)
	if err != nil {
		return cfg, err
	}
	scaler, err := takeSelection(scalerArgs, KeyScaler)
	if err != nil {
		return cfg, err
	}

	cfg.Missing = MissingZeros
	if v, ok := scaler.Args.Delete(KeyMissing); ok {
		cfg.Missing = strings.ToLower(strings.TrimSpace(v.String()))
	}
	if v, ok := scaler.Args.Delete(KeyScaleHashed); ok {
		b, isBool := v.Bool()
		if !isBool {
			return cfg, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"%s must be a bool, got %q", KeyScaleHashed, v.String())
		}
		cfg.ScaleHashed = b
	}
	cfg.Estimator = est
	cfg.Scaler = scaler

	if reductionArgs != nil {
		red, err := takeSelection(reductionArgs, KeyReduction)
		if err != nil {
			return cfg, err
		}
		cfg.Reduction = &red
	}

	return cfg, cfg.Validate()
}

func takeSelection(args *kwargs.Args, key string) (Selection, error) {
	if args == nil {
		args = kwargs.New()
	}
	args = args.Clone()
	v, ok := args.Delete(key)
	if !ok || strings.TrimSpace(v.String()) == "" {
		return Selection{}, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"missing required argument %q", key).
			WithDetail("key", key)
	}
	return Selection{Algorithm: strings.TrimSpace(v.String()), Args: args}, nil
}

// Validate resolves every selection against the algorithm registry and
// checks its arguments
func (c Config) Validate() error {
	switch c.Missing {
	case MissingZeros, MissingMean, MissingMedian, MissingMode:
	default:
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"unknown missing value strategy %q", c.Missing).
			WithDetail("key", KeyMissing)
	}

	if _, err := c.estimatorSpec(); err != nil {
		return err
	}
	if err := validateSelection(algorithms.KindScaler, c.Scaler); err != nil {
		return err
	}
	if c.Reduction != nil {
		if err := validateSelection(algorithms.KindDecomposition, *c.Reduction); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) estimatorSpec() (*algorithms.Spec, error) {
	spec, err := algorithms.Lookup(algorithms.KindEstimator, c.Estimator.Algorithm)
	if err != nil {
		return nil, err
	}
	if _, err := spec.Validate(argsOrEmpty(c.Estimator.Args)); err != nil {
		return nil, err
	}
	return spec, nil
}

func validateSelection(kind algorithms.Kind, sel Selection) error {
	spec, err := algorithms.Lookup(kind, sel.Algorithm)
	if err != nil {
		return err
	}
	_, err = spec.Validate(argsOrEmpty(sel.Args))
	return err
}

func argsOrEmpty(a *kwargs.Args) *kwargs.Args {
	if a == nil {
		return kwargs.New()
	}
	return a
}

// Probabilistic reports whether the configured estimator produces class
// probabilities
func (c Config) Probabilistic() bool {
	spec, err := algorithms.Lookup(algorithms.KindEstimator, c.Estimator.Algorithm)
	return err == nil && spec.Probabilistic()
}

// Clone returns a deep copy
func (c Config) Clone() Config {
	out := c
	out.Estimator.Args = argsOrEmpty(c.Estimator.Args).Clone()
	out.Scaler.Args = argsOrEmpty(c.Scaler.Args).Clone()
	if c.Reduction != nil {
		red := *c.Reduction
		red.Args = argsOrEmpty(c.Reduction.Args).Clone()
		out.Reduction = &red
	}
	return out
}
