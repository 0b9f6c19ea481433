// Package algorithms is the closed registry of estimators, scalers and
// decompositions that a pipeline can be assembled from.
//
// Every entry declares its parameters. Arguments are validated strictly
// against that table: an unknown key or a value whose type cannot be
// widened to the declared kind is a config error.
package algorithms

import (
	"sort"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
)

// Kind is the role an algorithm plays in a pipeline
type Kind string

const (
	KindEstimator     Kind = "estimator"
	KindScaler        Kind = "scaler"
	KindDecomposition Kind = "reduction"
)

// Task is the problem an estimator solves
type Task string

const (
	TaskNone           Task = ""
	TaskClassification Task = "classification"
	TaskRegression     Task = "regression"
)

// Trainable is a supervised estimator
type Trainable interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Classifier is an estimator with class probability support. Classes are
// the sorted unique training labels and fix the column order of
// PredictProba.
type Classifier interface {
	Trainable
	Classes() []float64
	PredictProba(X [][]float64) ([][]float64, error)
}

// Transformable is an unsupervised scaler or decomposition
type Transformable interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) ([][]float64, error)
}

// ParamSpec declares one accepted argument
type ParamSpec struct {
	Name    string
	Kind    kwargs.Kind
	Default kwargs.Value
}

// Spec describes a registered algorithm
type Spec struct {
	Name   string
	Kind   Kind
	Task   Task
	Params []ParamSpec

	newEstimator   func(Params) (Trainable, error)
	newTransformer func(Params) (Transformable, error)
}

// Probabilistic reports whether the estimator can produce class
// probabilities.
func (s *Spec) Probabilistic() bool {
	return s.Task == TaskClassification
}

var registry = map[Kind]map[string]*Spec{
	KindEstimator:     {},
	KindScaler:        {},
	KindDecomposition: {},
}

func register(spec *Spec) {
	if _, exists := registry[spec.Kind][spec.Name]; exists {
		panic("algorithms: duplicate registration of " + spec.Name)
	}
	registry[spec.Kind][spec.Name] = spec
}

// Lookup returns the algorithm registered under name for kind
func Lookup(kind Kind, name string) (*Spec, error) {
	spec, ok := registry[kind][name]
	if !ok {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"unknown %s %q", kind, name).
			WithDetail("key", string(kind)).
			WithDetail("name", name)
	}
	return spec, nil
}

// Names lists the algorithms registered for kind, sorted
func Names(kind Kind) []string {
	names := make([]string, 0, len(registry[kind]))
	for name := range registry[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Params are validated arguments with defaults filled in
type Params map[string]kwargs.Value

// Int returns an int parameter
func (p Params) Int(name string) int {
	i, _ := p[name].Int()
	return int(i)
}

// Float returns a float parameter
func (p Params) Float(name string) float64 {
	f, _ := p[name].Float()
	return f
}

// Bool returns a bool parameter
func (p Params) Bool(name string) bool {
	b, _ := p[name].Bool()
	return b
}

// Str returns a str parameter
func (p Params) Str(name string) string {
	return p[name].String()
}

// Validate checks args against the parameter table and returns them with
// defaults for absent keys.
func (s *Spec) Validate(args *kwargs.Args) (Params, error) {
	declared := make(map[string]ParamSpec, len(s.Params))
	params := make(Params, len(s.Params))
	for _, ps := range s.Params {
		declared[ps.Name] = ps
		params[ps.Name] = ps.Default
	}

	for _, key := range args.Keys() {
		ps, ok := declared[key]
		if !ok {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"unknown argument %q for %s", key, s.Name).
				WithDetail("key", key).
				WithDetail("algorithm", s.Name)
		}
		v, _ := args.Get(key)
		converted, ok := widen(v, ps.Kind)
		if !ok {
			return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
				"argument %q for %s must be %s, got %s", key, s.Name, ps.Kind, v.Kind()).
				WithDetail("key", key).
				WithDetail("algorithm", s.Name)
		}
		params[key] = converted
	}
	return params, nil
}

func widen(v kwargs.Value, kind kwargs.Kind) (kwargs.Value, bool) {
	if v.Kind() == kind {
		return v, true
	}
	if kind == kwargs.KindFloat {
		if f, ok := v.Float(); ok {
			return kwargs.FloatValue(f), true
		}
	}
	return kwargs.Value{}, false
}

// NewEstimator validates args and constructs an unfitted estimator
func (s *Spec) NewEstimator(args *kwargs.Args) (Trainable, error) {
	if s.newEstimator == nil {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "%s is not an estimator", s.Name)
	}
	params, err := s.Validate(args)
	if err != nil {
		return nil, err
	}
	return s.newEstimator(params)
}

// NewTransformer validates args and constructs an unfitted scaler or
// decomposition
func (s *Spec) NewTransformer(args *kwargs.Args) (Transformable, error) {
	if s.newTransformer == nil {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "%s is not a transformer", s.Name)
	}
	params, err := s.Validate(args)
	if err != nil {
		return nil, err
	}
	return s.newTransformer(params)
}

// Shorthand constructors for parameter tables
func intParam(name string, def int64) ParamSpec {
	return ParamSpec{Name: name, Kind: kwargs.KindInt, Default: kwargs.IntValue(def)}
}

func floatParam(name string, def float64) ParamSpec {
	return ParamSpec{Name: name, Kind: kwargs.KindFloat, Default: kwargs.FloatValue(def)}
}

func boolParam(name string, def bool) ParamSpec {
	return ParamSpec{Name: name, Kind: kwargs.KindBool, Default: kwargs.BoolValue(def)}
}

func strParam(name string, def string) ParamSpec {
	return ParamSpec{Name: name, Kind: kwargs.KindString, Default: kwargs.StringValue(def)}
}

// Parameters accepted everywhere for compatibility; they never change results
var compatParams = []ParamSpec{
	intParam("n_jobs", 0),
	intParam("verbose", 0),
}

func withCompat(params ...ParamSpec) []ParamSpec {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		seen[p.Name] = true
	}
	for _, c := range compatParams {
		if !seen[c.Name] {
			params = append(params, c)
		}
	}
	return params
}

func configErr(algorithm string, err error) error {
	return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "invalid arguments for "+algorithm).
		WithDetail("algorithm", algorithm)
}
