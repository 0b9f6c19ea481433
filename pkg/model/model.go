// Package model defines the Model entity: a named pipeline configuration
// with its feature contract, execution options and, once trained, the
// fitted pipeline.
//
// Models held by the cache are treated as immutable values. Code that
// changes a model works on a Clone and stores the clone.
package model

import (
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-ml/internal/pipeline"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
)

// State is the lifecycle stage of a model, derived from its contents
type State string

const (
	StateUnconfigured    State = "UNCONFIGURED"
	StateConfigured      State = "CONFIGURED"
	StateFeaturesDefined State = "FEATURES_DEFINED"
	StateTrained         State = "TRAINED"
)

// Model is the unit of work, keyed by its unique name
type Model struct {
	Name      string
	Config    pipeline.Config
	Features  []features.Spec
	Exec      Exec
	Score     float64
	UpdatedAt time.Time

	// Retained is the train/test split kept when Exec.RetainData is set
	Retained *Retained

	pipeline *pipeline.Pipeline
}

// Retained holds the data a model was trained and tested on
type Retained struct {
	Train *pipeline.Dataset `json:"train"`
	Test  *pipeline.Dataset `json:"test"`
}

// ValidateName checks that name can key a model. Names become file names
// in the file store.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "model name is empty")
	case strings.ContainsAny(name, `/\`):
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "model name %q contains a path separator", name)
	case strings.HasPrefix(name, "."):
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig, "model name %q starts with a dot", name)
	}
	return nil
}

// New creates a configured model
func New(name string, cfg pipeline.Config, exec Exec) (*Model, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := exec.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		Name:      name,
		Config:    cfg,
		Exec:      exec,
		UpdatedAt: time.Now(),
	}, nil
}

// State returns the lifecycle stage
func (m *Model) State() State {
	switch {
	case m == nil:
		return StateUnconfigured
	case m.pipeline != nil:
		return StateTrained
	case len(m.Features) > 0:
		return StateFeaturesDefined
	}
	return StateConfigured
}

// Trained reports whether the model has a fitted pipeline
func (m *Model) Trained() bool { return m.pipeline != nil }

// Pipeline returns the fitted pipeline or nil
func (m *Model) Pipeline() *pipeline.Pipeline { return m.pipeline }

// Contract builds the feature contract. A model without features is a
// state error.
func (m *Model) Contract() (*features.Contract, error) {
	if len(m.Features) == 0 {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeState,
			"features are not defined for model %q", m.Name)
	}
	return features.NewContract(m.Features)
}

// DefineFeatures replaces the feature contract and resets trained state,
// since a fitted pipeline is bound to the columns it was trained on
func (m *Model) DefineFeatures(c *features.Contract) {
	m.Features = c.Full()
	m.pipeline = nil
	m.Score = 0
	m.Retained = nil
	m.touch()
}

// SetTrained records a fitted pipeline and its test score
func (m *Model) SetTrained(p *pipeline.Pipeline, score float64, retained *Retained) {
	m.pipeline = p
	m.Score = score
	if m.Exec.RetainData {
		m.Retained = retained
	} else {
		m.Retained = nil
	}
	m.touch()
}

func (m *Model) touch() {
	m.UpdatedAt = time.Now()
}

// Clone returns a copy that can be changed without affecting m. The
// fitted pipeline is shared: it is never modified after training.
func (m *Model) Clone() *Model {
	out := *m
	out.Config = m.Config.Clone()
	out.Features = append([]features.Spec(nil), m.Features...)
	return &out
}
