package model

import (
	"time"

	"github.com/ajitpratap0/nebula-ml/internal/pipeline"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
)

// SnapshotVersion is the version of the snapshot body layout
const SnapshotVersion = 1

// Snapshot is the persisted form of a model
type Snapshot struct {
	Version   int             `json:"version"`
	Name      string          `json:"name"`
	Config    pipeline.Config `json:"config"`
	Features  []features.Spec `json:"features,omitempty"`
	Exec      Exec            `json:"exec"`
	Score     float64         `json:"score"`
	Pipeline  *pipeline.State `json:"pipeline,omitempty"`
	Retained  *Retained       `json:"retained,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Snapshot captures the model for persistence
func (m *Model) Snapshot() (*Snapshot, error) {
	s := &Snapshot{
		Version:   SnapshotVersion,
		Name:      m.Name,
		Config:    m.Config.Clone(),
		Features:  append([]features.Spec(nil), m.Features...),
		Exec:      m.Exec,
		Score:     m.Score,
		Retained:  m.Retained,
		UpdatedAt: m.UpdatedAt,
	}
	if m.pipeline != nil {
		st, err := m.pipeline.Snapshot()
		if err != nil {
			return nil, err
		}
		s.Pipeline = st
	}
	return s, nil
}

// FromSnapshot rebuilds a model, restoring its fitted pipeline
func FromSnapshot(s *Snapshot) (*Model, error) {
	if s.Version != SnapshotVersion {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeInternal,
			"unsupported model snapshot version %d", s.Version)
	}
	if err := ValidateName(s.Name); err != nil {
		return nil, err
	}
	m := &Model{
		Name:      s.Name,
		Config:    s.Config,
		Features:  s.Features,
		Exec:      s.Exec,
		Score:     s.Score,
		Retained:  s.Retained,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Pipeline != nil {
		p, err := pipeline.Restore(s.Pipeline)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.TypeOf(err), "cannot restore pipeline of model "+s.Name)
		}
		m.pipeline = p
	}
	return m, nil
}
