package pipeline

import (
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
	"github.com/ajitpratap0/nebula-ml/pkg/json"
)

// State is the serialisable form of a fitted pipeline. Algorithm state is
// kept as raw JSON and decoded into a freshly constructed instance of the
// configured algorithm on restore.
type State struct {
	Config          Config          `json:"config"`
	Training        []features.Spec `json:"training"`
	TrainingIndices []int           `json:"training_indices"`
	FullWidth       int             `json:"full_width"`
	Target          TargetEncoder   `json:"target"`
	Preprocessor    *Preprocessor   `json:"preprocessor"`
	Scaler          json.RawMessage `json:"scaler,omitempty"`
	Reduction       json.RawMessage `json:"reduction,omitempty"`
	Estimator       json.RawMessage `json:"estimator"`
}

// Snapshot captures the fitted pipeline
func (p *Pipeline) Snapshot() (*State, error) {
	if !p.fitted {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeState, "pipeline is not trained")
	}
	st := &State{
		Config:          p.cfg.Clone(),
		Training:        append([]features.Spec(nil), p.training...),
		TrainingIndices: append([]int(nil), p.indices...),
		FullWidth:       p.fullWidth,
		Target:          p.target,
		Preprocessor:    p.pre,
	}

	var err error
	if len(p.pre.Scaled) > 0 {
		if st.Scaler, err = marshalStage("scaler", p.pre.scaler); err != nil {
			return nil, err
		}
	}
	if p.reduction != nil {
		if st.Reduction, err = marshalStage("reduction", p.reduction); err != nil {
			return nil, err
		}
	}
	if st.Estimator, err = marshalStage("estimator", p.estimator); err != nil {
		return nil, err
	}
	return st, nil
}

func marshalStage(stage string, v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot encode "+stage+" state")
	}
	return data, nil
}

func unmarshalStage(stage string, data json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "cannot decode "+stage+" state")
	}
	return nil
}

// Restore rebuilds a fitted pipeline from its snapshot. The algorithms are
// resolved against the running registry, so a snapshot naming an algorithm
// or argument that no longer exists fails with a config error.
func Restore(st *State) (*Pipeline, error) {
	if st == nil || st.Preprocessor == nil || len(st.Estimator) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeInternal, "incomplete pipeline snapshot")
	}
	p, err := assemble(st.Config, st.Training, st.TrainingIndices, st.FullWidth, st.Target.Spec)
	if err != nil {
		return nil, err
	}

	scaler := p.pre.scaler
	pre := *st.Preprocessor
	pre.scaler = scaler
	p.pre = &pre
	p.target = TargetEncoder{Spec: st.Target.Spec, Labels: append([]string(nil), st.Target.Labels...)}

	if len(st.Scaler) > 0 {
		if err := unmarshalStage("scaler", st.Scaler, scaler); err != nil {
			return nil, err
		}
	}
	if p.reduction != nil {
		if len(st.Reduction) == 0 {
			return nil, nebulaerrors.New(nebulaerrors.ErrorTypeInternal, "snapshot has no reduction state")
		}
		if err := unmarshalStage("reduction", st.Reduction, p.reduction); err != nil {
			return nil, err
		}
	}
	if err := unmarshalStage("estimator", st.Estimator, p.estimator); err != nil {
		return nil, err
	}
	p.fitted = true
	return p, nil
}
