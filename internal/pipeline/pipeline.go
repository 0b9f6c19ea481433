package pipeline

import (
	"math"

	"github.com/ajitpratap0/nebula-ml/pkg/algorithms"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
)

// Pipeline is an assembled preprocessing, reduction and estimation chain
// bound to the training columns of one feature contract
type Pipeline struct {
	cfg       Config
	spec      *algorithms.Spec
	training  []features.Spec
	indices   []int
	fullWidth int

	pre       *Preprocessor
	reduction algorithms.Transformable
	estimator algorithms.Trainable
	target    TargetEncoder
	fitted    bool
}

// New assembles an unfitted pipeline for the contract. The contract must
// define exactly one target and at least one feature.
func New(cfg Config, contract *features.Contract) (*Pipeline, error) {
	target, _, err := contract.Target()
	if err != nil {
		return nil, err
	}
	training := contract.Training()
	if len(training) == 0 {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no feature columns defined")
	}
	return assemble(cfg, training, contract.TrainingIndices(), contract.Len(), target)
}

func assemble(cfg Config, training []features.Spec, indices []int, fullWidth int, target features.Spec) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, err := cfg.estimatorSpec()
	if err != nil {
		return nil, err
	}
	estimator, err := spec.NewEstimator(argsOrEmpty(cfg.Estimator.Args))
	if err != nil {
		return nil, err
	}
	scaler, err := newTransformer(algorithms.KindScaler, cfg.Scaler)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		spec:      spec,
		training:  training,
		indices:   indices,
		fullWidth: fullWidth,
		pre:       newPreprocessor(training, cfg.Missing, cfg.ScaleHashed, scaler),
		estimator: estimator,
		target:    TargetEncoder{Spec: target},
	}
	if cfg.Reduction != nil {
		if p.reduction, err = newTransformer(algorithms.KindDecomposition, *cfg.Reduction); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newTransformer(kind algorithms.Kind, sel Selection) (algorithms.Transformable, error) {
	spec, err := algorithms.Lookup(kind, sel.Algorithm)
	if err != nil {
		return nil, err
	}
	return spec.NewTransformer(argsOrEmpty(sel.Args))
}

// Config returns the configuration the pipeline was assembled from
func (p *Pipeline) Config() Config { return p.cfg }

// EstimatorName returns the registered name of the estimator
func (p *Pipeline) EstimatorName() string { return p.spec.Name }

// Task returns the estimator's task
func (p *Pipeline) Task() algorithms.Task { return p.spec.Task }

// Fitted reports whether Fit has completed
func (p *Pipeline) Fitted() bool { return p.fitted }

// Fit trains every stage on the dataset
func (p *Pipeline) Fit(ds *Dataset) error {
	if ds.Len() == 0 {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no training rows")
	}
	rows, err := p.convert(ds.Features)
	if err != nil {
		return err
	}
	if err := p.target.Fit(ds.Target); err != nil {
		return err
	}
	y, err := p.target.Encode(ds.Target)
	if err != nil {
		return err
	}

	X, err := p.pre.Fit(rows)
	if err != nil {
		return err
	}
	if p.reduction != nil {
		if err := p.reduction.Fit(X); err != nil {
			return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "reduction fit failed").
				WithDetail("algorithm", p.cfg.Reduction.Algorithm)
		}
		if X, err = p.reduction.Transform(X); err != nil {
			return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "reduction transform failed")
		}
	}
	if err := p.estimator.Fit(X, y); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "estimator fit failed").
			WithDetail("algorithm", p.spec.Name)
	}
	p.fitted = true
	return nil
}

func (p *Pipeline) convert(rows [][]string) ([][]features.Value, error) {
	out := make([][]features.Value, len(rows))
	for i, fields := range rows {
		row, err := features.ConvertRow(p.training, fields)
		if err != nil {
			return nil, withRow(err, i)
		}
		out[i] = row
	}
	return out, nil
}

func (p *Pipeline) matrix(rows [][]string) ([][]float64, error) {
	if !p.fitted {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeState, "pipeline is not trained")
	}
	converted, err := p.convert(rows)
	if err != nil {
		return nil, err
	}
	X, err := p.pre.Transform(converted)
	if err != nil {
		return nil, err
	}
	if p.reduction != nil {
		if X, err = p.reduction.Transform(X); err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "reduction transform failed")
		}
	}
	return X, nil
}

// ParseVectors splits delimiter joined prediction vectors. A vector may
// carry either the training columns or the full contract, in which case it
// is reduced to the training columns.
func (p *Pipeline) ParseVectors(vectors []string) ([][]string, error) {
	out := make([][]string, len(vectors))
	for i, vec := range vectors {
		fields, err := features.SplitVector(vec, len(p.training))
		if err != nil && p.fullWidth != len(p.training) {
			full, fullErr := features.SplitVector(vec, p.fullWidth)
			if fullErr == nil {
				fields = make([]string, len(p.indices))
				for k, idx := range p.indices {
					fields[k] = full[idx]
				}
				err = nil
			}
		}
		if err != nil {
			return nil, withRow(err, i)
		}
		out[i] = fields
	}
	return out, nil
}

// Predict returns the display label of each row
func (p *Pipeline) Predict(rows [][]string) ([]string, error) {
	X, err := p.matrix(rows)
	if err != nil {
		return nil, err
	}
	labels, err := p.estimator.Predict(X)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "prediction failed")
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = p.target.Decode(l)
	}
	return out, nil
}

func (p *Pipeline) classifier() (algorithms.Classifier, error) {
	c, ok := p.estimator.(algorithms.Classifier)
	if !ok || !p.spec.Probabilistic() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeConfig,
			"%s does not support probability predictions", p.spec.Name).
			WithDetail("algorithm", p.spec.Name)
	}
	return c, nil
}

// PredictProba returns class probabilities of each row in Classes order
func (p *Pipeline) PredictProba(rows [][]string) ([][]float64, error) {
	c, err := p.classifier()
	if err != nil {
		return nil, err
	}
	X, err := p.matrix(rows)
	if err != nil {
		return nil, err
	}
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "probability prediction failed")
	}
	return proba, nil
}

// PredictLogProba returns the natural log of PredictProba
func (p *Pipeline) PredictLogProba(rows [][]string) ([][]float64, error) {
	proba, err := p.PredictProba(rows)
	if err != nil {
		return nil, err
	}
	for _, row := range proba {
		for k, v := range row {
			row[k] = math.Log(v)
		}
	}
	return proba, nil
}

// Classes returns the display labels in estimator class order
func (p *Pipeline) Classes() ([]string, error) {
	c, err := p.classifier()
	if err != nil {
		return nil, err
	}
	if !p.fitted {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeState, "pipeline is not trained")
	}
	classes := c.Classes()
	out := make([]string, len(classes))
	for i, l := range classes {
		out[i] = p.target.Decode(l)
	}
	return out, nil
}

// Score evaluates the pipeline on ds: accuracy for classifiers, R² for
// regressors
func (p *Pipeline) Score(ds *Dataset) (float64, error) {
	if ds.Len() == 0 {
		return 0, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "no test rows")
	}
	X, err := p.matrix(ds.Features)
	if err != nil {
		return 0, err
	}
	y, err := p.target.Encode(ds.Target)
	if err != nil {
		return 0, err
	}
	pred, err := p.estimator.Predict(X)
	if err != nil {
		return 0, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "prediction failed")
	}
	if p.spec.Task == algorithms.TaskClassification {
		return accuracy(y, pred), nil
	}
	return r2(y, pred), nil
}

func accuracy(y, pred []float64) float64 {
	hits := 0
	for i := range y {
		if y[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(y))
}

// r2 is the coefficient of determination. A constant target scores 1 when
// predicted exactly and 0 otherwise.
func r2(y, pred []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for i, v := range y {
		ssRes += (v - pred[i]) * (v - pred[i])
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
