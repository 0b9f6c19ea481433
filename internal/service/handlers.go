package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ml/internal/pipeline"
	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/features"
	"github.com/ajitpratap0/nebula-ml/pkg/kwargs"
	"github.com/ajitpratap0/nebula-ml/pkg/metrics"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
	"github.com/ajitpratap0/nebula-ml/pkg/table"
)

func (s *Service) listModels(ctx context.Context, c *call, _ table.Schema, rows [][]table.Cell) (*table.Table, error) {
	pattern := strings.TrimSpace(rows[0][0].Str)
	if pattern == "" {
		pattern = "*"
	}
	names, err := s.reg.List(ctx, pattern)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("listed models", zap.String("pattern", pattern), zap.Int("count", len(names)))

	out := table.New(table.Models)
	return out, out.Append(table.S(stringpool.JoinPooled(names, ", ")))
}

func parseArgs(name, raw string) (*kwargs.Args, error) {
	args, err := kwargs.Parse(raw)
	if err != nil {
		var e *nebulaerrors.Error
		if errors.As(err, &e) {
			e.WithDetail("argument", name)
		}
		return nil, err
	}
	return args, nil
}

func (s *Service) configure(ctx context.Context, c *call, schema table.Schema, rows [][]table.Cell) (*table.Table, error) {
	row := rows[0]
	name := row[0].Str
	if err := model.ValidateName(name); err != nil {
		return nil, err
	}

	estimatorArgs, err := parseArgs("estimator_args", row[1].Str)
	if err != nil {
		return nil, err
	}
	scalerArgs, err := parseArgs("scaler_args", row[2].Str)
	if err != nil {
		return nil, err
	}
	var reductionArgs *kwargs.Args
	execRaw := row[3].Str
	if schema.Name == table.ConfigureReductionSchema.Name {
		if reductionArgs, err = parseArgs("reduction_args", row[3].Str); err != nil {
			return nil, err
		}
		execRaw = row[4].Str
	}
	execArgs, err := parseArgs("execution_args", execRaw)
	if err != nil {
		return nil, err
	}

	cfg, err := pipeline.NewConfig(estimatorArgs, scalerArgs, reductionArgs)
	if err != nil {
		return nil, err
	}
	exec, err := model.ParseExec(execArgs)
	if err != nil {
		return nil, err
	}
	m, err := model.New(name, cfg, exec)
	if err != nil {
		return nil, err
	}
	c.attach(m)

	replaced, err := s.reg.Create(ctx, m, exec.Overwrite)
	if err != nil {
		return nil, err
	}
	c.trace("model saved", zap.Strings("cache", s.reg.CachedModels()))
	c.logger.Info("model configured",
		zap.String("estimator", cfg.Estimator.Algorithm),
		zap.String("scaler", cfg.Scaler.Algorithm),
		zap.Bool("replaced", replaced))

	return s.setupResponse(name, MsgConfigured)
}

func (s *Service) setupResponse(name, msg string) (*table.Table, error) {
	out := table.New(table.Setup)
	return out, out.Append(table.S(name), table.S(msg), table.S(s.timestamp()))
}

func featureSpec(row []table.Cell) (features.Spec, error) {
	role, err := features.ParseRole(row[2].Str)
	if err != nil {
		return features.Spec{}, err
	}
	dt, err := features.ParseDataType(row[3].Str)
	if err != nil {
		return features.Spec{}, err
	}
	strategy, err := features.ParseStrategy(row[4].Str)
	if err != nil {
		return features.Spec{}, err
	}
	return features.Spec{
		Name:      strings.TrimSpace(row[1].Str),
		Role:      role,
		DataType:  dt,
		Strategy:  strategy,
		HashWidth: int(row[5].Num),
	}, nil
}

func (s *Service) defineFeatures(ctx context.Context, c *call, _ table.Schema, rows [][]table.Cell) (*table.Table, error) {
	name := rows[0][0].Str
	specs := make([]features.Spec, len(rows))
	for i, row := range rows {
		spec, err := featureSpec(row)
		if err != nil {
			return nil, withRow(err, i)
		}
		specs[i] = spec
	}
	contract, err := features.NewContract(specs)
	if err != nil {
		return nil, err
	}

	current, err := s.reg.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	c.attach(current)
	c.trace("model resolved", zap.Strings("cache", s.reg.CachedModels()))

	m := current.Clone()
	m.DefineFeatures(contract)
	if err := s.reg.Commit(ctx, m); err != nil {
		return nil, err
	}
	c.trace("model saved", zap.Strings("cache", s.reg.CachedModels()))
	c.logger.Info("features defined", zap.Int("columns", len(specs)))

	return s.setupResponse(name, MsgFeaturesDefined)
}

func withRow(err error, row int) error {
	var e *nebulaerrors.Error
	if errors.As(err, &e) {
		e.WithDetail("row", row)
	}
	return err
}

func (s *Service) resolveContract(ctx context.Context, c *call, name string) (*model.Model, *features.Contract, error) {
	m, err := s.reg.Resolve(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	c.attach(m)
	c.trace("model resolved", zap.String("state", string(m.State())), zap.Strings("cache", s.reg.CachedModels()))
	contract, err := m.Contract()
	if err != nil {
		return nil, nil, err
	}
	return m, contract, nil
}

func (s *Service) getFeatures(ctx context.Context, c *call, _ table.Schema, rows [][]table.Cell) (*table.Table, error) {
	name := rows[0][0].Str
	_, contract, err := s.resolveContract(ctx, c, name)
	if err != nil {
		return nil, err
	}
	out := table.New(table.Features)
	for i, spec := range contract.Full() {
		err := out.Append(
			table.S(name),
			table.N(float64(i+1)),
			table.S(spec.Name),
			table.S(string(spec.Role)),
			table.S(string(spec.DataType)),
			table.S(string(spec.Strategy)),
			table.N(float64(spec.HashWidth)),
		)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Service) getFeatureExpression(ctx context.Context, c *call, _ table.Schema, rows [][]table.Cell) (*table.Table, error) {
	_, contract, err := s.resolveContract(ctx, c, rows[0][0].Str)
	if err != nil {
		return nil, err
	}
	out := table.New(table.Expression)
	return out, out.Append(table.S(contract.Expression()))
}

func (s *Service) train(ctx context.Context, c *call, _ table.Schema, rows [][]table.Cell) (*table.Table, error) {
	name := rows[0][0].Str
	current, contract, err := s.resolveContract(ctx, c, name)
	if err != nil {
		return nil, err
	}

	vectors := make([]string, len(rows))
	for i, row := range rows {
		vectors[i] = row[1].Str
	}
	ds, err := pipeline.NewDataset(contract, vectors)
	if err != nil {
		return nil, err
	}
	train, test, err := ds.Split(current.Exec.TestSize, current.Exec.RandomState)
	if err != nil {
		return nil, err
	}
	c.trace("data split", zap.Int("train_rows", train.Len()), zap.Int("test_rows", test.Len()))

	p, err := pipeline.New(current.Config, contract)
	if err != nil {
		return nil, err
	}
	if err := p.Fit(train); err != nil {
		return nil, err
	}
	score, err := p.Score(test)
	if err != nil {
		return nil, err
	}

	m := current.Clone()
	m.SetTrained(p, score, &model.Retained{Train: train, Test: test})
	if err := s.reg.Commit(ctx, m); err != nil {
		return nil, err
	}
	metrics.ModelScore.WithLabelValues(name).Set(score)
	c.trace("model saved", zap.Float64("score", score), zap.Strings("cache", s.reg.CachedModels()))
	c.logger.Info("model trained",
		zap.String("estimator", p.EstimatorName()),
		zap.Int("rows", ds.Len()),
		zap.Float64("score", score))

	out := table.New(table.Fit)
	summary := stringpool.Sprintf("%s model has a %s accuracy against the test data.",
		p.EstimatorName(), pipeline.FormatScore(score))
	return out, out.Append(
		table.S(name),
		table.S(MsgTrained),
		table.S(s.timestamp()),
		table.S(summary),
		table.N(score),
	)
}

type predictMode int

const (
	modeLabel predictMode = iota
	modeProba
	modeLogProba
)

func (s *Service) predictHandler(mode predictMode) handler {
	return func(ctx context.Context, c *call, schema table.Schema, rows [][]table.Cell) (*table.Table, error) {
		return s.predict(ctx, c, schema, rows, mode)
	}
}

func (s *Service) predict(ctx context.Context, c *call, schema table.Schema, rows [][]table.Cell, mode predictMode) (*table.Table, error) {
	name := rows[0][0].Str
	m, err := s.reg.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	c.attach(m)
	c.trace("model resolved", zap.String("state", string(m.State())), zap.Strings("cache", s.reg.CachedModels()))
	if !m.Trained() {
		return nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeState, "model %q is not trained", name).
			WithDetail("model", name)
	}
	p := m.Pipeline()

	keyed := schema.Name == table.PredictKeyedSchema.Name
	vecCol := 1
	if keyed {
		vecCol = 2
	}
	vectors := make([]string, len(rows))
	for i, row := range rows {
		vectors[i] = row[vecCol].Str
	}
	fields, err := p.ParseVectors(vectors)
	if err != nil {
		return nil, err
	}

	var results []string
	switch mode {
	case modeLabel:
		results, err = p.Predict(fields)
	default:
		results, err = predictProbabilities(p, fields, mode == modeLogProba)
	}
	if err != nil {
		return nil, err
	}

	if !keyed {
		out := table.New(table.Prediction)
		for _, r := range results {
			if err := out.Append(table.S(r)); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	out := table.New(table.PredictKeyed)
	for i, r := range results {
		if err := out.Append(table.S(name), rows[i][1], table.S(r)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func predictProbabilities(p *pipeline.Pipeline, fields [][]string, logScale bool) ([]string, error) {
	classes, err := p.Classes()
	if err != nil {
		return nil, err
	}
	var values [][]float64
	if logScale {
		values, err = p.PredictLogProba(fields)
	} else {
		values, err = p.PredictProba(fields)
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, row := range values {
		out[i] = pipeline.FormatProbabilities(classes, row)
	}
	return out, nil
}
