package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	"github.com/ajitpratap0/nebula-ml/pkg/logger"
	"github.com/ajitpratap0/nebula-ml/pkg/metrics"
	"github.com/ajitpratap0/nebula-ml/pkg/model"
	"github.com/ajitpratap0/nebula-ml/pkg/observability"
	"github.com/ajitpratap0/nebula-ml/pkg/table"
)

// TimestampLayout formats timestamps in status rows
const TimestampLayout = "15:04:05 01/02/06 MST"

// Status messages returned by the mutating operations
const (
	MsgConfigured      = "Model successfully saved to disk"
	MsgFeaturesDefined = "Feature definitions successfully saved to model"
	MsgTrained         = "Model successfully trained, tested and saved to disk."
)

type handler func(ctx context.Context, c *call, schema table.Schema, rows [][]table.Cell) (*table.Table, error)

// Service executes operations against a Registry. It is safe for
// concurrent use.
type Service struct {
	reg      *Registry
	logger   *zap.Logger
	now      func() time.Time
	handlers map[table.Operation]handler
}

// New creates a Service on reg
func New(reg *Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		reg:    reg,
		logger: log.With(zap.String("component", "service")),
		now:    time.Now,
	}
	s.handlers = map[table.Operation]handler{
		table.OpListModels:           s.listModels,
		table.OpConfigure:            s.configure,
		table.OpDefineFeatures:       s.defineFeatures,
		table.OpGetFeatures:          s.getFeatures,
		table.OpTrain:                s.train,
		table.OpPredict:              s.predictHandler(modeLabel),
		table.OpPredictProba:         s.predictHandler(modeProba),
		table.OpPredictLogProba:      s.predictHandler(modeLogProba),
		table.OpGetFeatureExpression: s.getFeatureExpression,
	}
	return s
}

// Registry returns the registry the service runs on
func (s *Service) Registry() *Registry { return s.reg }

// Invoke runs the named operation on rows
func (s *Service) Invoke(ctx context.Context, op string, rows [][]table.Cell) (*table.Table, error) {
	operation, err := table.ParseOperation(op)
	if err != nil {
		metrics.ObserveOperation(op, 0, err)
		return nil, err
	}
	return s.run(ctx, operation, rows)
}

// ListModels returns the stored model names matching the search pattern
func (s *Service) ListModels(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpListModels, rows)
}

// Configure creates or replaces a model from estimator, scaler, optional
// reduction and execution arguments
func (s *Service) Configure(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpConfigure, rows)
}

// DefineFeatures replaces a model's feature contract
func (s *Service) DefineFeatures(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpDefineFeatures, rows)
}

// GetFeatures returns a model's feature contract
func (s *Service) GetFeatures(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpGetFeatures, rows)
}

// Train fits a model on the supplied vectors and scores it on a held out
// split
func (s *Service) Train(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpTrain, rows)
}

// Predict returns predicted labels
func (s *Service) Predict(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpPredict, rows)
}

// PredictProba returns formatted class probabilities
func (s *Service) PredictProba(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpPredictProba, rows)
}

// PredictLogProba returns formatted class log probabilities
func (s *Service) PredictLogProba(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpPredictLogProba, rows)
}

// GetFeatureExpression returns the load script expression that builds a
// feature vector
func (s *Service) GetFeatureExpression(ctx context.Context, rows [][]table.Cell) (*table.Table, error) {
	return s.run(ctx, table.OpGetFeatureExpression, rows)
}

func (s *Service) run(ctx context.Context, op table.Operation, rows [][]table.Cell) (tbl *table.Table, err error) {
	timer := metrics.NewTimer(string(op))
	ctx = logger.ContextWith(ctx, logger.OperationKey, string(op))

	count := len(rows)
	schema, rows, err := table.Match(op, rows)
	if err == nil && op != table.OpListModels {
		ctx = logger.ContextWith(ctx, logger.ModelKey, rows[0][0].Str)
	}

	ctx, span := observability.StartSpan(ctx, "nebula-ml."+string(op))
	span.SetAttribute("operation", string(op))
	span.SetAttribute("rows", count)
	if err == nil && op != table.OpListModels {
		span.SetAttribute("model", rows[0][0].Str)
	}

	c := &call{
		op:     op,
		rows:   rows,
		reg:    s.reg,
		logger: logger.FromContext(ctx, s.logger),
	}
	defer func() {
		c.finish(tbl, err)
		span.Finish(err)
		metrics.ObserveOperation(string(op), timer.Stop(), err)
	}()

	if err != nil {
		return nil, err
	}
	return s.handlers[op](ctx, c, schema, rows)
}

func (s *Service) timestamp() string {
	return s.now().Format(TimestampLayout)
}

// call carries per-invocation logging state. The debug logger is opened
// lazily once the model is known and only when its debug option is set.
type call struct {
	op     table.Operation
	rows   [][]table.Cell
	reg    *Registry
	logger *zap.Logger

	debug      *zap.Logger
	closeDebug func() error
}

// attach enables the per-call debug log when m has debug on. Failing to
// open the log is a warning; the call proceeds.
func (c *call) attach(m *model.Model) {
	if c.debug != nil || m == nil || !m.Exec.Debug {
		return
	}
	n := c.reg.NextSeq()
	dl, closeFn, err := logger.NewDebugFileLogger(c.reg.DebugDir(), n)
	if err != nil {
		c.logger.Warn("cannot open debug log", zap.Uint64("seq", n), zap.Error(err))
		return
	}
	c.debug = dl.With(zap.String("operation", string(c.op)), zap.String("model", m.Name))
	c.closeDebug = closeFn
	c.debug.Debug("execution arguments", zap.Any("exec", m.Exec))
	c.debug.Debug("estimator", zap.String("name", m.Config.Estimator.Algorithm),
		zap.String("args", m.Config.Estimator.Args.Format()))
	c.debug.Debug("scaler", zap.String("name", m.Config.Scaler.Algorithm),
		zap.String("args", m.Config.Scaler.Args.Format()),
		zap.String("missing", m.Config.Missing),
		zap.Bool("scale_hashed", m.Config.ScaleHashed))
	if m.Config.Reduction != nil {
		c.debug.Debug("reduction", zap.String("name", m.Config.Reduction.Algorithm),
			zap.String("args", m.Config.Reduction.Args.Format()))
	}
	c.debug.Debug("request table", zap.Int("rows", len(c.rows)), zap.Any("data", c.rows))
}

// trace writes to the debug log if one is open
func (c *call) trace(msg string, fields ...zap.Field) {
	if c.debug != nil {
		c.debug.Debug(msg, fields...)
	}
}

func (c *call) finish(tbl *table.Table, err error) {
	if err != nil {
		c.trace("call failed", zap.Error(err))
		if nebulaerrors.IsCallerError(err) {
			c.logger.Info("operation rejected", zap.Error(err))
		} else {
			c.logger.Error("operation failed", zap.Error(err))
		}
	} else if tbl != nil {
		c.trace("response descriptor", zap.Any("descriptor", tbl.Descriptor()))
		c.trace("response table", zap.Int("rows", len(tbl.Rows)), zap.Any("data", tbl.Rows))
	}
	if c.closeDebug != nil {
		if cerr := c.closeDebug(); cerr != nil {
			c.logger.Warn("cannot close debug log", zap.Error(cerr))
		}
	}
}
