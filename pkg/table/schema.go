package table

import (
	"sort"
	"strings"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
)

// Operation names an entry point of the service
type Operation string

const (
	OpListModels           Operation = "list-models"
	OpConfigure            Operation = "configure"
	OpDefineFeatures       Operation = "define-features"
	OpGetFeatures          Operation = "get-features"
	OpTrain                Operation = "train"
	OpPredict              Operation = "predict"
	OpPredictProba         Operation = "predict-proba"
	OpPredictLogProba      Operation = "predict-log-proba"
	OpGetFeatureExpression Operation = "get-feature-expression"
)

// Schema is one accepted inbound row layout of an operation
type Schema struct {
	Name   string
	Fields []Field
}

// Width returns the number of columns
func (s Schema) Width() int { return len(s.Fields) }

// Inbound schema variants
var (
	ListModelsSchema = Schema{Name: "list-models", Fields: []Field{s("search_pattern")}}

	ConfigureSchema = Schema{Name: "configure", Fields: []Field{
		s("model_name"), s("estimator_args"), s("scaler_args"), s("execution_args"),
	}}

	ConfigureReductionSchema = Schema{Name: "configure-reduction", Fields: []Field{
		s("model_name"), s("estimator_args"), s("scaler_args"), s("reduction_args"), s("execution_args"),
	}}

	DefineFeaturesSchema = Schema{Name: "define-features", Fields: []Field{
		s("model_name"), s("name"), s("variable_type"), s("data_type"), s("feature_strategy"), n("hash_features"),
	}}

	ModelSchema = Schema{Name: "model", Fields: []Field{s("model_name")}}

	TrainSchema = Schema{Name: "train", Fields: []Field{s("model_name"), s("n_features")}}

	PredictPositionalSchema = Schema{Name: "predict-positional", Fields: []Field{s("model_name"), s("n_features")}}

	PredictKeyedSchema = Schema{Name: "predict-keyed", Fields: []Field{s("model_name"), {Name: "key", Type: Any}, s("n_features")}}
)

var inbound = map[Operation][]Schema{
	OpListModels:           {ListModelsSchema},
	OpConfigure:            {ConfigureSchema, ConfigureReductionSchema},
	OpDefineFeatures:       {DefineFeaturesSchema},
	OpGetFeatures:          {ModelSchema},
	OpGetFeatureExpression: {ModelSchema},
	OpTrain:                {TrainSchema},
	OpPredict:              {PredictPositionalSchema, PredictKeyedSchema},
	OpPredictProba:         {PredictPositionalSchema, PredictKeyedSchema},
	OpPredictLogProba:      {PredictPositionalSchema, PredictKeyedSchema},
}

// Operations lists every known operation, sorted
func Operations() []Operation {
	out := make([]Operation, 0, len(inbound))
	for op := range inbound {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseOperation resolves an operation name
func ParseOperation(name string) (Operation, error) {
	op := Operation(name)
	if _, ok := inbound[op]; !ok {
		return "", nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema, "unknown operation %q", name).
			WithDetail("operation", name)
	}
	return op, nil
}

// Match checks rows against the inbound schemas of op and returns the
// variant they follow together with a normalized copy of rows. Every row
// must have the same width and cell types, there must be at least one row,
// and for operations that address a model every row must name the same
// model. In the copy, numeric columns given as numeric strings become
// numbers and model names are trimmed of surrounding whitespace. rows
// itself is never modified.
func Match(op Operation, rows [][]Cell) (Schema, [][]Cell, error) {
	schemas, ok := inbound[op]
	if !ok {
		return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema, "unknown operation %q", op)
	}
	if len(rows) == 0 {
		return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema, "%s requires at least one row", op)
	}

	var schema Schema
	found := false
	for _, sc := range schemas {
		if sc.Width() == len(rows[0]) {
			schema, found = sc, true
			break
		}
	}
	if !found {
		return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
			"%s does not accept rows with %d columns", op, len(rows[0])).
			WithDetail("row", 0)
	}

	out := make([][]Cell, len(rows))
	for i, row := range rows {
		if len(row) != schema.Width() {
			return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
				"row %d has %d columns, expected %d", i, len(row), schema.Width()).
				WithDetail("row", i)
		}
		norm := append([]Cell(nil), row...)
		for j, f := range schema.Fields {
			if problem := checkCell(&norm[j], f); problem != "" {
				return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
					"row %d column %s: %s", i, f.Name, problem).
					WithDetail("row", i).
					WithDetail("column", f.Name)
			}
		}
		if op != OpListModels {
			norm[0].Str = strings.TrimSpace(norm[0].Str)
			if i > 0 && norm[0].Str != out[0][0].Str {
				return Schema{}, nil, nebulaerrors.Newf(nebulaerrors.ErrorTypeSchema,
					"row %d names model %q, expected %q", i, norm[0].Str, out[0][0].Str).
					WithDetail("row", i)
			}
		}
		out[i] = norm
	}
	return schema, out, nil
}

// checkCell returns a description of the mismatch, or "" when c fits f.
// A blank numeric cell reads as zero.
func checkCell(c *Cell, f Field) string {
	switch f.Type {
	case String:
		if c.IsNum {
			return "expected a string, got a number"
		}
	case Numeric:
		if c.IsNum {
			return ""
		}
		if strings.TrimSpace(c.Str) == "" {
			*c = N(0)
			return ""
		}
		v, ok := c.Number()
		if !ok {
			return stringpool.Sprintf("expected a number, got %q", c.Str)
		}
		*c = N(v)
	}
	return ""
}
