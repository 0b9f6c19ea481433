package table

import (
	"io"
	"text/tabwriter"

	nebulaerrors "github.com/ajitpratap0/nebula-ml/pkg/errors"
	stringpool "github.com/ajitpratap0/nebula-ml/pkg/strings"
)

// FieldType is the declared type of a column
type FieldType string

const (
	String  FieldType = "string"
	Numeric FieldType = "numeric"
	// Any accepts either cell kind; used for caller supplied keys
	Any FieldType = "any"
)

// Field describes one column
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Descriptor names a table and its columns. Responses carry the
// descriptor ahead of the row data.
type Descriptor struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Table is a descriptor with rows
type Table struct {
	Name   string   `json:"name"`
	Fields []Field  `json:"fields"`
	Rows   [][]Cell `json:"rows"`
}

// New creates an empty table for d
func New(d Descriptor) *Table {
	return &Table{Name: d.Name, Fields: d.Fields, Rows: [][]Cell{}}
}

// Descriptor returns the table's descriptor
func (t *Table) Descriptor() Descriptor {
	return Descriptor{Name: t.Name, Fields: t.Fields}
}

// Append adds a row. The row must match the descriptor width.
func (t *Table) Append(cells ...Cell) error {
	if len(cells) != len(t.Fields) {
		return nebulaerrors.Newf(nebulaerrors.ErrorTypeInternal,
			"row has %d cells, table %s has %d fields", len(cells), t.Name, len(t.Fields))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

// Column returns the values of the named column as text
func (t *Table) Column(name string) []string {
	idx := -1
	for i, f := range t.Fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx].String()
	}
	return out
}

// WriteText writes the table as aligned, tab separated text with a
// header line
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	if _, err := io.WriteString(tw, stringpool.JoinPooled(names, "\t")+"\n"); err != nil {
		return err
	}
	for _, row := range t.Rows {
		vals := make([]string, len(row))
		for i, c := range row {
			vals[i] = c.String()
		}
		if _, err := io.WriteString(tw, stringpool.JoinPooled(vals, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func s(name string) Field { return Field{Name: name, Type: String} }
func n(name string) Field { return Field{Name: name, Type: Numeric} }

// Response descriptors
var (
	Models = Descriptor{Name: "models", Fields: []Field{s("result")}}

	Setup = Descriptor{Name: "setup", Fields: []Field{s("model_name"), s("result"), s("timestamp")}}

	Features = Descriptor{Name: "features", Fields: []Field{
		s("model_name"), n("sort_order"), s("feature"), s("var_type"), s("data_type"), s("strategy"), n("hash_length"),
	}}

	Fit = Descriptor{Name: "fit", Fields: []Field{
		s("model_name"), s("result"), s("time_stamp"), s("score_result"), n("score"),
	}}

	PredictKeyed = Descriptor{Name: "predict", Fields: []Field{s("model_name"), {Name: "key", Type: Any}, s("prediction")}}

	Prediction = Descriptor{Name: "prediction", Fields: []Field{s("result")}}

	Expression = Descriptor{Name: "expression", Fields: []Field{s("result")}}
)
