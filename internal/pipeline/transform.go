package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ColumnTransformer applies each transformer to its own columns and concatenates the outputs.
// Columns not named by any transformer are dropped.
type ColumnTransformer struct {
	Name         string
	Transformers []*Transformer
}

// Transformer is a named chain of column operators over a fixed column list.
// An empty chain passes numeric values through unchanged.
type Transformer struct {
	Name    string
	Columns []string
	Steps   []Operator

	// bare is set when the transformer is a single operator rather than a sub-pipeline.
	bare bool
}

// categorySource is the encoder whose categories drive the unknown-value fallback:
// the encoder of the "cat" sub-pipeline, or the transformer itself when it is a bare encoder.
func (t *Transformer) categorySource() *OneHotEncoder {
	if t.Name == CategoricalTransformer {
		return t.encoder()
	}
	if t.bare && len(t.Steps) == 1 {
		enc, _ := t.Steps[0].(*OneHotEncoder)
		return enc
	}
	return nil
}

// Operator transforms a block of column values. Values are float64, string or nil (missing).
type Operator interface {
	Type() string
	Apply(values []any) ([]any, error)
	OutputWidth(inputWidth int) int
}

type columnTransformerDoc struct {
	Remainder    string            `json:"remainder"`
	Transformers []json.RawMessage `json:"transformers"`
}

type transformerDoc struct {
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Columns []string          `json:"columns"`
	Steps   []json.RawMessage `json:"steps"`
}

func decodeColumnTransformer(raw json.RawMessage) (*ColumnTransformer, error) {
	var doc columnTransformerDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if doc.Remainder != "" && doc.Remainder != "drop" {
		return nil, fmt.Errorf("%w: remainder %q is not supported", ErrMalformedArtifact, doc.Remainder)
	}
	if len(doc.Transformers) == 0 {
		return nil, fmt.Errorf("%w: column transformer has no transformers", ErrMalformedArtifact)
	}

	ct := &ColumnTransformer{}
	for _, tr := range doc.Transformers {
		var td transformerDoc
		if err := json.Unmarshal(tr, &td); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
		}
		if len(td.Columns) == 0 {
			return nil, fmt.Errorf("%w: transformer %q has no columns", ErrMalformedArtifact, td.Name)
		}

		t := &Transformer{Name: td.Name, Columns: td.Columns}
		switch {
		case len(td.Steps) > 0:
			for _, s := range td.Steps {
				op, err := decodeOperator(s)
				if err != nil {
					return nil, fmt.Errorf("transformer %q: %w", td.Name, err)
				}
				t.Steps = append(t.Steps, op)
			}
		case td.Type != "" && td.Type != "passthrough":
			op, err := decodeOperator(tr)
			if err != nil {
				return nil, fmt.Errorf("transformer %q: %w", td.Name, err)
			}
			t.Steps = []Operator{op}
			t.bare = true
		}

		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("transformer %q: %w", td.Name, err)
		}
		ct.Transformers = append(ct.Transformers, t)
	}
	return ct, nil
}

func decodeOperator(raw json.RawMessage) (Operator, error) {
	var hdr stepHeader
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}

	var op Operator
	switch hdr.Type {
	case TypeSimpleImputer:
		op = &SimpleImputer{}
	case TypeStandardScaler:
		op = &StandardScaler{}
	case TypeOneHotEncoder:
		op = &OneHotEncoder{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, hdr.Type)
	}
	if err := json.Unmarshal(raw, op); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, hdr.Type, err)
	}
	return op, nil
}

func (t *Transformer) validate() error {
	width := len(t.Columns)
	for _, op := range t.Steps {
		var fitted int
		switch o := op.(type) {
		case *SimpleImputer:
			fitted = len(o.Statistics)
		case *StandardScaler:
			fitted = len(o.Mean)
			if len(o.Scale) != len(o.Mean) {
				return fmt.Errorf("%w: scaler mean/scale length differ", ErrMalformedArtifact)
			}
		case *OneHotEncoder:
			fitted = len(o.Categories)
		}
		if fitted != width {
			return fmt.Errorf("%w: %s fitted on %d columns, receives %d", ErrShapeMismatch, op.Type(), fitted, width)
		}
		width = op.OutputWidth(width)
	}
	return nil
}

func (t *Transformer) encoder() *OneHotEncoder {
	for _, op := range t.Steps {
		if enc, ok := op.(*OneHotEncoder); ok {
			return enc
		}
	}
	return nil
}

func (t *Transformer) outputWidth() int {
	w := len(t.Columns)
	for _, op := range t.Steps {
		w = op.OutputWidth(w)
	}
	return w
}

// OutputWidth is the length of the vector produced by Transform.
func (ct *ColumnTransformer) OutputWidth() int {
	total := 0
	for _, t := range ct.Transformers {
		total += t.outputWidth()
	}
	return total
}

// Transform builds the classifier input vector for a row.
func (ct *ColumnTransformer) Transform(row Row) ([]float64, error) {
	out := make([]float64, 0, ct.OutputWidth())
	for _, t := range ct.Transformers {
		values := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			values[i] = row[col]
		}

		var err error
		for _, op := range t.Steps {
			values, err = op.Apply(values)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", t.Name, op.Type(), err)
			}
		}

		for i, v := range values {
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%s: output %d: %w", t.Name, i, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// SimpleImputer replaces missing values with the statistic learned for the column.
type SimpleImputer struct {
	Strategy   string `json:"strategy"`
	Statistics []any  `json:"statistics"`
}

func (s *SimpleImputer) Type() string { return TypeSimpleImputer }

func (s *SimpleImputer) OutputWidth(in int) int { return in }

func (s *SimpleImputer) Apply(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		if isMissing(v) {
			out[i] = s.Statistics[i]
			continue
		}
		out[i] = v
	}
	return out, nil
}

// StandardScaler centers and scales numeric columns.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Type() string { return TypeStandardScaler }

func (s *StandardScaler) OutputWidth(in int) int { return in }

func (s *StandardScaler) Apply(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (f - s.Mean[i]) / scale
	}
	return out, nil
}

// OneHotEncoder expands each categorical column into one indicator per training category.
type OneHotEncoder struct {
	Categories    [][]string `json:"categories"`
	HandleUnknown string     `json:"handle_unknown"`
	Drop          []*string  `json:"drop,omitempty"`
}

func (e *OneHotEncoder) Type() string { return TypeOneHotEncoder }

func (e *OneHotEncoder) OutputWidth(int) int {
	w := 0
	for i, cats := range e.Categories {
		w += len(cats)
		if e.dropped(i) != "" {
			w--
		}
	}
	return w
}

func (e *OneHotEncoder) dropped(i int) string {
	if i < len(e.Drop) && e.Drop[i] != nil {
		return *e.Drop[i]
	}
	return ""
}

func (e *OneHotEncoder) Apply(values []any) ([]any, error) {
	out := make([]any, 0, e.OutputWidth(len(values)))
	for i, v := range values {
		s := toString(v)
		drop := e.dropped(i)
		found := false
		for _, c := range e.Categories[i] {
			if c == drop {
				found = found || c == s
				continue
			}
			if c == s {
				found = true
				out = append(out, 1.0)
			} else {
				out = append(out, 0.0)
			}
		}
		if !found && e.HandleUnknown != "ignore" && e.HandleUnknown != "infrequent_if_exist" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownValue, s)
		}
	}
	return out, nil
}

func isMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric value %q", x)
		}
		return f, nil
	case nil:
		return math.NaN(), nil
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
