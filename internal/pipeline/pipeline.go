package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrMalformedArtifact = errors.New("malformed artifact")
	ErrUnknownOperator   = errors.New("unknown operator type")
	ErrUnknownValue      = errors.New("value not seen during training")
	ErrShapeMismatch     = errors.New("feature shape mismatch")
)

// Row is a single input record keyed by training column name.
// Values are string for categorical columns and float64 for numeric ones.
type Row map[string]any

// Operator types understood by the artifact decoder.
const (
	TypeColumnTransformer  = "column_transformer"
	TypeSimpleImputer      = "simple_imputer"
	TypeStandardScaler     = "standard_scaler"
	TypeOneHotEncoder      = "one_hot_encoder"
	TypeLogisticRegression = "logistic_regression"
	TypeDecisionTree       = "decision_tree"
	TypeRandomForest       = "random_forest"
)

// CategoricalTransformer is the sub-pipeline name whose encoder holds the training categories.
const CategoricalTransformer = "cat"

// Pipeline is a parsed artifact: a preprocessing stage followed by a classifier.
// It is immutable after Parse and safe for concurrent use.
type Pipeline struct {
	Name      string
	Version   string
	CreatedAt time.Time

	steps      []namedStep
	preprocess *ColumnTransformer
	classifier Classifier
}

type namedStep struct {
	name string
	kind string
}

// Classifier scores an already-transformed feature vector.
type Classifier interface {
	Classes() []int
	PredictProba(x []float64) ([]float64, error)
	NumFeatures() int
}

type artifactDoc struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	CreatedAt *time.Time        `json:"created_at"`
	Steps     []json.RawMessage `json:"steps"`
}

type stepHeader struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Parse decodes and validates an artifact document.
func Parse(data []byte) (*Pipeline, error) {
	var doc artifactDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}
	if len(doc.Steps) < 2 {
		return nil, fmt.Errorf("%w: expected preprocessing and classifier steps, got %d", ErrMalformedArtifact, len(doc.Steps))
	}

	p := &Pipeline{Name: doc.Name, Version: doc.Version}
	if doc.CreatedAt != nil {
		p.CreatedAt = *doc.CreatedAt
	}

	last := len(doc.Steps) - 1
	for i, raw := range doc.Steps {
		var hdr stepHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, fmt.Errorf("%w: step %d: %v", ErrMalformedArtifact, i, err)
		}
		p.steps = append(p.steps, namedStep{name: hdr.Name, kind: hdr.Type})

		if i == last {
			clf, err := decodeClassifier(hdr.Type, raw)
			if err != nil {
				return nil, fmt.Errorf("step %q: %w", hdr.Name, err)
			}
			p.classifier = clf
			continue
		}

		if hdr.Type != TypeColumnTransformer {
			return nil, fmt.Errorf("%w: step %q: only %s is supported before the classifier", ErrUnknownOperator, hdr.Name, TypeColumnTransformer)
		}
		if p.preprocess != nil {
			return nil, fmt.Errorf("%w: more than one %s step", ErrMalformedArtifact, TypeColumnTransformer)
		}
		ct, err := decodeColumnTransformer(raw)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", hdr.Name, err)
		}
		ct.Name = hdr.Name
		p.preprocess = ct
	}

	if p.preprocess == nil {
		return nil, fmt.Errorf("%w: missing %s step", ErrMalformedArtifact, TypeColumnTransformer)
	}
	if got, want := p.preprocess.OutputWidth(), p.classifier.NumFeatures(); want > 0 && got != want {
		return nil, fmt.Errorf("%w: preprocessing emits %d features, classifier expects %d", ErrShapeMismatch, got, want)
	}

	return p, nil
}

// Transform runs the preprocessing stage only.
func (p *Pipeline) Transform(row Row) ([]float64, error) {
	return p.preprocess.Transform(row)
}

// PredictProba returns class probabilities ordered as Classes().
func (p *Pipeline) PredictProba(row Row) ([]float64, error) {
	x, err := p.preprocess.Transform(row)
	if err != nil {
		return nil, err
	}
	return p.classifier.PredictProba(x)
}

// Predict returns the class with the highest probability. Ties go to the lower class index.
func (p *Pipeline) Predict(row Row) (int, error) {
	proba, err := p.PredictProba(row)
	if err != nil {
		return 0, err
	}
	return p.classifier.Classes()[argmax(proba)], nil
}

// Classes returns the classifier's class labels.
func (p *Pipeline) Classes() []int {
	return p.classifier.Classes()
}

// PositiveIndex is the column of PredictProba holding the probability of class 1.
func (p *Pipeline) PositiveIndex() int {
	for i, c := range p.classifier.Classes() {
		if c == 1 {
			return i
		}
	}
	return len(p.classifier.Classes()) - 1
}

// InputColumns lists every column consumed by the preprocessing stage.
func (p *Pipeline) InputColumns() []string {
	var cols []string
	for _, t := range p.preprocess.Transformers {
		cols = append(cols, t.Columns...)
	}
	return cols
}

// Categories returns, per categorical column, the categories seen during training.
// Taken from the "cat" sub-pipeline's encoder, or from any transformer that is itself an encoder.
// Encoders inside other sub-pipelines are not consulted.
func (p *Pipeline) Categories() map[string][]string {
	out := make(map[string][]string)
	for _, t := range p.preprocess.Transformers {
		enc := t.categorySource()
		if enc == nil {
			continue
		}
		for i, cats := range enc.Categories {
			if i >= len(t.Columns) {
				break
			}
			cp := make([]string, len(cats))
			copy(cp, cats)
			out[t.Columns[i]] = cp
		}
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
