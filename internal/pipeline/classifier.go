package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

func decodeClassifier(kind string, raw json.RawMessage) (Classifier, error) {
	var clf interface {
		Classifier
		validate() error
	}
	switch kind {
	case TypeLogisticRegression:
		clf = &LogisticRegression{}
	case TypeDecisionTree:
		clf = &DecisionTree{}
	case TypeRandomForest:
		clf = &RandomForest{}
	default:
		return nil, fmt.Errorf("%w: classifier %q", ErrUnknownOperator, kind)
	}
	if err := json.Unmarshal(raw, clf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArtifact, kind, err)
	}
	if err := clf.validate(); err != nil {
		return nil, err
	}
	return clf, nil
}

func validateBinaryClasses(classes []int) error {
	if len(classes) != 2 {
		return fmt.Errorf("%w: binary classifier needs 2 classes, got %d", ErrMalformedArtifact, len(classes))
	}
	return nil
}

// LogisticRegression is a fitted binary logistic model.
type LogisticRegression struct {
	ClassLabels []int     `json:"classes"`
	Coef        []float64 `json:"coef"`
	Intercept   float64   `json:"intercept"`
}

func (m *LogisticRegression) Classes() []int { return m.ClassLabels }

func (m *LogisticRegression) NumFeatures() int { return len(m.Coef) }

func (m *LogisticRegression) validate() error {
	if len(m.Coef) == 0 {
		return fmt.Errorf("%w: logistic regression has no coefficients", ErrMalformedArtifact)
	}
	return validateBinaryClasses(m.ClassLabels)
}

func (m *LogisticRegression) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(m.Coef) {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShapeMismatch, len(x), len(m.Coef))
	}
	z := m.Intercept
	for i, c := range m.Coef {
		z += c * x[i]
	}
	p := sigmoid(z)
	return []float64{1 - p, p}, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// TreeNode is one node of a flattened binary tree. Leaves have Feature < 0.
// Value holds per-class sample counts (or weights) reaching the node.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

// DecisionTree is a fitted classification tree in flat node form, root at index 0.
type DecisionTree struct {
	ClassLabels []int      `json:"classes"`
	Features    int        `json:"n_features"`
	Nodes       []TreeNode `json:"nodes"`
}

func (t *DecisionTree) Classes() []int { return t.ClassLabels }

func (t *DecisionTree) NumFeatures() int { return t.Features }

func (t *DecisionTree) validate() error {
	if err := validateBinaryClasses(t.ClassLabels); err != nil {
		return err
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: tree has no nodes", ErrMalformedArtifact)
	}
	for i, n := range t.Nodes {
		if n.Feature < 0 {
			if len(n.Value) != len(t.ClassLabels) {
				return fmt.Errorf("%w: leaf %d has %d class values", ErrMalformedArtifact, i, len(n.Value))
			}
			continue
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("%w: node %d has invalid children", ErrMalformedArtifact, i)
		}
		if t.Features > 0 && n.Feature >= t.Features {
			return fmt.Errorf("%w: node %d splits on feature %d", ErrMalformedArtifact, i, n.Feature)
		}
	}
	return nil
}

func (t *DecisionTree) PredictProba(x []float64) ([]float64, error) {
	if t.Features > 0 && len(x) != t.Features {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShapeMismatch, len(x), t.Features)
	}
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Feature < 0 {
			return normalize(n.Value), nil
		}
		if n.Feature >= len(x) {
			return nil, errors.New("feature index out of range")
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

func normalize(v []float64) []float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	out := make([]float64, len(v))
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(v))
		}
		return out
	}
	for i, x := range v {
		out[i] = x / sum
	}
	return out
}

// RandomForest averages the probabilities of its trees.
type RandomForest struct {
	ClassLabels []int           `json:"classes"`
	Features    int             `json:"n_features"`
	Trees       []*DecisionTree `json:"trees"`
}

func (f *RandomForest) Classes() []int { return f.ClassLabels }

func (f *RandomForest) NumFeatures() int { return f.Features }

func (f *RandomForest) validate() error {
	if err := validateBinaryClasses(f.ClassLabels); err != nil {
		return err
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: forest has no trees", ErrMalformedArtifact)
	}
	for i, t := range f.Trees {
		if t.ClassLabels == nil {
			t.ClassLabels = f.ClassLabels
		}
		if t.Features == 0 {
			t.Features = f.Features
		}
		if err := t.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	sum := make([]float64, len(f.ClassLabels))
	for _, t := range f.Trees {
		p, err := t.PredictProba(x)
		if err != nil {
			return nil, err
		}
		for i := range sum {
			sum[i] += p[i]
		}
	}
	for i := range sum {
		sum[i] /= float64(len(f.Trees))
	}
	return sum, nil
}
