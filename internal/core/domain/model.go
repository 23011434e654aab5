package domain

import (
	"sort"
	"time"

	"promotion-prediction-service/internal/pipeline"
)

// Model is a loaded artifact together with the category table extracted from it.
// It is never mutated once published.
type Model struct {
	Pipeline   *pipeline.Pipeline
	Categories map[string][]string
	Checksum   string
	Source     string
	LoadedAt   time.Time
}

// NewModel wraps a parsed pipeline and extracts its category table.
func NewModel(p *pipeline.Pipeline, checksum, source string) *Model {
	return &Model{
		Pipeline:   p,
		Categories: p.Categories(),
		Checksum:   checksum,
		Source:     source,
		LoadedAt:   time.Now(),
	}
}

// Name returns the artifact name, falling back to the checksum prefix.
func (m *Model) Name() string {
	if m.Pipeline.Name != "" {
		return m.Pipeline.Name
	}
	if len(m.Checksum) >= 12 {
		return m.Checksum[:12]
	}
	return m.Checksum
}

func (m *Model) Version() string {
	return m.Pipeline.Version
}

// CategorySubstitution records one unknown categorical value replaced by the fallback.
type CategorySubstitution struct {
	Column   string `json:"column"`
	Original string `json:"original"`
	Fallback string `json:"fallback"`
}

// ApplyCategoryFallback replaces every categorical value not seen during training
// with the first category of its column. The row is modified in place.
func (m *Model) ApplyCategoryFallback(row pipeline.Row) []CategorySubstitution {
	columns := make([]string, 0, len(m.Categories))
	for col := range m.Categories {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var subs []CategorySubstitution
	for _, col := range columns {
		cats := m.Categories[col]
		v, ok := row[col]
		if !ok || len(cats) == 0 {
			continue
		}
		s, isString := v.(string)
		if !isString || contains(cats, s) {
			continue
		}
		row[col] = cats[0]
		subs = append(subs, CategorySubstitution{Column: col, Original: s, Fallback: cats[0]})
	}
	return subs
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
