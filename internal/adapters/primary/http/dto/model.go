package dto

import (
	"time"

	"promotion-prediction-service/internal/core/domain"
	"promotion-prediction-service/internal/pipeline"
)

type ModelResponse struct {
	Name       string              `json:"name"`
	Version    string              `json:"version"`
	Checksum   string              `json:"checksum"`
	Source     string              `json:"source"`
	LoadedAt   string              `json:"loaded_at"`
	CreatedAt  string              `json:"created_at,omitempty"`
	Columns    []string            `json:"columns"`
	Categories map[string][]string `json:"categories"`
	Steps      []pipeline.StepInfo `json:"steps"`
}

func ToModelResponse(m *domain.Model) ModelResponse {
	resp := ModelResponse{
		Name:       m.Name(),
		Version:    m.Version(),
		Checksum:   m.Checksum,
		Source:     m.Source,
		LoadedAt:   m.LoadedAt.Format(time.RFC3339),
		Columns:    m.Pipeline.InputColumns(),
		Categories: m.Categories,
		Steps:      m.Pipeline.Describe(),
	}
	if !m.Pipeline.CreatedAt.IsZero() {
		resp.CreatedAt = m.Pipeline.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
