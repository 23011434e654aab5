package domain

import (
	"time"

	"github.com/google/uuid"
)

// PredictionResult is the model output returned to API callers.
type PredictionResult struct {
	Prediction  int     `json:"promotion_prediction"`
	Probability float64 `json:"promotion_probability"`
}

// Prediction is one scored request as kept in the history store.
type Prediction struct {
	ID            uuid.UUID              `json:"id"`
	RequestID     string                 `json:"request_id"`
	ModelName     string                 `json:"model_name"`
	ModelVersion  string                 `json:"model_version"`
	ModelChecksum string                 `json:"model_checksum"`
	Features      map[string]any         `json:"features"`
	Substitutions []CategorySubstitution `json:"substitutions"`
	Result        PredictionResult       `json:"result"`
	Cached        bool                   `json:"cached"`
	LatencyMS     float64                `json:"latency_ms"`
	CreatedAt     time.Time              `json:"created_at"`
}
