package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SampleArtifact is a small logistic-regression promotion pipeline. The region
// vocabulary is cut down to region_1, region_2 and region_7.
const SampleArtifact = `{
  "name": "promotion_model",
  "version": "test",
  "created_at": "2026-09-01T12:00:00Z",
  "steps": [
    {"name": "prepocess", "type": "column_transformer", "remainder": "drop", "transformers": [
      {"name": "num",
       "columns": ["no_of_trainings", "age", "previous_year_rating", "length_of_service", "KPIs_met >80%", "awards_won?", "avg_training_score"],
       "steps": [
         {"name": "imputer", "type": "simple_imputer", "strategy": "median", "statistics": [1, 33, 3, 5, 0, 0, 60]},
         {"name": "scaler", "type": "standard_scaler",
          "mean": [1.25, 34.8, 3.33, 5.87, 0.35, 0.02, 63.39],
          "scale": [0.61, 7.66, 1.26, 4.27, 0.48, 0.15, 13.37]}]},
      {"name": "cat",
       "columns": ["department", "region", "education", "gender", "recruitment_channel"],
       "steps": [
         {"name": "imputer", "type": "simple_imputer", "strategy": "most_frequent",
          "statistics": ["Sales & Marketing", "region_2", "Bachelor's", "m", "other"]},
         {"name": "onehot", "type": "one_hot_encoder", "handle_unknown": "ignore", "categories": [
           ["Analytics", "Finance", "HR", "Legal", "Operations", "Procurement", "R&D", "Sales & Marketing", "Technology"],
           ["region_1", "region_2", "region_7"],
           ["Bachelor's", "Below Secondary", "Master's & above"],
           ["f", "m"],
           ["other", "referred", "sourcing"]]}]}]},
    {"name": "classifier", "type": "logistic_regression", "classes": [0, 1],
     "coef": [-0.12, -0.18, 0.41, 0.05, 0.92, 0.38, 1.21,
              -0.35, 0.22, 0.61, 0.18, 0.27, 0.14, -0.41, 0.83, -0.12,
              0.1, -0.2, 0.3,
              -0.05, 0.02, 0.11,
              0.03, -0.03,
              -0.02, 0.06, 0.01],
     "intercept": -3.1}
  ]
}`

// Expected class-1 probabilities for SampleArtifact.
const (
	// SampleRecordProbability is the score of SampleRecordJSON.
	SampleRecordProbability = 0.21176656257366713
	// FallbackRegionProbability is the score of SampleRecordJSON with region set to region_1.
	FallbackRegionProbability = 0.18030096820635944
)

// SampleRecordJSON is a valid predict request body.
const SampleRecordJSON = `{
  "department": "Sales & Marketing",
  "region": "region_7",
  "education": "Master's & above",
  "gender": "f",
  "recruitment_channel": "sourcing",
  "no_of_trainings": 1,
  "age": 35,
  "previous_year_rating": 5.0,
  "length_of_service": 8,
  "KPIs_met_80_percent": 1,
  "awards_won": 0,
  "avg_training_score": 49
}`

// WriteArtifact writes content into a temp dir and returns the file path.
func WriteArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promotion_model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
