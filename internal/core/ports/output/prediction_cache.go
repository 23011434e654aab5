package ports

import "promotion-prediction-service/internal/core/domain"

// PredictionCache memoizes results by model checksum and feature row.
type PredictionCache interface {
	Get(key string) (domain.PredictionResult, bool)
	Add(key string, result domain.PredictionResult)
	Purge()
	Len() int
}
