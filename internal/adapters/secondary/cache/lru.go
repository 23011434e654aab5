package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
)

type predictionCache struct {
	lru *lru.Cache[string, domain.PredictionResult]
}

// NewPredictionCache creates a bounded in-memory cache of prediction results.
func NewPredictionCache(size int) (ports.PredictionCache, error) {
	c, err := lru.New[string, domain.PredictionResult](size)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	return &predictionCache{lru: c}, nil
}

func (c *predictionCache) Get(key string) (domain.PredictionResult, bool) {
	return c.lru.Get(key)
}

func (c *predictionCache) Add(key string, result domain.PredictionResult) {
	c.lru.Add(key, result)
}

func (c *predictionCache) Purge() {
	c.lru.Purge()
}

func (c *predictionCache) Len() int {
	return c.lru.Len()
}
