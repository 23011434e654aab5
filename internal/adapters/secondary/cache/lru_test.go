package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promotion-prediction-service/internal/core/domain"
)

func TestPredictionCache_GetAdd(t *testing.T) {
	c, err := NewPredictionCache(2)
	require.NoError(t, err)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Add("a", domain.PredictionResult{Prediction: 1, Probability: 0.8})
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, got.Prediction)
	assert.Equal(t, 0.8, got.Probability)
}

func TestPredictionCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewPredictionCache(2)
	require.NoError(t, err)

	c.Add("a", domain.PredictionResult{})
	c.Add("b", domain.PredictionResult{})
	c.Get("a")
	c.Add("c", domain.PredictionResult{})

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.Len())
}

func TestPredictionCache_Purge(t *testing.T) {
	c, err := NewPredictionCache(4)
	require.NoError(t, err)

	c.Add("a", domain.PredictionResult{})
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewPredictionCache_InvalidSize(t *testing.T) {
	_, err := NewPredictionCache(0)
	assert.Error(t, err)
}
