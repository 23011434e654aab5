package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ports "promotion-prediction-service/internal/core/ports/output"
)

func TestBuildWhere_NoFilter(t *testing.T) {
	where, args := buildWhere(ports.PredictionListFilter{})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildWhere_AllFilters(t *testing.T) {
	label := 1
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	where, args := buildWhere(ports.PredictionListFilter{
		ModelName: "promotion_model",
		Label:     &label,
		Since:     since,
		Until:     until,
	})

	assert.Equal(t, "model_name = $1 AND prediction = $2 AND created_at >= $3 AND created_at < $4", where)
	assert.Equal(t, []interface{}{"promotion_model", 1, since, until}, args)
}

func TestBuildWhere_LabelZero(t *testing.T) {
	label := 0
	where, args := buildWhere(ports.PredictionListFilter{Label: &label})
	assert.Equal(t, "prediction = $1", where)
	assert.Equal(t, []interface{}{0}, args)
}

func TestOrderDirection(t *testing.T) {
	assert.Equal(t, "ASC", orderDirection("asc"))
	assert.Equal(t, "ASC", orderDirection("ASC"))
	assert.Equal(t, "DESC", orderDirection(""))
	assert.Equal(t, "DESC", orderDirection("sideways"))
}
