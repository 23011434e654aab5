package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"promotion-prediction-service/internal/core/domain"
)

type PredictionListFilter struct {
	ModelName string
	Label     *int
	Since     time.Time
	Until     time.Time
	Order     string
	Limit     int
	Offset    int
}

// PredictionRepository stores the history of scored requests.
type PredictionRepository interface {
	Save(ctx context.Context, p *domain.Prediction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error)
	List(ctx context.Context, filter PredictionListFilter) ([]*domain.Prediction, int, error)
}
