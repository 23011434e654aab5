package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
)

// MockArtifactSource is a mock of ArtifactSource.
type MockArtifactSource struct {
	mock.Mock
}

func (m *MockArtifactSource) Fetch(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockArtifactSource) Location() string {
	args := m.Called()
	return args.String(0)
}

// MockPredictionRepo is a mock of PredictionRepository.
type MockPredictionRepo struct {
	mock.Mock
}

func (m *MockPredictionRepo) Save(ctx context.Context, p *domain.Prediction) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPredictionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prediction), args.Error(1)
}

func (m *MockPredictionRepo) List(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Prediction), args.Int(1), args.Error(2)
}

// MockPredictionCache is a mock of PredictionCache.
type MockPredictionCache struct {
	mock.Mock
}

func (m *MockPredictionCache) Get(key string) (domain.PredictionResult, bool) {
	args := m.Called(key)
	return args.Get(0).(domain.PredictionResult), args.Bool(1)
}

func (m *MockPredictionCache) Add(key string, result domain.PredictionResult) {
	m.Called(key, result)
}

func (m *MockPredictionCache) Purge() {
	m.Called()
}

func (m *MockPredictionCache) Len() int {
	args := m.Called()
	return args.Int(0)
}

// MockArtifactWatcher invokes onChange once per value sent on Changes, then waits for ctx.
type MockArtifactWatcher struct {
	Changes chan struct{}
}

func (w *MockArtifactWatcher) Watch(ctx context.Context, onChange func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				<-ctx.Done()
				return nil
			}
			onChange()
		}
	}
}
