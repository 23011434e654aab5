package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
	"promotion-prediction-service/internal/pipeline"
)

const persistTimeout = 5 * time.Second

type PredictionService struct {
	models   *ModelArtifactService
	cache    ports.PredictionCache
	repo     ports.PredictionRepository
	metrics  ports.MetricsRecorder
	batchMax int
}

// NewPredictionService wires the prediction use case. cache and repo are optional.
func NewPredictionService(models *ModelArtifactService, cache ports.PredictionCache, repo ports.PredictionRepository, metrics ports.MetricsRecorder, batchMax int) *PredictionService {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if batchMax <= 0 {
		batchMax = 100
	}
	return &PredictionService{models: models, cache: cache, repo: repo, metrics: metrics, batchMax: batchMax}
}

func (s *PredictionService) BatchMax() int {
	return s.batchMax
}

// Predict scores a single employee record against the current model.
func (s *PredictionService) Predict(ctx context.Context, requestID string, rec domain.EmployeeRecord) (*domain.Prediction, error) {
	model, err := s.models.Current()
	if err != nil {
		s.metrics.IncPredictionError("model_not_loaded")
		return nil, err
	}

	pred, err := s.score(model, requestID, rec)
	if err != nil {
		return nil, err
	}

	s.persist(ctx, pred)
	return pred, nil
}

// PredictBatch scores records against one model snapshot. Any failing record fails the batch.
func (s *PredictionService) PredictBatch(ctx context.Context, requestID string, recs []domain.EmployeeRecord) ([]*domain.Prediction, error) {
	if len(recs) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if len(recs) > s.batchMax {
		return nil, fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, len(recs), s.batchMax)
	}

	model, err := s.models.Current()
	if err != nil {
		s.metrics.IncPredictionError("model_not_loaded")
		return nil, err
	}

	preds := make([]*domain.Prediction, 0, len(recs))
	for i, rec := range recs {
		pred, err := s.score(model, requestID, rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		preds = append(preds, pred)
	}

	for _, pred := range preds {
		s.persist(ctx, pred)
	}
	return preds, nil
}

func (s *PredictionService) score(model *domain.Model, requestID string, rec domain.EmployeeRecord) (*domain.Prediction, error) {
	start := time.Now()

	row := rec.FeatureRow()
	subs := model.ApplyCategoryFallback(row)
	for _, sub := range subs {
		log.WithFields(log.Fields{
			"column":     sub.Column,
			"value":      sub.Original,
			"fallback":   sub.Fallback,
			"request_id": requestID,
		}).Warn("unknown category, using fallback")
		s.metrics.IncCategoryFallback(sub.Column)
	}

	key, keyErr := cacheKey(model.Checksum, row)
	if s.cache != nil && keyErr == nil {
		if result, ok := s.cache.Get(key); ok {
			s.metrics.IncCacheLookup(true)
			s.metrics.ObservePrediction(model.Name(), result.Prediction, result.Probability, time.Since(start))
			return s.newPrediction(model, requestID, row, subs, result, true, start), nil
		}
		s.metrics.IncCacheLookup(false)
	}

	result, err := infer(model.Pipeline, row)
	if err != nil {
		s.metrics.IncPredictionError("inference")
		log.WithError(err).WithField("request_id", requestID).Error("prediction failed")
		return nil, &domain.PredictionError{Cause: err}
	}

	if s.cache != nil && keyErr == nil {
		s.cache.Add(key, result)
	}

	pred := s.newPrediction(model, requestID, row, subs, result, false, start)
	s.metrics.ObservePrediction(model.Name(), result.Prediction, result.Probability, time.Since(start))
	return pred, nil
}

func infer(p *pipeline.Pipeline, row pipeline.Row) (domain.PredictionResult, error) {
	label, err := p.Predict(row)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	proba, err := p.PredictProba(row)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	return domain.PredictionResult{
		Prediction:  label,
		Probability: proba[p.PositiveIndex()],
	}, nil
}

func (s *PredictionService) newPrediction(model *domain.Model, requestID string, row pipeline.Row, subs []domain.CategorySubstitution, result domain.PredictionResult, cached bool, start time.Time) *domain.Prediction {
	return &domain.Prediction{
		ID:            uuid.New(),
		RequestID:     requestID,
		ModelName:     model.Name(),
		ModelVersion:  model.Version(),
		ModelChecksum: model.Checksum,
		Features:      map[string]any(row),
		Substitutions: subs,
		Result:        result,
		Cached:        cached,
		LatencyMS:     float64(time.Since(start).Microseconds()) / 1000,
		CreatedAt:     time.Now().UTC(),
	}
}

// persist writes the prediction to the history store. Failures are logged and never surface to the caller.
func (s *PredictionService) persist(ctx context.Context, pred *domain.Prediction) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := s.repo.Save(ctx, pred); err != nil {
		log.WithError(err).WithField("prediction_id", pred.ID).Warn("store prediction failed")
	}
}

// History lists stored predictions, newest first unless filter.Order is "asc".
func (s *PredictionService) History(ctx context.Context, filter ports.PredictionListFilter) ([]*domain.Prediction, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrStoreDisabled
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.List(ctx, filter)
}

func (s *PredictionService) Get(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	if s.repo == nil {
		return nil, domain.ErrStoreDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func cacheKey(checksum string, row pipeline.Row) (string, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(checksum))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}
