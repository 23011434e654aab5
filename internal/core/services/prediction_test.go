package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"promotion-prediction-service/internal/adapters/secondary/cache"
	promadapter "promotion-prediction-service/internal/adapters/secondary/prometheus"
	"promotion-prediction-service/internal/core/domain"
	ports "promotion-prediction-service/internal/core/ports/output"
	"promotion-prediction-service/internal/testutil"
)

func sampleRecord() domain.EmployeeRecord {
	return domain.EmployeeRecord{
		Department:         "Sales & Marketing",
		Region:             "region_7",
		Education:          "Master's & above",
		Gender:             "f",
		RecruitmentChannel: "sourcing",
		NoOfTrainings:      1,
		Age:                35,
		PreviousYearRating: 5.0,
		LengthOfService:    8,
		KPIsMet80Percent:   1,
		AwardsWon:          0,
		AvgTrainingScore:   49,
	}
}

func loadedModels(t *testing.T, artifact string) *ModelArtifactService {
	t.Helper()
	svc := NewModelArtifactService(newSource([]byte(artifact), nil), nil, nil)
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return svc
}

func TestPredictionService_Predict(t *testing.T) {
	repo := new(testutil.MockPredictionRepo)
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Prediction")).Return(nil)

	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, repo, nil, 0)

	pred, err := svc.Predict(context.Background(), "req-1", sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, 0, pred.Result.Prediction)
	assert.InDelta(t, testutil.SampleRecordProbability, pred.Result.Probability, 1e-9)
	assert.Equal(t, "req-1", pred.RequestID)
	assert.Equal(t, "promotion_model", pred.ModelName)
	assert.Empty(t, pred.Substitutions)
	assert.Equal(t, 1.0, pred.Features["KPIs_met >80%"])
	assert.NotEqual(t, uuid.Nil, pred.ID)
	repo.AssertExpectations(t)
}

func TestPredictionService_PredictUnknownCategoryFallsBack(t *testing.T) {
	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, nil, nil, 0)

	rec := sampleRecord()
	rec.Region = "region_99"

	pred, err := svc.Predict(context.Background(), "req-1", rec)
	require.NoError(t, err)

	assert.InDelta(t, testutil.FallbackRegionProbability, pred.Result.Probability, 1e-9)
	require.Len(t, pred.Substitutions, 1)
	assert.Equal(t, domain.CategorySubstitution{Column: "region", Original: "region_99", Fallback: "region_1"}, pred.Substitutions[0])
	assert.Equal(t, "region_1", pred.Features["region"])
}

func TestPredictionService_PredictModelNotLoaded(t *testing.T) {
	models := NewModelArtifactService(newSource(nil, domain.ErrArtifactNotFound), nil, nil)
	svc := NewPredictionService(models, nil, nil, nil, 0)

	_, err := svc.Predict(context.Background(), "req-1", sampleRecord())
	assert.ErrorIs(t, err, domain.ErrModelNotLoaded)
}

func TestPredictionService_PredictInferenceFailure(t *testing.T) {
	// "grade" is never sent by the API and the encoder rejects unknown values
	artifact := `{"name": "strict", "version": "1",
	  "steps": [
	    {"name": "prepocess", "type": "column_transformer", "transformers": [
	      {"name": "cat", "columns": ["grade"], "steps": [
	        {"name": "onehot", "type": "one_hot_encoder", "handle_unknown": "error", "categories": [["A", "B"]]}]}]},
	    {"name": "clf", "type": "logistic_regression", "classes": [0, 1], "coef": [1, -1], "intercept": 0}]}`

	svc := NewPredictionService(loadedModels(t, artifact), nil, nil, nil, 0)

	_, err := svc.Predict(context.Background(), "req-1", sampleRecord())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPredictionFailed)

	var pe *domain.PredictionError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Cause.Error(), "value not seen during training")
}

func TestPredictionService_PredictUsesCache(t *testing.T) {
	cached := domain.PredictionResult{Prediction: 1, Probability: 0.99}

	cache := new(testutil.MockPredictionCache)
	cache.On("Purge").Return()
	cache.On("Get", mock.AnythingOfType("string")).Return(domain.PredictionResult{}, false).Once()
	cache.On("Add", mock.AnythingOfType("string"), mock.AnythingOfType("domain.PredictionResult")).Return().Once()
	cache.On("Get", mock.AnythingOfType("string")).Return(cached, true).Once()

	models := NewModelArtifactService(newSource([]byte(testutil.SampleArtifact), nil), cache, nil)
	_, err := models.Load(context.Background())
	require.NoError(t, err)

	svc := NewPredictionService(models, cache, nil, nil, 0)

	first, err := svc.Predict(context.Background(), "req-1", sampleRecord())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := svc.Predict(context.Background(), "req-2", sampleRecord())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, cached, second.Result)

	cache.AssertExpectations(t)
}

func TestPredictionService_CacheKeyStable(t *testing.T) {
	a, err := cacheKey("sum", sampleRecord().FeatureRow())
	require.NoError(t, err)
	b, err := cacheKey("sum", sampleRecord().FeatureRow())
	require.NoError(t, err)
	c, err := cacheKey("other", sampleRecord().FeatureRow())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPredictionService_PredictStoreFailureIgnored(t *testing.T) {
	repo := new(testutil.MockPredictionRepo)
	repo.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)

	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, repo, nil, 0)

	pred, err := svc.Predict(context.Background(), "req-1", sampleRecord())
	require.NoError(t, err)
	assert.NotNil(t, pred)
}

func TestPredictionService_PredictBatch(t *testing.T) {
	repo := new(testutil.MockPredictionRepo)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil).Times(2)

	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, repo, nil, 5)

	strong := sampleRecord()
	strong.AvgTrainingScore = 95
	strong.AwardsWon = 1

	preds, err := svc.PredictBatch(context.Background(), "req-1", []domain.EmployeeRecord{sampleRecord(), strong})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, 0, preds[0].Result.Prediction)
	assert.Equal(t, 1, preds[1].Result.Prediction)
	repo.AssertExpectations(t)
}

func TestPredictionService_PredictBatchLimits(t *testing.T) {
	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, nil, nil, 2)

	_, err := svc.PredictBatch(context.Background(), "req-1", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	recs := []domain.EmployeeRecord{sampleRecord(), sampleRecord(), sampleRecord()}
	_, err = svc.PredictBatch(context.Background(), "req-1", recs)
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
}

func TestPredictionService_History(t *testing.T) {
	repo := new(testutil.MockPredictionRepo)
	items := []*domain.Prediction{{ID: uuid.New()}}
	repo.On("List", mock.Anything, ports.PredictionListFilter{Limit: 100, Offset: 0}).Return(items, 1, nil)

	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, repo, nil, 0)

	result, total, err := svc.History(context.Background(), ports.PredictionListFilter{Limit: 500, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, result, 1)
	repo.AssertExpectations(t)
}

func TestPredictionService_HistoryStoreDisabled(t *testing.T) {
	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, nil, nil, 0)

	_, _, err := svc.History(context.Background(), ports.PredictionListFilter{})
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrStoreDisabled)
}

func TestPredictionService_Get(t *testing.T) {
	repo := new(testutil.MockPredictionRepo)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrPredictionNotFound)

	svc := NewPredictionService(loadedModels(t, testutil.SampleArtifact), nil, repo, nil, 0)

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrPredictionNotFound)
}

func TestPredictionService_CachedAnswersAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder := promadapter.NewCollector(reg)
	predictionCache, err := cache.NewPredictionCache(16)
	require.NoError(t, err)

	models := NewModelArtifactService(newSource([]byte(testutil.SampleArtifact), nil), predictionCache, recorder)
	_, err = models.Load(context.Background())
	require.NoError(t, err)

	svc := NewPredictionService(models, predictionCache, nil, recorder, 0)
	for i := 0; i < 3; i++ {
		_, err := svc.Predict(context.Background(), "req", sampleRecord())
		require.NoError(t, err)
	}

	expected := `
# HELP promotion_predictions_total Total number of predictions served
# TYPE promotion_predictions_total counter
promotion_predictions_total{label="0",model="promotion_model"} 3
`
	assert.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(expected), "promotion_predictions_total"))
	assert.Equal(t, 1, predictionCache.Len())
}
