package dto

import (
	"time"

	"github.com/google/uuid"

	"promotion-prediction-service/internal/core/domain"
)

// EmployeeRequest is the /predict body. Pointers let a zero value pass while a missing field fails binding.
type EmployeeRequest struct {
	Department         *string  `json:"department" binding:"required"`
	Region             *string  `json:"region" binding:"required"`
	Education          *string  `json:"education" binding:"required"`
	Gender             *string  `json:"gender" binding:"required"`
	RecruitmentChannel *string  `json:"recruitment_channel" binding:"required"`
	NoOfTrainings      *int     `json:"no_of_trainings" binding:"required"`
	Age                *int     `json:"age" binding:"required"`
	PreviousYearRating *float64 `json:"previous_year_rating" binding:"required"`
	LengthOfService    *int     `json:"length_of_service" binding:"required"`
	KPIsMet80Percent   *int     `json:"KPIs_met_80_percent" binding:"required"`
	AwardsWon          *int     `json:"awards_won" binding:"required"`
	AvgTrainingScore   *int     `json:"avg_training_score" binding:"required"`
}

func (r EmployeeRequest) ToDomain() domain.EmployeeRecord {
	return domain.EmployeeRecord{
		Department:         *r.Department,
		Region:             *r.Region,
		Education:          *r.Education,
		Gender:             *r.Gender,
		RecruitmentChannel: *r.RecruitmentChannel,
		NoOfTrainings:      *r.NoOfTrainings,
		Age:                *r.Age,
		PreviousYearRating: *r.PreviousYearRating,
		LengthOfService:    *r.LengthOfService,
		KPIsMet80Percent:   *r.KPIsMet80Percent,
		AwardsWon:          *r.AwardsWon,
		AvgTrainingScore:   *r.AvgTrainingScore,
	}
}

type BatchPredictRequest struct {
	Records []EmployeeRequest `json:"records" binding:"dive"`
}

func (r BatchPredictRequest) ToDomain() []domain.EmployeeRecord {
	recs := make([]domain.EmployeeRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		recs = append(recs, rec.ToDomain())
	}
	return recs
}

type PredictionResponse struct {
	Prediction  int     `json:"promotion_prediction"`
	Probability float64 `json:"promotion_probability"`
}

func ToPredictionResponse(p *domain.Prediction) PredictionResponse {
	return PredictionResponse{
		Prediction:  p.Result.Prediction,
		Probability: p.Result.Probability,
	}
}

type BatchPredictResponse struct {
	Model       string               `json:"model"`
	Count       int                  `json:"count"`
	Predictions []PredictionResponse `json:"predictions"`
}

func ToBatchPredictResponse(preds []*domain.Prediction) BatchPredictResponse {
	items := make([]PredictionResponse, 0, len(preds))
	for _, p := range preds {
		items = append(items, ToPredictionResponse(p))
	}
	resp := BatchPredictResponse{Count: len(items), Predictions: items}
	if len(preds) > 0 {
		resp.Model = preds[0].ModelName
	}
	return resp
}

// PredictionRecordResponse is one entry of the prediction history.
type PredictionRecordResponse struct {
	ID            uuid.UUID                     `json:"id"`
	CreatedAt     string                        `json:"created_at"`
	RequestID     string                        `json:"request_id"`
	ModelName     string                        `json:"model_name"`
	ModelVersion  string                        `json:"model_version"`
	ModelChecksum string                        `json:"model_checksum"`
	Features      map[string]any                `json:"features"`
	Substitutions []domain.CategorySubstitution `json:"substitutions"`
	Prediction    int                           `json:"promotion_prediction"`
	Probability   float64                       `json:"promotion_probability"`
	Cached        bool                          `json:"cached"`
	LatencyMS     float64                       `json:"latency_ms"`
}

func ToPredictionRecordResponse(p *domain.Prediction) PredictionRecordResponse {
	subs := p.Substitutions
	if subs == nil {
		subs = []domain.CategorySubstitution{}
	}
	return PredictionRecordResponse{
		ID:            p.ID,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		RequestID:     p.RequestID,
		ModelName:     p.ModelName,
		ModelVersion:  p.ModelVersion,
		ModelChecksum: p.ModelChecksum,
		Features:      p.Features,
		Substitutions: subs,
		Prediction:    p.Result.Prediction,
		Probability:   p.Result.Probability,
		Cached:        p.Cached,
		LatencyMS:     p.LatencyMS,
	}
}

type ListPredictionsResponse struct {
	Items      []PredictionRecordResponse `json:"items"`
	Total      int                        `json:"total"`
	PageSize   int                        `json:"page_size"`
	NextOffset int                        `json:"next_offset"`
}
