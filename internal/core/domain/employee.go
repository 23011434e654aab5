package domain

import "promotion-prediction-service/internal/pipeline"

// Training column names that differ from the API field names.
const (
	ColumnKPIsMet   = "KPIs_met >80%"
	ColumnAwardsWon = "awards_won?"
)

// EmployeeRecord is one employee feature record as accepted by the API.
type EmployeeRecord struct {
	Department         string  `json:"department"`
	Region             string  `json:"region"`
	Education          string  `json:"education"`
	Gender             string  `json:"gender"`
	RecruitmentChannel string  `json:"recruitment_channel"`
	NoOfTrainings      int     `json:"no_of_trainings"`
	Age                int     `json:"age"`
	PreviousYearRating float64 `json:"previous_year_rating"`
	LengthOfService    int     `json:"length_of_service"`
	KPIsMet80Percent   int     `json:"KPIs_met_80_percent"`
	AwardsWon          int     `json:"awards_won"`
	AvgTrainingScore   int     `json:"avg_training_score"`
}

// FeatureRow converts the record to the column layout the model was trained on.
// KPIs_met_80_percent and awards_won are renamed, every other field keeps its API name.
func (r EmployeeRecord) FeatureRow() pipeline.Row {
	return pipeline.Row{
		"department":           r.Department,
		"region":               r.Region,
		"education":            r.Education,
		"gender":               r.Gender,
		"recruitment_channel":  r.RecruitmentChannel,
		"no_of_trainings":      float64(r.NoOfTrainings),
		"age":                  float64(r.Age),
		"previous_year_rating": r.PreviousYearRating,
		"length_of_service":    float64(r.LengthOfService),
		ColumnKPIsMet:          float64(r.KPIsMet80Percent),
		ColumnAwardsWon:        float64(r.AwardsWon),
		"avg_training_score":   float64(r.AvgTrainingScore),
	}
}
