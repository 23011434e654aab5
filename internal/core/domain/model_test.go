package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promotion-prediction-service/internal/core/domain"
	"promotion-prediction-service/internal/pipeline"
	"promotion-prediction-service/internal/testutil"
)

func TestEmployeeRecord_FeatureRowRenamesColumns(t *testing.T) {
	rec := domain.EmployeeRecord{
		Department:         "Technology",
		Region:             "region_2",
		KPIsMet80Percent:   1,
		AwardsWon:          1,
		PreviousYearRating: 4.5,
		AvgTrainingScore:   77,
	}

	row := rec.FeatureRow()

	assert.Len(t, row, 12)
	assert.Equal(t, 1.0, row["KPIs_met >80%"])
	assert.Equal(t, 1.0, row["awards_won?"])
	assert.NotContains(t, row, "KPIs_met_80_percent")
	assert.NotContains(t, row, "awards_won")
	assert.Equal(t, 4.5, row["previous_year_rating"])
	assert.Equal(t, 77.0, row["avg_training_score"])
	assert.Equal(t, "Technology", row["department"])
}

func TestModel_ApplyCategoryFallback(t *testing.T) {
	p, err := pipeline.Parse([]byte(testutil.SampleArtifact))
	require.NoError(t, err)
	m := domain.NewModel(p, "abc", "test")

	row := domain.EmployeeRecord{
		Department:         "Space Program",
		Region:             "region_7",
		Education:          "Master's & above",
		Gender:             "x",
		RecruitmentChannel: "sourcing",
	}.FeatureRow()

	subs := m.ApplyCategoryFallback(row)

	assert.Equal(t, []domain.CategorySubstitution{
		{Column: "department", Original: "Space Program", Fallback: "Analytics"},
		{Column: "gender", Original: "x", Fallback: "f"},
	}, subs)
	assert.Equal(t, "Analytics", row["department"])
	assert.Equal(t, "f", row["gender"])
	assert.Equal(t, "region_7", row["region"])
}

func TestModel_ApplyCategoryFallbackKnownValues(t *testing.T) {
	p, err := pipeline.Parse([]byte(testutil.SampleArtifact))
	require.NoError(t, err)
	m := domain.NewModel(p, "abc", "test")

	row := pipeline.Row{"region": "region_1", "age": 30.0}
	assert.Empty(t, m.ApplyCategoryFallback(row))
	assert.Equal(t, "region_1", row["region"])
}

func TestModel_Name(t *testing.T) {
	p, err := pipeline.Parse([]byte(testutil.SampleArtifact))
	require.NoError(t, err)

	m := domain.NewModel(p, "0123456789abcdef", "test")
	assert.Equal(t, "promotion_model", m.Name())
	assert.Equal(t, "test", m.Version())

	p.Name = ""
	assert.Equal(t, "0123456789ab", m.Name())
}
