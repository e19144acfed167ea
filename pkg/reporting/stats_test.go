package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tib-ai/triage/pkg/records"
)

type fixedInts struct{ value int }

func (f fixedInts) IntN(n int) int { return f.value % n }

func emptySnapshot() *records.StatsSnapshot {
	return &records.StatsSnapshot{
		TotalDiseases: 5,
		DiseaseCounts: []records.DiseaseCount{
			{ID: 1, Name: "Dengue"},
			{ID: 2, Name: "Measles"},
			{ID: 3, Name: "Skin infection"},
			{ID: 4, Name: "Diarrhea"},
			{ID: 5, Name: "Tuberculosis"},
		},
	}
}

func TestBuildStatsEmptyWithPlaceholders(t *testing.T) {
	stats := BuildStats(emptySnapshot(), StatsOptions{Placeholders: true, Rand: fixedInts{value: 10}})

	assert.Equal(t, int64(87), stats.TotalPatients)
	assert.Equal(t, "89%", stats.Accuracy)
	assert.Equal(t, int64(5), stats.TotalDiseasesDetected)
	require.Len(t, stats.Diseases, 5)
	for _, d := range stats.Diseases {
		assert.Equal(t, int64(15), d.Count)
	}
	assert.Equal(t, "#722ED1", stats.Diseases[4].Color)
	assert.Equal(t, "Distribution data unavailable", stats.PatientsTrend)
	assert.Equal(t, "Disease trend data unavailable", stats.DiseasesTrend)
	assert.Equal(t, "Accuracy trend data unavailable", stats.AccuracyTrend)
}

func TestBuildStatsPlaceholderCountsStayInRange(t *testing.T) {
	for _, v := range []int{0, 45, 1000} {
		stats := BuildStats(emptySnapshot(), StatsOptions{Placeholders: true, Rand: fixedInts{value: v}})
		for _, d := range stats.Diseases {
			assert.GreaterOrEqual(t, d.Count, int64(5))
			assert.LessOrEqual(t, d.Count, int64(50))
		}
	}
}

func TestBuildStatsEmptyWithoutPlaceholders(t *testing.T) {
	stats := BuildStats(emptySnapshot(), StatsOptions{})

	assert.Zero(t, stats.TotalPatients)
	assert.Equal(t, "N/A", stats.Accuracy)
	for _, d := range stats.Diseases {
		assert.Zero(t, d.Count)
	}
	assert.Equal(t, []int64{2, 2, 2, 2, 2}, stats.HistogramData.Datasets[0].Data)
}

func TestBuildStatsWithData(t *testing.T) {
	snap := &records.StatsSnapshot{
		TotalPatients:     12,
		TotalDiseases:     5,
		AverageConfidence: 0.9475,
		HasDiagnoses:      true,
		DiseaseCounts: []records.DiseaseCount{
			{ID: 1, Name: "Dengue", Count: 7},
			{ID: 2, Name: "Measles", Count: 5},
			{ID: 3, Name: "Skin infection", Count: 0},
			{ID: 4, Name: "Diarrhea", Count: 7},
			{ID: 5, Name: "Tuberculosis", Count: 3},
		},
		PatientsByLocation: []records.LocationCount{{Location: "Lahore", Count: 8}, {Location: "Karachi", Count: 4}},
		ConfidenceBySeverity: []records.SeverityConfidence{
			{Level: 1, Name: "Critical", Average: 0.96},
			{Level: 2, Name: "Urgent", Average: 0.96},
			{Level: 3, Name: "Medium", Average: 0.91},
		},
	}

	stats := BuildStats(snap, StatsOptions{Placeholders: true, Rand: fixedInts{value: 0}})

	assert.Equal(t, int64(12), stats.TotalPatients)
	assert.Equal(t, "94%", stats.Accuracy)
	assert.Equal(t, int64(5), stats.Diseases[2].Count)
	assert.Equal(t, "8 in Lahore", stats.PatientsTrend)
	assert.Equal(t, "Most common: Dengue (7 cases)", stats.DiseasesTrend)
	assert.Equal(t, "Highest for Critical: 96%", stats.AccuracyTrend)

	h := stats.HistogramData
	assert.Equal(t, []string{"Dengue", "Measles", "Skin infection", "Diarrhea", "Tuberculosis"}, h.Labels)
	require.Len(t, h.Datasets, 3)
	assert.Equal(t, Dataset{Label: "AI Detected", Data: []int64{9, 7, 7, 9, 5}, BackgroundColor: "#1890FF"}, h.Datasets[0])
	assert.Equal(t, Dataset{Label: "Non-AI Detected", Data: []int64{5, 4, 4, 5, 2}, BackgroundColor: "#52C41A"}, h.Datasets[1])
	assert.Equal(t, Dataset{Label: "Actual", Data: []int64{7, 5, 5, 7, 3}, BackgroundColor: "#FAAD14"}, h.Datasets[2])
}
