package reporting

import (
	"fmt"

	"github.com/tib-ai/triage/pkg/records"
)

const (
	placeholderPatients = 87
	placeholderAccuracy = "89%"
	placeholderMinCount = 5
	placeholderMaxCount = 50

	unavailablePatients = "Distribution data unavailable"
	unavailableDiseases = "Disease trend data unavailable"
	unavailableAccuracy = "Accuracy trend data unavailable"
)

// IntSource draws a uniform integer in [0,n).
type IntSource interface {
	IntN(n int) int
}

type StatsOptions struct {
	// Placeholders substitutes demo values when the store has no data:
	// 87 patients, "89%" accuracy and a random 5..50 count per disease
	// without diagnoses. When false, zeros and "N/A" are reported.
	Placeholders bool
	Rand         IntSource
}

type DiseaseStat struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Color string `json:"color"`
}

type Dataset struct {
	Label           string  `json:"label"`
	Data            []int64 `json:"data"`
	BackgroundColor string  `json:"backgroundColor"`
}

type Histogram struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Stats struct {
	TotalPatients         int64         `json:"totalPatients"`
	TotalDiseasesDetected int64         `json:"totalDiseasesDetected"`
	Accuracy              string        `json:"accuracy"`
	Diseases              []DiseaseStat `json:"diseases"`
	HistogramData         Histogram     `json:"histogramData"`
	PatientsTrend         string        `json:"patientsTrend"`
	DiseasesTrend         string        `json:"diseasesTrend"`
	AccuracyTrend         string        `json:"accuracyTrend"`
}

func BuildStats(snap *records.StatsSnapshot, opts StatsOptions) Stats {
	stats := Stats{
		TotalPatients:         snap.TotalPatients,
		TotalDiseasesDetected: snap.TotalDiseases,
		Accuracy:              "N/A",
		Diseases:              make([]DiseaseStat, 0, len(snap.DiseaseCounts)),
		PatientsTrend:         patientsTrend(snap.PatientsByLocation),
		DiseasesTrend:         diseasesTrend(snap.DiseaseCounts),
		AccuracyTrend:         accuracyTrend(snap.ConfidenceBySeverity),
	}

	if snap.HasDiagnoses {
		stats.Accuracy = formatPercent(snap.AverageConfidence)
	} else if opts.Placeholders {
		stats.Accuracy = placeholderAccuracy
	}
	if stats.TotalPatients == 0 && opts.Placeholders {
		stats.TotalPatients = placeholderPatients
	}

	for i, dc := range snap.DiseaseCounts {
		count := dc.Count
		if count == 0 && opts.Placeholders && opts.Rand != nil {
			count = int64(placeholderMinCount + opts.Rand.IntN(placeholderMaxCount-placeholderMinCount+1))
		}
		stats.Diseases = append(stats.Diseases, DiseaseStat{
			ID:    dc.ID,
			Name:  dc.Name,
			Count: count,
			Color: diseasePalette[i%len(diseasePalette)],
		})
	}
	stats.HistogramData = histogram(stats.Diseases)
	return stats
}

func histogram(diseases []DiseaseStat) Histogram {
	h := Histogram{Labels: make([]string, 0, len(diseases))}
	ai := make([]int64, 0, len(diseases))
	nonAI := make([]int64, 0, len(diseases))
	actual := make([]int64, 0, len(diseases))
	for _, d := range diseases {
		h.Labels = append(h.Labels, d.Name)
		ai = append(ai, d.Count+2)
		nonAI = append(nonAI, d.Count*4/5)
		actual = append(actual, d.Count)
	}
	h.Datasets = []Dataset{
		{Label: "AI Detected", Data: ai, BackgroundColor: "#1890FF"},
		{Label: "Non-AI Detected", Data: nonAI, BackgroundColor: "#52C41A"},
		{Label: "Actual", Data: actual, BackgroundColor: "#FAAD14"},
	}
	return h
}

// patientsTrend expects rows sorted by count descending.
func patientsTrend(rows []records.LocationCount) string {
	for _, row := range rows {
		if row.Location != "" && row.Count > 0 {
			return fmt.Sprintf("%d in %s", row.Count, row.Location)
		}
	}
	return unavailablePatients
}

// diseasesTrend picks the disease with the most diagnoses; ties go to the
// first in catalog order.
func diseasesTrend(rows []records.DiseaseCount) string {
	var top *records.DiseaseCount
	for i := range rows {
		if rows[i].Count > 0 && (top == nil || rows[i].Count > top.Count) {
			top = &rows[i]
		}
	}
	if top == nil {
		return unavailableDiseases
	}
	return fmt.Sprintf("Most common: %s (%d cases)", top.Name, top.Count)
}

// accuracyTrend picks the severity with the highest mean confidence; ties go
// to the more severe level.
func accuracyTrend(rows []records.SeverityConfidence) string {
	var top *records.SeverityConfidence
	for i := range rows {
		if top == nil || rows[i].Average > top.Average {
			top = &rows[i]
		}
	}
	if top == nil {
		return unavailableAccuracy
	}
	return fmt.Sprintf("Highest for %s: %d%%", top.Name, truncPercent(top.Average))
}
