package reporting

import (
	"fmt"
	"math"

	"github.com/tib-ai/triage/pkg/catalog"
	"github.com/tib-ai/triage/pkg/records"
)

var (
	severityPalette = []string{"#1890FF", "#52C41A", "#FFEC3D", "#FAAD14", "#FF4D4F"}
	regionPalette   = []string{"#FF4D4F", "#1890FF", "#52C41A"}
	diseasePalette  = []string{"#1890FF", "#52C41A", "#FAAD14", "#FF4D4F", "#722ED1"}
)

const (
	ZoneRed   = "red"
	ZoneBlue  = "blue"
	ZoneGreen = "green"

	colorRed   = "#FF4D4F"
	colorBlue  = "#1890FF"
	colorGreen = "#52C41A"
)

type SeverityBucket struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
	Color string `json:"color"`
}

// SeverityBreakdown returns one bucket per catalog severity, most severe
// first, with zero counts for levels that have no diagnoses.
func SeverityBreakdown(severities []catalog.Severity, counts []records.LevelCount) []SeverityBucket {
	byLevel := make(map[int]int64, len(counts))
	for _, c := range counts {
		byLevel[c.Level] += c.Count
	}

	out := make([]SeverityBucket, 0, len(severities))
	for i, sev := range severities {
		out = append(out, SeverityBucket{
			Level: sev.Name,
			Count: byLevel[sev.Level],
			Color: severityPalette[i%len(severityPalette)],
		})
	}
	return out
}

type RegionSummary struct {
	Severity string `json:"severity"`
	Color    string `json:"color"`
	Count    int64  `json:"count"`
}

// RegionOverview reports the most severe level seen in each location.
// Critical is red, Urgent blue, Medium and below green.
func RegionOverview(cat *catalog.Catalog, rows []records.LocationSeverity) map[string]RegionSummary {
	out := make(map[string]RegionSummary, len(rows))
	for _, row := range rows {
		if row.Location == "" {
			continue
		}
		idx := row.Level - 1
		if idx < 0 {
			idx = 0
		}
		if idx > len(regionPalette)-1 {
			idx = len(regionPalette) - 1
		}
		out[row.Location] = RegionSummary{
			Severity: cat.SeverityByLevel(row.Level).Name,
			Color:    regionPalette[idx],
			Count:    row.Count,
		}
	}
	return out
}

// ClassifyZone maps a location's share of a disease's diagnoses to a zone.
// Lower bounds are inclusive.
func ClassifyZone(percentage float64) (zoneType, color string) {
	switch {
	case percentage >= 10:
		return ZoneRed, colorRed
	case percentage >= 4:
		return ZoneBlue, colorBlue
	default:
		return ZoneGreen, colorGreen
	}
}

type RegionZone struct {
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	ZoneType   string  `json:"zone_type"`
	Color      string  `json:"color"`
}

type DiseaseRegions struct {
	Regions       map[string]RegionZone `json:"regions"`
	TotalPatients int64                 `json:"total_patients"`
}

// RegionsForDisease classifies each location by its share of total.
func RegionsForDisease(total int64, rows []records.LocationCount) DiseaseRegions {
	out := DiseaseRegions{Regions: map[string]RegionZone{}}
	if total <= 0 {
		return out
	}
	out.TotalPatients = total
	for _, row := range rows {
		if row.Location == "" {
			continue
		}
		pct := float64(row.Count) / float64(total) * 100
		zone, color := ClassifyZone(pct)
		out.Regions[row.Location] = RegionZone{
			Count:      row.Count,
			Percentage: pct,
			ZoneType:   zone,
			Color:      color,
		}
	}
	return out
}

// DiseaseLocations builds {disease: {"total": n, location: count}}. Rows
// with an empty location count toward the total only.
func DiseaseLocations(rows []records.DiseaseLocationCount) map[string]map[string]int64 {
	out := make(map[string]map[string]int64)
	for _, row := range rows {
		entry, ok := out[row.Disease]
		if !ok {
			entry = map[string]int64{"total": 0}
			out[row.Disease] = entry
		}
		entry["total"] += row.Count
		if row.Location != "" {
			entry[row.Location] = row.Count
		}
	}
	return out
}

// truncPercent converts a ratio to a whole percentage, dropping the
// fraction. The epsilon absorbs representation error such as 0.29*100.
func truncPercent(ratio float64) int {
	return int(math.Floor(ratio*100 + 1e-9))
}

func formatPercent(ratio float64) string {
	return fmt.Sprintf("%d%%", truncPercent(ratio))
}
