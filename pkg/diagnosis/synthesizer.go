package diagnosis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/tib-ai/triage/pkg/catalog"
)

const (
	minConfidence = 0.90
	maxConfidence = 0.99
)

// RandomSource supplies uniform draws. IntN returns a value in [0,n) and
// Float64 a value in [0,1).
type RandomSource interface {
	IntN(n int) int
	Float64() float64
}

type globalSource struct{}

func (globalSource) IntN(n int) int   { return rand.IntN(n) }
func (globalSource) Float64() float64 { return rand.Float64() }

// DefaultSource is backed by the runtime's shared generator and is safe for
// concurrent use.
func DefaultSource() RandomSource { return globalSource{} }

// Diagnosis is the outcome assigned to one submission.
type Diagnosis struct {
	DiseaseID         uint     `json:"disease_id"`
	Disease           string   `json:"disease"`
	SeverityLevel     int      `json:"severity_level"`
	Severity          string   `json:"severity"`
	Confidence        float64  `json:"confidence"`
	MatchedSymptoms   []string `json:"matched_symptoms"`
	Comment           string   `json:"comment"`
	RecommendedAction string   `json:"recommendedAction"`
}

// Synthesizer assigns diagnoses from a catalog. It holds no mutable state
// beyond its random source.
type Synthesizer struct {
	catalog *catalog.Catalog
	rnd     RandomSource
}

// NewSynthesizer uses DefaultSource when rnd is nil.
func NewSynthesizer(cat *catalog.Catalog, rnd RandomSource) *Synthesizer {
	if rnd == nil {
		rnd = DefaultSource()
	}
	return &Synthesizer{catalog: cat, rnd: rnd}
}

// Synthesize draws a disease, then a severity, then a confidence, and
// renders the narrative for the given free-text symptoms. It never fails.
func (s *Synthesizer) Synthesize(symptoms string) Diagnosis {
	disease := s.catalog.Diseases[s.rnd.IntN(len(s.catalog.Diseases))]

	var level int
	if disease.HighRisk {
		level = catalog.MinLevel + s.rnd.IntN(3)
	} else {
		level = catalog.MinLevel + 1 + s.rnd.IntN(4)
	}
	severity := s.catalog.SeverityByLevel(level)

	confidence := RoundConfidence(minConfidence + s.rnd.Float64()*(maxConfidence-minConfidence))
	matched := MatchSymptoms(disease.Symptoms, symptoms)

	return Diagnosis{
		DiseaseID:         disease.ID,
		Disease:           disease.Name,
		SeverityLevel:     severity.Level,
		Severity:          severity.Name,
		Confidence:        confidence,
		MatchedSymptoms:   matched,
		Comment:           Comment(disease, severity.Name, confidence, matched),
		RecommendedAction: RecommendedAction(severity.Name),
	}
}

// RoundConfidence rounds to two decimals and keeps the result inside
// [0.90, 0.99].
func RoundConfidence(c float64) float64 {
	c = math.Round(c*100) / 100
	return math.Min(maxConfidence, math.Max(minConfidence, c))
}

// MatchSymptoms returns the keywords contained in text, compared case
// insensitively, in keyword order.
func MatchSymptoms(keywords []string, text string) []string {
	lowered := strings.ToLower(text)
	matched := []string{}
	for _, kw := range keywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Comment renders the clinician-facing narrative. The symptoms clause is
// omitted when nothing matched.
func Comment(disease catalog.Disease, severity string, confidence float64, matched []string) string {
	if len(matched) == 0 {
		return fmt.Sprintf("AI detected %s with %.1f%% confidence. Severity: %s. %s",
			disease.Name, confidence*100, severity, disease.Precautions)
	}
	return fmt.Sprintf("AI detected %s with %.1f%% confidence based on symptoms: %s. Severity: %s. %s",
		disease.Name, confidence*100, strings.Join(matched, ", "), severity, disease.Precautions)
}

var recommendedActions = map[string]string{
	"Critical": "Seek immediate emergency medical attention",
	"Urgent":   "Seek medical care within 24 hours",
	"Medium":   "Schedule doctor appointment within 3-5 days",
	"Low":      "Home care with over-the-counter medications, seek medical attention if symptoms worsen",
	"Minimal":  "Home care and rest, monitor symptoms",
}

// RecommendedAction maps a severity name to advice. Unknown names get the
// Minimal advice.
func RecommendedAction(severity string) string {
	if action, ok := recommendedActions[severity]; ok {
		return action
	}
	return recommendedActions["Minimal"]
}
