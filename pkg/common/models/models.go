package models

import "time"

const (
	EventPatientDiagnosed = "patient.diagnosed"
	SourceTriageService   = "triage-service"
)

// Event is the envelope written to and read from Kafka topics.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// DiagnosisEvent is the payload of a patient.diagnosed event.
type DiagnosisEvent struct {
	PatientID     uint      `json:"patient_id"`
	Location      string    `json:"location"`
	Disease       string    `json:"disease"`
	Severity      string    `json:"severity"`
	SeverityLevel int       `json:"severity_level"`
	Confidence    float64   `json:"confidence"`
	DiagnosedAt   time.Time `json:"diagnosed_at"`
}

// ToMap flattens the payload for Event.Data.
func (e DiagnosisEvent) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"patient_id":     e.PatientID,
		"location":       e.Location,
		"disease":        e.Disease,
		"severity":       e.Severity,
		"severity_level": e.SeverityLevel,
		"confidence":     e.Confidence,
		"diagnosed_at":   e.DiagnosedAt.UTC().Format(time.RFC3339),
	}
}

// DiagnosisEventFromMap reverses ToMap after a JSON round trip, where numbers
// arrive as float64.
func DiagnosisEventFromMap(data map[string]interface{}) DiagnosisEvent {
	ev := DiagnosisEvent{
		PatientID:     uint(number(data["patient_id"])),
		SeverityLevel: int(number(data["severity_level"])),
		Confidence:    number(data["confidence"]),
	}
	ev.Location, _ = data["location"].(string)
	ev.Disease, _ = data["disease"].(string)
	ev.Severity, _ = data["severity"].(string)
	if raw, ok := data["diagnosed_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			ev.DiagnosedAt = ts
		}
	}
	return ev
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	}
	return 0
}
