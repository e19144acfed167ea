package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiagnosisEventSurvivesJSON(t *testing.T) {
	in := DiagnosisEvent{
		PatientID:     42,
		Location:      "Lahore",
		Disease:       "Dengue",
		Severity:      "Critical",
		SeverityLevel: 1,
		Confidence:    0.93,
		DiagnosedAt:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(Event{Type: EventPatientDiagnosed, Data: in.ToMap()})
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	require.Equal(t, in, DiagnosisEventFromMap(ev.Data))
}
