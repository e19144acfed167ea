package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/common/models"
	"github.com/tib-ai/triage/pkg/observability/metrics"
	"gorm.io/datatypes"
)

type Service struct {
	repo     *Repository
	maxLevel int
}

// NewService records alerts for diagnoses at maxLevel or more severe.
func NewService(repo *Repository, maxLevel int) *Service {
	if maxLevel < 1 {
		maxLevel = 1
	}
	return &Service{repo: repo, maxLevel: maxLevel}
}

// HandleEvent is a kafka.EventHandler. Events of other types and diagnoses
// below the threshold are acknowledged without storing anything.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventPatientDiagnosed {
		return nil
	}
	diag := models.DiagnosisEventFromMap(event.Data)
	if diag.SeverityLevel < 1 || diag.SeverityLevel > s.maxLevel {
		return nil
	}

	alert := &Alert{
		ID:            uuid.New().String(),
		EventID:       event.ID,
		PatientID:     diag.PatientID,
		Disease:       diag.Disease,
		Severity:      diag.Severity,
		SeverityLevel: diag.SeverityLevel,
		Location:      diag.Location,
		Confidence:    diag.Confidence,
		Payload:       datatypes.JSONMap(event.Data),
		DiagnosedAt:   diag.DiagnosedAt,
	}
	if alert.EventID == "" {
		alert.EventID = alert.ID
	}

	created, err := s.repo.Create(ctx, alert)
	if err != nil {
		return fmt.Errorf("storing alert: %w", err)
	}
	if !created {
		logger.Log.WithField("event_id", event.ID).Debug("duplicate diagnosis event ignored")
		return nil
	}

	metrics.ObserveAlert()
	logger.Log.WithFields(map[string]interface{}{
		"patient_id": diag.PatientID,
		"disease":    diag.Disease,
		"severity":   diag.Severity,
		"location":   diag.Location,
	}).Warn("high severity diagnosis")
	return nil
}

type Overview struct {
	Summary map[string]int64 `json:"summary"`
	Items   []Alert          `json:"items"`
}

func (s *Service) Overview(ctx context.Context, limit int) (*Overview, error) {
	items, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByLevel(ctx)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]int64, len(counts))
	for _, c := range counts {
		summary[strings.ToLower(c.Severity)] += c.Count
	}
	if items == nil {
		items = []Alert{}
	}
	return &Overview{Summary: summary, Items: items}, nil
}
