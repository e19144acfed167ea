package intake

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tib-ai/triage/pkg/common/logger"
	"github.com/tib-ai/triage/pkg/common/models"
	"github.com/tib-ai/triage/pkg/diagnosis"
	"github.com/tib-ai/triage/pkg/observability/metrics"
	"github.com/tib-ai/triage/pkg/records"
)

const DateLayout = "2006-01-02 15:04:05"

type Store interface {
	CreateSubmission(ctx context.Context, patient *records.Patient, diagnosis *records.Diagnosis) error
	ListPatients(ctx context.Context) ([]records.PatientView, error)
	GetPatient(ctx context.Context, id uint) (*records.PatientView, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source, key string, data map[string]interface{}) error
}

// Invalidator is told when the record set changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

type Result struct {
	PatientID uint
	Diagnosis diagnosis.Diagnosis
	CreatedAt time.Time
}

type Service struct {
	validator   *Validator
	synthesizer *diagnosis.Synthesizer
	store       Store
	images      ImageStore
	publisher   Publisher
	reports     Invalidator
}

// NewService wires the intake flow. images, publisher and reports may be nil.
func NewService(validator *Validator, synthesizer *diagnosis.Synthesizer, store Store, images ImageStore, publisher Publisher, reports Invalidator) *Service {
	return &Service{
		validator:   validator,
		synthesizer: synthesizer,
		store:       store,
		images:      images,
		publisher:   publisher,
		reports:     reports,
	}
}

// Submit validates the form, stores the optional image, assigns a diagnosis
// and persists patient and diagnosis atomically. Event publication and cache
// invalidation are best effort once the records are committed.
func (s *Service) Submit(ctx context.Context, form Form, image *Upload) (*Result, error) {
	patient, err := s.validator.Patient(form)
	if err == nil && image != nil {
		err = s.validator.ImageName(image.Filename)
	}
	if err != nil {
		metrics.ObserveRejected()
		return nil, err
	}

	if image != nil && s.images == nil {
		logger.Log.WithField("filename", image.Filename).Warn("image store not configured, discarding upload")
	}
	if image != nil && s.images != nil {
		ref, err := s.images.Save(ctx, image.Filename, image.Content, image.ContentType)
		if err != nil {
			metrics.ObserveFailed()
			return nil, fmt.Errorf("storing image: %w", err)
		}
		patient.ImagePath = &ref
	}

	diag := s.synthesizer.Synthesize(patient.Symptoms)
	record := &records.Diagnosis{
		SeverityID:      uint(diag.SeverityLevel),
		DiseaseID:       diag.DiseaseID,
		ConfidenceScore: diag.Confidence,
		Comment:         diag.Comment,
	}

	if err := s.store.CreateSubmission(ctx, patient, record); err != nil {
		metrics.ObserveFailed()
		if patient.ImagePath != nil {
			if rmErr := s.images.Remove(ctx, *patient.ImagePath); rmErr != nil {
				logger.Log.WithError(rmErr).WithField("image", *patient.ImagePath).Warn("failed to remove orphaned image")
			}
		}
		return nil, fmt.Errorf("persisting submission: %w", err)
	}
	metrics.ObserveSubmission(diag.SeverityLevel)

	logger.Log.WithFields(map[string]interface{}{
		"patient_id": patient.ID,
		"disease":    diag.Disease,
		"severity":   diag.Severity,
		"confidence": diag.Confidence,
	}).Info("patient diagnosed")

	if s.reports != nil {
		if err := s.reports.Invalidate(ctx); err != nil {
			logger.Log.WithError(err).Warn("failed to invalidate report cache")
		}
	}
	s.publish(ctx, patient, diag)

	return &Result{PatientID: patient.ID, Diagnosis: diag, CreatedAt: patient.CreatedAt}, nil
}

func (s *Service) publish(ctx context.Context, patient *records.Patient, diag diagnosis.Diagnosis) {
	if s.publisher == nil {
		return
	}
	event := models.DiagnosisEvent{
		PatientID:     patient.ID,
		Location:      patient.Location,
		Disease:       diag.Disease,
		Severity:      diag.Severity,
		SeverityLevel: diag.SeverityLevel,
		Confidence:    diag.Confidence,
		DiagnosedAt:   patient.CreatedAt,
	}
	key := strconv.FormatUint(uint64(patient.ID), 10)
	err := s.publisher.PublishEvent(ctx, models.EventPatientDiagnosed, models.SourceTriageService, key, event.ToMap())
	metrics.ObserveEvent(err == nil)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_id", patient.ID).Error("failed to publish diagnosis event")
	}
}

func (s *Service) Patients(ctx context.Context) ([]records.PatientView, error) {
	return s.store.ListPatients(ctx)
}

func (s *Service) Patient(ctx context.Context, id uint) (*records.PatientView, error) {
	return s.store.GetPatient(ctx, id)
}
