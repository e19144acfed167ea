package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tib-ai/triage/pkg/catalog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Severity{}, &Disease{}, &Patient{}, &Diagnosis{})
}

// SeedCatalog inserts catalog rows that are missing. Severity ids equal
// their level so diagnoses can reference either.
func (r *Repository) SeedCatalog(ctx context.Context, cat *catalog.Catalog) error {
	severities := make([]Severity, 0, len(cat.Severities))
	for _, s := range cat.Severities {
		severities = append(severities, Severity{ID: uint(s.Level), Level: s.Level, Name: s.Name})
	}
	diseases := make([]Disease, 0, len(cat.Diseases))
	for _, d := range cat.Diseases {
		diseases = append(diseases, Disease{ID: d.ID, Name: d.Name})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&severities).Error; err != nil {
			return fmt.Errorf("seeding severities: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&diseases).Error; err != nil {
			return fmt.Errorf("seeding diseases: %w", err)
		}
		return nil
	})
}

// CreateSubmission stores a patient and its diagnosis together or not at all.
func (r *Repository) CreateSubmission(ctx context.Context, patient *Patient, diagnosis *Diagnosis) error {
	now := time.Now().UTC()
	patient.CreatedAt = now
	diagnosis.CreatedAt = now
	if patient.PregnancyStatus == "" {
		patient.PregnancyStatus = "N/A"
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(patient).Error; err != nil {
			return fmt.Errorf("inserting patient: %w", err)
		}
		diagnosis.PatientID = patient.ID
		if err := tx.Create(diagnosis).Error; err != nil {
			return fmt.Errorf("inserting diagnosis: %w", err)
		}
		return nil
	})
}

func (r *Repository) patientViews(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("patients AS p").
		Joins("JOIN diagnoses r ON r.patient_id = p.id").
		Joins("JOIN diseases d ON d.id = r.disease_id").
		Joins("JOIN severities s ON s.id = r.severity_id")
}

func (r *Repository) ListPatients(ctx context.Context) ([]PatientView, error) {
	var views []PatientView
	err := r.patientViews(ctx).
		Select("p.*, d.name AS disease, s.name AS severity, r.confidence_score").
		Order("p.created_at DESC, p.id DESC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []PatientView{}
	}
	return views, nil
}

func (r *Repository) GetPatient(ctx context.Context, id uint) (*PatientView, error) {
	var views []PatientView
	err := r.patientViews(ctx).
		Select("p.*, d.name AS disease, s.name AS severity, r.confidence_score, r.comment").
		Where("p.id = ?", id).
		Order("r.id").
		Limit(1).
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNotFound
	}
	return &views[0], nil
}

func (r *Repository) ListDiseases(ctx context.Context) ([]Disease, error) {
	var out []Disease
	err := r.db.WithContext(ctx).Order("id").Find(&out).Error
	return out, err
}

func (r *Repository) ListSeverities(ctx context.Context) ([]Severity, error) {
	var out []Severity
	err := r.db.WithContext(ctx).Order("level").Find(&out).Error
	return out, err
}

// CountBySeverity counts diagnoses per severity level, optionally for one
// disease. Levels without diagnoses are absent.
func (r *Repository) CountBySeverity(ctx context.Context, diseaseID *uint) ([]LevelCount, error) {
	q := r.db.WithContext(ctx).
		Table("diagnoses AS r").
		Select("s.level AS level, COUNT(r.id) AS count").
		Joins("JOIN severities s ON s.id = r.severity_id")
	if diseaseID != nil {
		q = q.Where("r.disease_id = ?", *diseaseID)
	}
	var rows []LevelCount
	err := q.Group("s.level").Order("s.level").Scan(&rows).Error
	return rows, err
}

// LocationSeverities returns, per non-empty location, the diagnosis count and
// the most severe level seen.
func (r *Repository) LocationSeverities(ctx context.Context) ([]LocationSeverity, error) {
	var rows []LocationSeverity
	err := r.db.WithContext(ctx).
		Table("diagnoses AS r").
		Select("p.location AS location, MIN(s.level) AS level, COUNT(r.id) AS count").
		Joins("JOIN patients p ON p.id = r.patient_id").
		Joins("JOIN severities s ON s.id = r.severity_id").
		Where("p.location IS NOT NULL AND p.location <> ''").
		Group("p.location").
		Order("p.location").
		Scan(&rows).Error
	return rows, err
}

// DiseaseLocations returns the total diagnoses for a disease and the
// per-location breakdown over non-empty locations.
func (r *Repository) DiseaseLocations(ctx context.Context, diseaseID uint) (int64, []LocationCount, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Diagnosis{}).Where("disease_id = ?", diseaseID).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	if total == 0 {
		return 0, nil, nil
	}

	var rows []LocationCount
	err := r.db.WithContext(ctx).
		Table("diagnoses AS r").
		Select("p.location AS location, COUNT(r.id) AS count").
		Joins("JOIN patients p ON p.id = r.patient_id").
		Where("r.disease_id = ? AND p.location IS NOT NULL AND p.location <> ''", diseaseID).
		Group("p.location").
		Order("p.location").
		Scan(&rows).Error
	return total, rows, err
}

func (r *Repository) DiseaseLocationMatrix(ctx context.Context) ([]DiseaseLocationCount, error) {
	var rows []DiseaseLocationCount
	err := r.db.WithContext(ctx).
		Table("diagnoses AS r").
		Select("d.name AS disease, p.location AS location, COUNT(r.id) AS count").
		Joins("JOIN patients p ON p.id = r.patient_id").
		Joins("JOIN diseases d ON d.id = r.disease_id").
		Group("d.name, p.location").
		Order("d.name, p.location").
		Scan(&rows).Error
	return rows, err
}

// StatsSnapshot reads the statistics aggregates inside one transaction so
// they describe the same record set.
func (r *Repository) StatsSnapshot(ctx context.Context) (*StatsSnapshot, error) {
	snap := &StatsSnapshot{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Patient{}).Count(&snap.TotalPatients).Error; err != nil {
			return fmt.Errorf("counting patients: %w", err)
		}
		if err := tx.Model(&Disease{}).Count(&snap.TotalDiseases).Error; err != nil {
			return fmt.Errorf("counting diseases: %w", err)
		}

		var avg sql.NullFloat64
		if err := tx.Model(&Diagnosis{}).Select("AVG(confidence_score)").Scan(&avg).Error; err != nil {
			return fmt.Errorf("averaging confidence: %w", err)
		}
		snap.AverageConfidence = avg.Float64
		snap.HasDiagnoses = avg.Valid

		if err := tx.Table("diseases AS d").
			Select("d.id AS id, d.name AS name, COUNT(r.id) AS count").
			Joins("LEFT JOIN diagnoses r ON r.disease_id = d.id").
			Group("d.id, d.name").
			Order("d.id").
			Scan(&snap.DiseaseCounts).Error; err != nil {
			return fmt.Errorf("counting diagnoses per disease: %w", err)
		}

		if err := tx.Model(&Patient{}).
			Select("location, COUNT(id) AS count").
			Group("location").
			Order("count DESC, location").
			Scan(&snap.PatientsByLocation).Error; err != nil {
			return fmt.Errorf("counting patients per location: %w", err)
		}

		if err := tx.Table("diagnoses AS r").
			Select("s.level AS level, s.name AS name, AVG(r.confidence_score) AS average").
			Joins("JOIN severities s ON s.id = r.severity_id").
			Group("s.level, s.name").
			Order("s.level").
			Scan(&snap.ConfidenceBySeverity).Error; err != nil {
			return fmt.Errorf("averaging confidence per severity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
