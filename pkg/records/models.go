package records

import "time"

type Patient struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	Age             int       `gorm:"not null" json:"age"`
	Gender          string    `gorm:"size:32;not null" json:"gender"`
	Location        string    `gorm:"size:255;not null;index" json:"location"`
	TemperatureF    *float64  `json:"temperature_f"`
	PregnancyStatus string    `gorm:"size:32;default:N/A" json:"pregnancy_status"`
	BloodPressure   string    `gorm:"size:32" json:"blood_pressure"`
	BloodGlucose    *float64  `json:"blood_glucose"`
	ImagePath       *string   `gorm:"size:1024" json:"image_path"`
	Symptoms        string    `gorm:"type:text" json:"symptoms"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

func (Patient) TableName() string { return "patients" }

type Severity struct {
	ID    uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Level int    `gorm:"not null;uniqueIndex" json:"level"`
	Name  string `gorm:"size:32;not null" json:"name"`
}

func (Severity) TableName() string { return "severities" }

type Disease struct {
	ID   uint   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:128;not null;uniqueIndex" json:"name"`
}

func (Disease) TableName() string { return "diseases" }

type Diagnosis struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PatientID       uint      `gorm:"not null;index" json:"patient_id"`
	SeverityID      uint      `gorm:"not null;index" json:"severity_id"`
	DiseaseID       uint      `gorm:"not null;index" json:"disease_id"`
	ConfidenceScore float64   `gorm:"not null" json:"confidence_score"`
	Comment         string    `gorm:"type:text" json:"comment"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Diagnosis) TableName() string { return "diagnoses" }

// PatientView is a patient joined with its diagnosis.
type PatientView struct {
	Patient
	Disease         string  `json:"disease"`
	Severity        string  `json:"severity"`
	ConfidenceScore float64 `json:"confidence_score"`
	Comment         string  `json:"comment,omitempty"`
}

type LevelCount struct {
	Level int
	Count int64
}

type LocationCount struct {
	Location string
	Count    int64
}

type LocationSeverity struct {
	Location string
	Level    int
	Count    int64
}

type DiseaseCount struct {
	ID    uint
	Name  string
	Count int64
}

type DiseaseLocationCount struct {
	Disease  string
	Location string
	Count    int64
}

type SeverityConfidence struct {
	Level   int
	Name    string
	Average float64
}

// StatsSnapshot holds every aggregate the statistics view needs, read in one
// transaction.
type StatsSnapshot struct {
	TotalPatients        int64
	TotalDiseases        int64
	AverageConfidence    float64
	HasDiagnoses         bool
	DiseaseCounts        []DiseaseCount
	PatientsByLocation   []LocationCount
	ConfidenceBySeverity []SeverityConfidence
}
