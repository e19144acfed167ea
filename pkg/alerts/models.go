package alerts

import (
	"time"

	"gorm.io/datatypes"
)

type Alert struct {
	ID            string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID       string            `gorm:"type:varchar(36);uniqueIndex;not null" json:"event_id"`
	PatientID     uint              `gorm:"index" json:"patient_id"`
	Disease       string            `gorm:"size:128" json:"disease"`
	Severity      string            `gorm:"size:32" json:"severity"`
	SeverityLevel int               `gorm:"index" json:"severity_level"`
	Location      string            `gorm:"size:255" json:"location"`
	Confidence    float64           `json:"confidence"`
	Payload       datatypes.JSONMap `json:"payload"`
	DiagnosedAt   time.Time         `json:"diagnosed_at"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
}

func (Alert) TableName() string { return "triage_alerts" }

type LevelCount struct {
	SeverityLevel int
	Severity      string
	Count         int64
}
