package alerts

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Alert{})
}

// Create inserts the alert unless one exists for the same event. It reports
// whether a row was written.
func (r *Repository) Create(ctx context.Context, alert *Alert) (bool, error) {
	alert.CreatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(alert)
	return result.RowsAffected > 0, result.Error
}

func (r *Repository) List(ctx context.Context, limit int) ([]Alert, error) {
	var out []Alert
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *Repository) CountByLevel(ctx context.Context) ([]LevelCount, error) {
	var rows []LevelCount
	err := r.db.WithContext(ctx).
		Model(&Alert{}).
		Select("severity_level, severity, COUNT(*) AS count").
		Group("severity_level, severity").
		Order("severity_level").
		Scan(&rows).Error
	return rows, err
}
