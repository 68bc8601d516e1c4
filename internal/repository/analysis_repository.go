package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// AnalysisLog records one completed analysis request.
type AnalysisLog struct {
	ID        uint      `gorm:"primaryKey"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64"`
	UserID    string    `gorm:"column:user_id;index;size:64"`
	Mode      string    `gorm:"column:mode;size:16"`
	BodyShape string    `gorm:"column:body_shape;size:32"`
	Undertone string    `gorm:"column:undertone;size:16"`
	Updated   bool      `gorm:"column:updated"`
	Reply     string    `gorm:"column:reply;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (AnalysisLog) TableName() string {
	return "analysis_logs"
}

// AnalysisRepository stores analysis history.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new repository instance.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// AutoMigrate ensures the analysis_logs table exists.
func (r *AnalysisRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&AnalysisLog{})
}

// SaveLog persists an analysis log entry.
func (r *AnalysisRepository) SaveLog(ctx context.Context, log *AnalysisLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByRequestIDAndUser retrieves an analysis owned by userID.
func (r *AnalysisRepository) FindByRequestIDAndUser(ctx context.Context, requestID, userID string) (*AnalysisLog, error) {
	var log AnalysisLog
	if err := r.db.WithContext(ctx).First(&log, "request_id = ? AND user_id = ?", requestID, userID).Error; err != nil {
		return nil, err
	}
	return &log, nil
}
