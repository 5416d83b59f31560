package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"interview/internal/models"
)

var ErrInterviewNotFound = errors.New("interview config not found")

type InterviewRepository struct {
	DB *gorm.DB
}

func (r *InterviewRepository) Create(ctx context.Context, cfg *models.InterviewConfig) error {
	return r.DB.WithContext(ctx).Create(cfg).Error
}

func (r *InterviewRepository) GetConfig(ctx context.Context, id string) (*models.InterviewConfig, error) {
	var cfg models.InterviewConfig
	err := r.DB.WithContext(ctx).First(&cfg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Completions returns the completion ledger for one interview, oldest first.
func (r *InterviewRepository) Completions(ctx context.Context, interviewID string) ([]models.CompletionEntry, error) {
	var entries []models.CompletionEntry
	err := r.DB.WithContext(ctx).
		Where("interview_id = ?", interviewID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}
