package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"interview/internal/models"
)

var ErrCandidateNotFound = errors.New("candidate not found")

type CandidateRepository struct {
	DB *gorm.DB
}

func (r *CandidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	return r.DB.WithContext(ctx).Create(candidate).Error
}

func (r *CandidateRepository) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.DB.WithContext(ctx).First(&candidate, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCandidateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}
