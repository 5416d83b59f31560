package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"interview/internal/models"
)

var (
	ErrResultNotFound   = errors.New("interview result not found")
	ErrAlreadyFinalized = errors.New("interview result already finalized")
)

type ResultRepository struct {
	DB *gorm.DB
}

// FinalizeInput carries everything written when an attempt closes.
type FinalizeInput struct {
	ResultID       string
	CandidateEmail string
	Transcript     []models.Message
	Feedback       models.Feedback
	VideoURL       string
	CompletedAt    time.Time
}

// CreatePending inserts an empty, not yet completed result row for a new attempt.
func (r *ResultRepository) CreatePending(ctx context.Context, interviewID, candidateID, resumeText string) (*models.InterviewResult, error) {
	result := &models.InterviewResult{
		ID:          uuid.NewString(),
		InterviewID: interviewID,
		CandidateID: candidateID,
		ResumeText:  resumeText,
		Transcript:  []models.Message{},
	}
	if err := r.DB.WithContext(ctx).Create(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.InterviewResult, error) {
	var result models.InterviewResult
	err := r.DB.WithContext(ctx).First(&result, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Finalize completes a result, appends the completion ledger and bumps the
// candidate's attempt counter in one transaction. Any failure rolls all three back.
func (r *ResultRepository) Finalize(ctx context.Context, in FinalizeInput) (*models.InterviewResult, error) {
	var out models.InterviewResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, "id = ?", in.ResultID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResultNotFound
			}
			return fmt.Errorf("load result: %w", err)
		}
		if out.Completed {
			return ErrAlreadyFinalized
		}

		feedback := in.Feedback
		completedAt := in.CompletedAt
		out.Transcript = in.Transcript
		out.Feedback = &feedback
		out.VideoURL = in.VideoURL
		out.Completed = true
		out.CompletedAt = &completedAt

		res := tx.Model(&out).
			Where("completed = ?", false).
			Select("transcript", "feedback", "video_url", "completed", "completed_at").
			Updates(&out)
		if res.Error != nil {
			return fmt.Errorf("update result: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyFinalized
		}

		entry := models.CompletionEntry{
			InterviewID:    out.InterviewID,
			ResultID:       out.ID,
			CandidateEmail: in.CandidateEmail,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("append completion ledger: %w", err)
		}

		bump := tx.Model(&models.Candidate{}).
			Where("id = ?", out.CandidateID).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1))
		if bump.Error != nil {
			return fmt.Errorf("increment attempts: %w", bump.Error)
		}
		if bump.RowsAffected == 0 {
			return fmt.Errorf("increment attempts: %w", ErrCandidateNotFound)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
