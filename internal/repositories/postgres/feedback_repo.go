package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackRepository interface {
	GetBySession(ctx context.Context, sessionID string) (*models.InterviewFeedback, error)
	// Upsert keeps exactly one row per session; a second write overwrites the first.
	Upsert(ctx context.Context, f *models.InterviewFeedback) error
}

type feedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) GetBySession(ctx context.Context, sessionID string) (*models.InterviewFeedback, error) {
	var row models.InterviewFeedback
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *feedbackRepo) Upsert(ctx context.Context, f *models.InterviewFeedback) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"communication_score", "content_score", "confidence_score", "preparation_score",
				"overall_feedback", "strengths", "improvements", "next_steps",
				"response_analyses", "resume_analysis", "job_fit_analysis", "preparation_analysis",
				"degraded", "degraded_reasons", "analysis_completed_at", "updated_at",
			}),
		}).
		Create(f).Error
}
