package postgres

import (
	"context"

	"github.com/yoockh/mockinterview/internal/models"
	"gorm.io/gorm"
)

type QuestionRepository interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type questionRepo struct {
	db *gorm.DB
}

func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) ListBySession(ctx context.Context, sessionID string) ([]models.InterviewQuestion, error) {
	var rows []models.InterviewQuestion
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("question_order ASC").
		Find(&rows).Error
	return rows, err
}

func (r *questionRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.InterviewQuestion{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error
	return n, err
}
