package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
)

type SessionRepository interface {
	// CreateWithQuestions writes the session and its question plan in one transaction.
	CreateWithQuestions(ctx context.Context, s *models.InterviewSession, qs []models.InterviewQuestion) error
	GetByID(ctx context.Context, id string) (*models.InterviewSession, error)
	GetForUser(ctx context.Context, userID, id string) (*models.InterviewSession, error)
	LatestByUser(ctx context.Context, userID string) (*models.InterviewSession, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.InterviewSession, error)
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error
	MarkCompleted(ctx context.Context, id string, at time.Time) error
	SetOverallScore(ctx context.Context, id string, score int) error
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) CreateWithQuestions(ctx context.Context, s *models.InterviewSession, qs []models.InterviewQuestion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		if len(qs) == 0 {
			return nil
		}
		return tx.Create(&qs).Error
	})
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	var row models.InterviewSession
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *sessionRepo) GetForUser(ctx context.Context, userID, id string) (*models.InterviewSession, error) {
	var row models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *sessionRepo) LatestByUser(ctx context.Context, userID string) (*models.InterviewSession, error) {
	var row models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.InterviewSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *sessionRepo) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	res := r.db.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.SessionCompleted,
			"completed_at": gorm.Expr("COALESCE(completed_at, ?)", at),
			"updated_at":   at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) SetOverallScore(ctx context.Context, id string, score int) error {
	return r.db.WithContext(ctx).Model(&models.InterviewSession{}).
		Where("id = ?", id).
		Updates(map[string]any{"overall_score": score, "updated_at": time.Now().UTC()}).Error
}
