package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
)

type ResumeRepository interface {
	Create(ctx context.Context, r *models.Resume) error
	GetByID(ctx context.Context, userID, id string) (*models.Resume, error)
	LatestByUser(ctx context.Context, userID string) (*models.Resume, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type resumeRepo struct {
	db *gorm.DB
}

func NewResumeRepo(db *gorm.DB) ResumeRepository {
	return &resumeRepo{db: db}
}

func (r *resumeRepo) Create(ctx context.Context, row *models.Resume) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *resumeRepo) GetByID(ctx context.Context, userID, id string) (*models.Resume, error) {
	var row models.Resume
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *resumeRepo) LatestByUser(ctx context.Context, userID string) (*models.Resume, error) {
	var row models.Resume
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *resumeRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Resume{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
