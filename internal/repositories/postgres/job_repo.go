package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
)

type JobRepository interface {
	Create(ctx context.Context, j *models.JobDescription) error
	GetByID(ctx context.Context, userID, id string) (*models.JobDescription, error)
	// LatestValidByUser skips rows that failed content validation.
	LatestValidByUser(ctx context.Context, userID string) (*models.JobDescription, error)
	GetMany(ctx context.Context, ids []string) (map[string]models.JobDescription, error)
	CountValidByUser(ctx context.Context, userID string) (int64, error)
}

type jobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Create(ctx context.Context, j *models.JobDescription) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *jobRepo) GetByID(ctx context.Context, userID, id string) (*models.JobDescription, error) {
	var row models.JobDescription
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *jobRepo) LatestValidByUser(ctx context.Context, userID string) (*models.JobDescription, error) {
	var row models.JobDescription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_valid = ?", userID, true).
		Order("created_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}

func (r *jobRepo) GetMany(ctx context.Context, ids []string) (map[string]models.JobDescription, error) {
	out := make(map[string]models.JobDescription, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.JobDescription
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *jobRepo) CountValidByUser(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.JobDescription{}).
		Where("user_id = ? AND is_valid = ?", userID, true).
		Count(&n).Error
	return n, err
}
