package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepo interface {
	// Append assigns the next turn numbers to turns and inserts them. The session row is
	// locked for the duration so concurrent appends to one session serialize.
	Append(ctx context.Context, sessionID string, turns ...*models.ConversationTurn) error
	ListBySession(ctx context.Context, sessionID string) ([]models.ConversationTurn, error)
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Append(ctx context.Context, sessionID string, turns ...*models.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.InterviewSession
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", sessionID).
			Take(&sess).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrNotFound
		}
		if err != nil {
			return err
		}

		var last int
		if err := tx.Model(&models.ConversationTurn{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(turn_number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}

		for i, t := range turns {
			t.SessionID = sessionID
			t.TurnNumber = last + i + 1
		}
		return tx.Create(turns).Error
	})
}

func (r *conversationRepo) ListBySession(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	var rows []models.ConversationTurn
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("turn_number ASC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.ConversationTurn{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error
	return n, err
}
