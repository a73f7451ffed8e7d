package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const BufferCollection = "transcription_buffer"

// BufferRepository keeps one most-recent-only transcription document per interview session.
type BufferRepository interface {
	SetCandidateText(ctx context.Context, sessionID, text, turnID string) error
	SetInterviewerText(ctx context.Context, sessionID, text, turnID string) error
	Get(ctx context.Context, sessionID string) (*models.TranscriptionBuffer, error)
	// MostRecentActive returns the session whose buffer was touched last, no earlier than since.
	MostRecentActive(ctx context.Context, since time.Time) (string, error)
}

type bufferRepo struct {
	col *mongo.Collection
	ttl time.Duration
	now func() time.Time
}

func NewBufferRepo(db *mongo.Database, ttl time.Duration) BufferRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &bufferRepo{
		col: db.Collection(BufferCollection),
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *bufferRepo) SetCandidateText(ctx context.Context, sessionID, text, turnID string) error {
	return r.upsert(ctx, sessionID, bson.M{"last_candidate_text": text, "last_turn_id": turnID})
}

func (r *bufferRepo) SetInterviewerText(ctx context.Context, sessionID, text, turnID string) error {
	return r.upsert(ctx, sessionID, bson.M{"last_interviewer_text": text, "last_turn_id": turnID})
}

func (r *bufferRepo) upsert(ctx context.Context, sessionID string, set bson.M) error {
	now := r.now()
	set["updated_at"] = now
	set["expires_at"] = now.Add(r.ttl)

	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"session_id": sessionID},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *bufferRepo) Get(ctx context.Context, sessionID string) (*models.TranscriptionBuffer, error) {
	var out models.TranscriptionBuffer
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *bufferRepo) MostRecentActive(ctx context.Context, since time.Time) (string, error) {
	var out models.TranscriptionBuffer
	err := r.col.FindOne(ctx,
		bson.M{"updated_at": bson.M{"$gte": since}},
		options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", utils.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return out.SessionID, nil
}
