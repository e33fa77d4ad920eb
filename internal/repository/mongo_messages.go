package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

type mongoMessages struct {
	col *mongo.Collection
}

func (r *mongoMessages) Create(ctx context.Context, m *models.Message) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, m)
	return err
}

func (r *mongoMessages) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mongoMessages) AdvanceStatus(ctx context.Context, id string, from []models.Status, to models.Status, deliveredAt, seenAt *time.Time) (bool, error) {
	set := bson.M{"status": to, "updated_at": time.Now().UTC()}
	if deliveredAt != nil {
		// Pipeline update so delivered_at is written once: a concurrent
		// delivered confirmation must not be overwritten by a seen backfill.
		set["delivered_at"] = bson.M{"$ifNull": bson.A{"$delivered_at", *deliveredAt}}
	}
	if seenAt != nil {
		set["seen_at"] = *seenAt
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoMessages) SetText(ctx context.Context, id, text string) error {
	return r.setFields(ctx, id, bson.M{"text": text})
}

func (r *mongoMessages) SetReactions(ctx context.Context, id string, reactions map[string]string) error {
	return r.setFields(ctx, id, bson.M{"reactions": reactions})
}

func (r *mongoMessages) SetPinned(ctx context.Context, id string, pinned bool) error {
	return r.setFields(ctx, id, bson.M{"is_pinned": pinned})
}

func (r *mongoMessages) setFields(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoMessages) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
