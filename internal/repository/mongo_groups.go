package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

type mongoGroups struct {
	col *mongo.Collection
}

func (r *mongoGroups) Create(ctx context.Context, g *models.Group) error {
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, g)
	return err
}

func (r *mongoGroups) GetByID(ctx context.Context, id string) (*models.Group, error) {
	var g models.Group
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *mongoGroups) Update(ctx context.Context, g *models.Group) error {
	g.UpdatedAt = time.Now().UTC()
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": g.ID}, g)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoGroups) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
