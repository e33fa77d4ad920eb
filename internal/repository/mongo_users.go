package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/chat-app/services/realtime-service/internal/models"
)

type mongoUsers struct {
	col *mongo.Collection
}

func (r *mongoUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, cur.Err()
}

func (r *mongoUsers) AddBlocked(ctx context.Context, userID, blockedID string) error {
	return r.updateBlocked(ctx, userID, bson.M{"$addToSet": bson.M{"blocked_users": blockedID}})
}

func (r *mongoUsers) RemoveBlocked(ctx context.Context, userID, blockedID string) error {
	return r.updateBlocked(ctx, userID, bson.M{"$pull": bson.M{"blocked_users": blockedID}})
}

func (r *mongoUsers) BlockedEdges(ctx context.Context) (map[string][]string, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"blocked_users.0": bson.M{"$exists": true}},
		options.Find().SetProjection(bson.M{"blocked_users": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string][]string)
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.BlockedUsers
	}
	return out, cur.Err()
}

func (r *mongoUsers) updateBlocked(ctx context.Context, userID string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
