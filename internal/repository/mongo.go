package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials Mongo and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

type Repositories struct {
	Messages MessageRepository
	Groups   GroupRepository
	Users    UserRepository
}

// NewMongo wires the three repositories onto collections of the given database.
func NewMongo(db *mongo.Database) *Repositories {
	return &Repositories{
		Messages: &mongoMessages{col: db.Collection("messages")},
		Groups:   &mongoGroups{col: db.Collection("groups")},
		Users:    &mongoUsers{col: db.Collection("users")},
	}
}
