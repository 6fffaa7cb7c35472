package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo dials and pings MongoDB
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}
	return client, nil
}

// EnsureIndexes creates the lookup indexes used by the mongo repositories
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	attempts := db.Collection("attempts")
	createIndex(ctx, attempts, bson.D{
		{Key: "userId", Value: 1},
		{Key: "testId", Value: 1},
	}, false)
	createIndex(ctx, attempts, bson.D{
		{Key: "testId", Value: 1},
		{Key: "timestamp", Value: 1},
	}, false)

	createIndex(ctx, db.Collection("invites"), bson.D{{Key: "meetingId", Value: 1}}, false)
	createIndex(ctx, db.Collection("tests"), bson.D{{Key: "createdAt", Value: 1}}, false)

	slog.Info("mongo indexes ensured", "db", db.Name())
}

func createIndex(ctx context.Context, coll *mongo.Collection, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		slog.Warn("failed to create index", "collection", coll.Name(), "error", err)
	}
}

func upsertOpts() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}
