package probe

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoProber struct {
	timeout time.Duration
}

func NewMongoProber(timeout time.Duration) *MongoProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MongoProber{timeout: timeout}
}

func (p *MongoProber) Probe(ctx context.Context, target Target) Result {
	clientOpts := options.Client().
		ApplyURI(target.ConnectionString).
		SetServerSelectionTimeout(p.timeout).
		SetConnectTimeout(p.timeout)
	if err := clientOpts.Validate(); err != nil {
		return failure("Failed to parse connection string: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return failure("Failed to connect: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return failure("Failed to connect: %v", err)
	}

	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return failure("Failed to list databases: %v", err)
	}
	if !contains(names, target.Database) {
		return failure("Database not found: %s", target.Database)
	}

	collections, err := client.Database(target.Database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return failure("Failed to list collections: %v", err)
	}

	return success(collections)
}

func contains(values []string, want string) bool {
	for _, value := range values {
		if value == want {
			return true
		}
	}
	return false
}
