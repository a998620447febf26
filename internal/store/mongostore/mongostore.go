// Package mongostore persists databases and snapshots in MongoDB using the
// "databases" and "db_saves" collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
	"github.com/kadirbelkuyu/dbsaver/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	databasesCollection = "databases"
	snapshotsCollection = "db_saves"
)

type Store struct {
	client    *mongo.Client
	databases *mongo.Collection
	snapshots *mongo.Collection
}

// Connect opens the MongoDB client and verifies it with a primary ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	return &Store{
		client:    client,
		databases: db.Collection(databasesCollection),
		snapshots: db.Collection(snapshotsCollection),
	}, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Databases() store.DatabaseStore {
	return databaseStore{coll: s.databases}
}

func (s *Store) Snapshots() store.SnapshotStore {
	return snapshotStore{coll: s.snapshots}
}

// objectID parses a hex id; malformed ids resolve to nothing.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, models.ErrNotFound
	}
	return oid, nil
}

type databaseStore struct {
	coll *mongo.Collection
}

func (d databaseStore) List(ctx context.Context) ([]models.Database, error) {
	cursor, err := d.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []databaseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode databases: %w", err)
	}

	result := make([]models.Database, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}
	return result, nil
}

func (d databaseStore) Get(ctx context.Context, id string) (*models.Database, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc databaseDocument
	if err := d.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load database %s: %w", id, err)
	}

	db := doc.toModel()
	return &db, nil
}

func (d databaseStore) Insert(ctx context.Context, db models.Database) (string, error) {
	doc := databaseDocument{
		Name:                   db.Name,
		CustomName:             db.CustomName,
		Engine:                 db.Engine,
		ConnectionString:       db.ConnectionString,
		AuthenticationDatabase: db.AuthenticationDatabase,
		Status:                 string(db.Status),
		Collections:            db.Collections,
		Message:                db.Message,
		LastSave:               db.LastSave,
	}
	if doc.Collections == nil {
		doc.Collections = []string{}
	}

	result, err := d.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to insert database: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (d databaseStore) Update(ctx context.Context, id string, input models.DatabaseInput) error {
	set := bson.M{
		"name":                    input.Name,
		"custom_name":             input.CustomName,
		"connection_string":       input.ConnectionString,
		"authentication_database": input.AuthenticationDatabase,
	}
	if input.Engine != "" {
		set["engine"] = input.Engine
	}
	return d.set(ctx, id, set)
}

func (d databaseStore) SetStatus(ctx context.Context, id string, status models.Status) error {
	return d.set(ctx, id, bson.M{"status": string(status)})
}

func (d databaseStore) RecordProbe(ctx context.Context, id string, outcome store.ProbeOutcome) error {
	collections := outcome.Collections
	if collections == nil {
		collections = []string{}
	}
	return d.set(ctx, id, bson.M{
		"status":      string(outcome.Status),
		"collections": collections,
		"message":     outcome.Message,
	})
}

func (d databaseStore) SetLastSave(ctx context.Context, id string, timestamp int64) error {
	return d.set(ctx, id, bson.M{"last_save": timestamp})
}

func (d databaseStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := d.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete database %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (d databaseStore) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := d.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update database %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

type snapshotStore struct {
	coll *mongo.Collection
}

func (s snapshotStore) Insert(ctx context.Context, snapshot models.Snapshot) (string, error) {
	dbID, err := objectID(snapshot.DatabaseID)
	if err != nil {
		return "", err
	}

	result, err := s.coll.InsertOne(ctx, snapshotDocument{
		DatabaseID: dbID,
		Time:       snapshot.Timestamp,
		Manual:     snapshot.Manual,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert snapshot: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

func (s snapshotStore) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var doc snapshotDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", id, err)
	}

	snapshot := doc.toModel()
	return &snapshot, nil
}

func (s snapshotStore) ListByDatabase(ctx context.Context, databaseID string) ([]models.Snapshot, error) {
	oid, err := objectID(databaseID)
	if err != nil {
		return []models.Snapshot{}, nil
	}
	return s.find(ctx, bson.M{"db_id": oid})
}

func (s snapshotStore) ListAutomatic(ctx context.Context) ([]models.Snapshot, error) {
	return s.find(ctx, bson.M{"manual": false})
}

func (s snapshotStore) Count(ctx context.Context, databaseID string) (int64, error) {
	oid, err := objectID(databaseID)
	if err != nil {
		return 0, nil
	}

	count, err := s.coll.CountDocuments(ctx, bson.M{"db_id": oid})
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

func (s snapshotStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s snapshotStore) find(ctx context.Context, filter bson.M) ([]models.Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []snapshotDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}

	result := make([]models.Snapshot, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}
	return result, nil
}
