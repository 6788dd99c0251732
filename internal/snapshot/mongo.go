package snapshot

import (
	"context"
	"fmt"
	"time"

	"elevator_dispatch/internal/elevator"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type carDocument struct {
	ID           string    `bson:"_id"`
	Direction    string    `bson:"direction"`
	CurrentFloor int       `bson:"current_floor"`
	Capacity     int       `bson:"capacity"`
	CurrentLoad  int       `bson:"current_load"`
	Ascending    []int     `bson:"ascending"`
	Descending   []int     `bson:"descending"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newCarDocument(snap elevator.Snapshot, updatedAt time.Time) carDocument {
	return carDocument{
		ID:           snap.ID,
		Direction:    snap.Direction.String(),
		CurrentFloor: snap.CurrentFloor,
		Capacity:     snap.Capacity,
		CurrentLoad:  snap.CurrentLoad,
		Ascending:    nonNil(snap.Ascending),
		Descending:   nonNil(snap.Descending),
		UpdatedAt:    updatedAt,
	}
}

// MongoSink keeps one document per car, keyed by car id.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
	}, nil
}

func (s *MongoSink) Name() string { return "mongo" }

func (s *MongoSink) Publish(ctx context.Context, snapshots []elevator.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	updatedAt := s.now().UTC()
	models := make([]mongo.WriteModel, 0, len(snapshots))
	for _, snap := range snapshots {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": snap.ID}).
			SetReplacement(newCarDocument(snap, updatedAt)).
			SetUpsert(true))
	}

	if _, err := s.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to write car documents: %w", err)
	}
	return nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
