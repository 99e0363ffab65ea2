package history

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/corepkg/extractor/pkg/errors"
)

const collectionName = "runs"

// Store archives run records in MongoDB.
type Store struct {
	client *mongo.Client
	runs   *mongo.Collection
}

// NewStore connects to MongoDB and returns a store backed by the "runs"
// collection of the given database.
func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongodb")
	}

	return &Store{
		client: client,
		runs:   client.Database(database).Collection(collectionName),
	}, nil
}

// Save archives a run record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if _, err := s.runs.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "archive run %s", rec.RunID)
	}
	return nil
}

// Get returns the record for a run ID.
func (s *Store) Get(ctx context.Context, runID string) (Record, error) {
	var rec Record
	err := s.runs.FindOne(ctx, bson.M{"run_id": runID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, errors.New(errors.ErrCodeRunNotFound, "run %s not found", runID)
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeInternal, err, "load run %s", runID)
	}
	return rec, nil
}

// Latest returns the most recent archived run, by start time.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})

	var rec Record
	err := s.runs.FindOne(ctx, bson.M{}, opts).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return Record{}, errors.New(errors.ErrCodeRunNotFound, "no archived runs")
	}
	if err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeInternal, err, "load latest run")
	}
	return rec, nil
}

// List returns archived runs newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int64) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list runs")
	}
	defer cur.Close(ctx)

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode runs")
	}
	return recs, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
