package history

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// DefaultMongoDatabase is used when Config.Database is empty.
const DefaultMongoDatabase = "phi_engine"

const mongoCollection = "history"

// MongoStore persists entries in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// document is the stored form of an Entry. Payloads are kept as JSON text.
type document struct {
	ID         string  `bson:"_id"`
	TS         int64   `bson:"ts"`
	Operation  string  `bson:"operation"`
	Adapter    string  `bson:"adapter,omitempty"`
	Mode       string  `bson:"mode,omitempty"`
	Input      string  `bson:"input,omitempty"`
	Output     string  `bson:"output,omitempty"`
	Success    bool    `bson:"success"`
	Error      string  `bson:"error,omitempty"`
	DurationMS float64 `bson:"duration_ms"`
}

func toDocument(e Entry) document {
	return document{
		ID:         e.ID,
		TS:         e.Timestamp.UnixNano(),
		Operation:  e.Operation,
		Adapter:    e.Adapter,
		Mode:       e.Mode,
		Input:      string(e.Input),
		Output:     string(e.Output),
		Success:    e.Success,
		Error:      e.Error,
		DurationMS: e.DurationMS,
	}
}

func (d document) entry() Entry {
	e := Entry{
		ID:         d.ID,
		Timestamp:  fromNanos(d.TS),
		Operation:  d.Operation,
		Adapter:    d.Adapter,
		Mode:       d.Mode,
		Success:    d.Success,
		Error:      d.Error,
		DurationMS: d.DurationMS,
	}
	if d.Input != "" {
		e.Input = []byte(d.Input)
	}
	if d.Output != "" {
		e.Output = []byte(d.Output)
	}
	return e
}

// NewMongoStore connects to uri, verifies the connection and ensures the
// (ts, _id) index exists.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.InvalidInput("history.dsn", "mongo URI required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	coll := client.Database(database).Collection(mongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ts", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("create history index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// Record implements Store.
func (s *MongoStore) Record(ctx context.Context, e Entry) (Entry, error) {
	e = prepare(e)
	if _, err := s.coll.InsertOne(ctx, toDocument(e)); err != nil {
		return Entry{}, fmt.Errorf("insert history entry: %w", err)
	}
	return e, nil
}

// List implements Store.
func (s *MongoStore) List(ctx context.Context, q Query) ([]Entry, error) {
	filter := bson.M{}
	if q.Operation != "" {
		filter["operation"] = q.Operation
	}
	if q.Adapter != "" {
		filter["adapter"] = q.Adapter
	}
	ts := bson.M{}
	if !q.From.IsZero() {
		ts["$gte"] = q.From.UnixNano()
	}
	if !q.To.IsZero() {
		ts["$lt"] = q.To.UnixNano()
	}
	if len(ts) > 0 {
		filter["ts"] = ts
	}

	dir := -1
	if q.Ascending {
		dir = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: dir}, {Key: "_id", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	out := make([]Entry, len(docs))
	for i, d := range docs {
		out[i] = d.entry()
	}
	return out, nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, id string) (Entry, error) {
	var d document
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, errors.New(errors.ErrCodeNotFound, "history entry %q", id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get history entry: %w", err)
	}
	return d.entry(), nil
}

// Close implements Store.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
