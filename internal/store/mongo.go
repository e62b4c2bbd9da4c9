package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/jeefy/recordchat/internal/models"
)

const (
	defaultMongoDatabase = "recordsdb"
	recordsCollection    = "records"
)

// MongoStore keeps records in a Mongo collection, one document per record.
// The driver's own pool handles concurrency.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongo connects to uri, verifies the connection and makes sure the unique
// id index exists. The database name is taken from the URI path.
func NewMongo(ctx context.Context, uri string) (*MongoStore, error) {
	dbName := defaultMongoDatabase
	if cs, err := connstring.ParseAndValidate(uri); err == nil && cs.Database != "" {
		dbName = cs.Database
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	coll := client.Database(dbName).Collection(recordsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo create id index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

var byID = bson.D{{Key: "id", Value: 1}}

func (m *MongoStore) List(ctx context.Context) ([]models.Record, error) {
	return m.find(ctx, bson.D{}, options.Find().SetSort(byID))
}

func (m *MongoStore) Search(ctx context.Context, q string, limit int) ([]models.Record, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name", Value: pattern}},
		bson.D{{Key: "value", Value: pattern}},
	}}}
	opts := options.Find().SetSort(byID)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return m.find(ctx, filter, opts)
}

func (m *MongoStore) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Record, error) {
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	out := []models.Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	if out == nil {
		out = []models.Record{}
	}
	return out, nil
}

func (m *MongoStore) Get(ctx context.Context, id int64) (*models.Record, error) {
	var rec models.Record
	err := m.coll.FindOne(ctx, bson.D{{Key: "id", Value: id}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %d: %w", id, err)
	}
	return &rec, nil
}

func (m *MongoStore) Update(ctx context.Context, rec models.Record) (*models.Record, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: rec.Name},
		{Key: "value", Value: rec.Value},
	}}}
	var out models.Record
	err := m.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "id", Value: rec.ID}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo update %d: %w", rec.ID, err)
	}
	return &out, nil
}

func (m *MongoStore) Count(ctx context.Context) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("mongo count: %w", err)
	}
	return n, nil
}

func (m *MongoStore) InsertMany(ctx context.Context, recs []models.Record) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]interface{}, len(recs))
	for i, r := range recs {
		docs[i] = r
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("mongo insert: %w", ErrDuplicateID)
		}
		return fmt.Errorf("mongo insert: %w", err)
	}
	return nil
}

func (m *MongoStore) DeleteAll(ctx context.Context) error {
	if _, err := m.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("mongo delete all: %w", err)
	}
	return nil
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
