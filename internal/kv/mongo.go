package kv

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one BSON document per record, keyed by _id. Prefix
// listings use an anchored regex over _id, which Mongo serves from the
// default index.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var (
	_ Store  = (*MongoStore)(nil)
	_ Pinger = (*MongoStore)(nil)
)

// NewMongoClient connects and verifies the connection. The caller owns
// the client's lifecycle.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

func NewMongoStore(client *mongo.Client, database, collection string) *MongoStore {
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
}

type mongoRecord struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

func (s *MongoStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		mongoRecord{Key: key, Value: value},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.Value, nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, prefix string) (Iterator, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cursor, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	return &mongoIterator{ctx: ctx, cursor: cursor}, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

type mongoIterator struct {
	ctx    context.Context
	cursor *mongo.Cursor
	rec    mongoRecord
	err    error
}

func (it *mongoIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.cursor.Next(it.ctx) {
		return false
	}
	if err := it.cursor.Decode(&it.rec); err != nil {
		it.err = fmt.Errorf("decode record: %w", err)
		return false
	}
	return true
}

func (it *mongoIterator) Key() string { return it.rec.Key }

func (it *mongoIterator) Value() []byte { return it.rec.Value }

func (it *mongoIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cursor.Err()
}

func (it *mongoIterator) Close() error {
	return it.cursor.Close(it.ctx)
}
