// Package mongostore benchmarks MongoDB with one nested document per record.
package mongostore

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/kpfaulkner/featuretables/pkg/convert"
	"github.com/kpfaulkner/featuretables/pkg/simulate"
)

type Config struct {
	URI        string
	Database   string
	Collection string

	// Safe waits for a majority of the replica set to acknowledge writes.
	Safe bool

	// Drop the collection in Prepare.
	Drop bool

	Layout simulate.Layout
}

type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	config Config
}

func New(ctx context.Context, config Config) (*Store, error) {
	if config.Database == "" {
		config.Database = "featuretables"
	}
	if config.Collection == "" {
		config.Collection = "features"
	}
	if config.Layout.Sep == "" {
		config.Layout = simulate.FlatLayout
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		log.Errorf("unable to connect to %s: %v", config.URI, err)
		return nil, err
	}

	collOpts := options.Collection()
	if config.Safe {
		collOpts.SetWriteConcern(writeconcern.Majority())
	}

	s := Store{}
	s.client = client
	s.config = config
	s.coll = client.Database(config.Database).Collection(config.Collection, collOpts)
	return &s, nil
}

func (s *Store) Name() string {
	return "mongo"
}

func (s *Store) Prepare(ctx context.Context, sample simulate.Record) error {
	if !s.config.Drop {
		return nil
	}
	return s.coll.Drop(ctx)
}

// toDocument nests the features of a record by layout group.
func toDocument(rec simulate.Record, layout simulate.Layout) bson.M {
	doc := bson.M{convert.IDField: rec.ID, convert.TimestampField: rec.Timestamp}
	for k, v := range rec.Features {
		groups, feature := layout.Split(k)
		m := doc
		for _, g := range groups {
			sub, ok := m[g].(bson.M)
			if !ok {
				sub = bson.M{}
				m[g] = sub
			}
			m = sub
		}
		m[feature] = v
	}
	return doc
}

func (s *Store) Insert(ctx context.Context, records []simulate.Record) error {
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = toDocument(r, s.config.Layout)
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

// ReadField fetches one nested field from every document that has it.
func (s *Store) ReadField(ctx context.Context, key string) ([][]float64, error) {
	path := convert.FieldPath(key, s.config.Layout)
	filter := bson.M{path: bson.M{"$exists": true}}
	opts := options.Find().SetProjection(bson.M{path: 1, "_id": 0})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	groups, feature := s.config.Layout.Split(key)
	lookup := append(groups, feature)
	var res [][]float64
	for cur.Next(ctx) {
		rv, err := cur.Current.LookupErr(lookup...)
		if err != nil {
			return nil, fmt.Errorf("document without %s: %w", path, err)
		}
		var v []float64
		if err := rv.Unmarshal(&v); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, cur.Err()
}

func exists(path string) bson.D {
	return bson.D{{Key: "$match", Value: bson.M{path: bson.M{"$exists": true}}}}
}

// CountAllAbove counts documents whose field values are all above threshold,
// evaluated by the server.
func (s *Store) CountAllAbove(ctx context.Context, key string, threshold float64) (int64, error) {
	path := convert.FieldPath(key, s.config.Layout)
	pipeline := mongo.Pipeline{
		exists(path),
		{{Key: "$match", Value: bson.M{"$expr": bson.M{"$allElementsTrue": bson.A{
			bson.M{"$map": bson.M{"input": "$" + path, "as": "v", "in": bson.M{"$gt": bson.A{"$$v", threshold}}}},
		}}}}},
		{{Key: "$count", Value: "n"}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var out []struct {
		N int64 `bson:"n"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].N, nil
}

// Bucket is the number of documents whose field mean rounds to Mean.
type Bucket struct {
	Mean  float64 `bson:"_id"`
	Count int64   `bson:"count"`
}

// MeanHistogram groups documents by the rounded mean of a field.
func (s *Store) MeanHistogram(ctx context.Context, key string) ([]Bucket, error) {
	path := convert.FieldPath(key, s.config.Layout)
	pipeline := mongo.Pipeline{
		exists(path),
		{{Key: "$project", Value: bson.M{"mean": bson.M{"$avg": "$" + path}}}},
		{{Key: "$group", Value: bson.M{"_id": bson.M{"$round": bson.A{"$mean", 0}}, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var buckets []Bucket
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	return buckets, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
