package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/docgate/docgate/internal/document"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo persists every logical collection in one Mongo collection keyed
// by (collection, id). A compound unique index keeps paths unique.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Get(ctx context.Context, collection, id string) (*document.Document, error) {
	var d document.Document
	err := m.col.FindOne(ctx, bson.M{"collection": collection, "id": id}).Decode(&d)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	return &d, nil
}

func (m *MongoRepo) List(ctx context.Context, collection string, q *document.Query) ([]*document.Document, error) {
	filter := bson.M{"collection": collection}
	if q != nil {
		for k, v := range q.Filters {
			filter["fields."+k] = v
		}
	}
	opts := options.Find()
	if q != nil && q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	defer cur.Close(ctx)
	out := []*document.Document{}
	for cur.Next(ctx) {
		var d document.Document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: %v", document.ErrUnavailable, err)
		}
		out = append(out, &d)
	}
	return out, nil
}

func (m *MongoRepo) Set(ctx context.Context, d *document.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.UpdatedAt = now
	filter := bson.M{"collection": d.Collection, "id": d.ID}
	update := bson.M{
		"$set":         bson.M{"fields": d.Fields, "updatedAt": d.UpdatedAt},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := m.col.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	return nil
}

func (m *MongoRepo) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set["fields."+k] = v
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"collection": collection, "id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Delete(ctx context.Context, collection, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"collection": collection, "id": id})
	if err != nil {
		return fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Clear(ctx context.Context) error {
	if _, err := m.col.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("%w: %v", document.ErrUnavailable, err)
	}
	return nil
}
