package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDatabase = "caliope"

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

// OpenMongo connects to uri and pings the server. The database is the URI
// path, or "caliope" when the path is empty.
func OpenMongo(ctx context.Context, uri string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping mongo: %v", common.ErrBackendUnavailable, err)
	}
	return NewMongoStore(client, databaseFromURI(uri)), nil
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{client: client, db: client.Database(database), now: time.Now}
}

func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return defaultMongoDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return defaultMongoDatabase
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{fieldID: id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decodeRaw(raw)
}

func (s *MongoStore) Set(ctx context.Context, collection, id string, doc Document) error {
	body := make(bson.M, len(doc)+2)
	for k, v := range doc {
		body[k] = v
	}
	body[fieldID] = id
	body[fieldUpdatedAt] = s.now().UTC()

	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{fieldID: id}, body, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, u Update) error {
	set := bson.M{fieldUpdatedAt: s.now().UTC()}
	for k, v := range u.Set {
		set[k] = v
	}
	update := bson.M{"$set": set}
	if len(u.Union) > 0 {
		add := bson.M{}
		for k, values := range u.Union {
			add[k] = bson.M{"$each": values}
		}
		update["$addToSet"] = add
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{fieldID: id}, update)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string) ([]Document, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: fieldID, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var out []Document
	for cur.Next(ctx) {
		doc, err := decodeRaw(cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// decodeRaw renders raw as relaxed extended JSON and reads it back as plain
// JSON values, then drops server metadata.
func decodeRaw(raw bson.Raw) (Document, error) {
	js, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return strip(doc), nil
}
