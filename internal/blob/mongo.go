package blob

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultMongoCollection holds one document per blob, keyed by pathname.
const DefaultMongoCollection = "blobs"

type mongoBlob struct {
	Pathname   string    `bson:"_id"`
	Content    []byte    `bson:"content,omitempty"`
	Size       int64     `bson:"size"`
	UploadedAt time.Time `bson:"uploadedAt"`
}

// MongoStore keeps blobs as documents in a single collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	loc    locator
	now    func() time.Time
}

// NewMongoStore connects and pings the primary before returning.
func NewMongoStore(ctx context.Context, uri, database, baseURL string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(DefaultMongoCollection),
		loc:    newLocator(baseURL),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithCollection switches the backing collection (tests use a throwaway one).
func (s *MongoStore) WithCollection(name string) *MongoStore {
	s.coll = s.coll.Database().Collection(name)
	return s
}

func (s *MongoStore) Put(ctx context.Context, pathname string, content []byte) (Blob, error) {
	uploadedAt := s.now().Truncate(time.Millisecond)
	doc := mongoBlob{
		Pathname:   pathname,
		Content:    content,
		Size:       int64(len(content)),
		UploadedAt: uploadedAt,
	}

	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": pathname}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return Blob{}, fmt.Errorf("failed to put blob %s: %w", pathname, err)
	}

	return Blob{
		URL:        s.loc.url(pathname),
		Pathname:   pathname,
		Size:       doc.Size,
		UploadedAt: uploadedAt,
	}, nil
}

func (s *MongoStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"content": 0})

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	var docs []mongoBlob
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode blobs: %w", err)
	}

	out := make([]Blob, 0, len(docs))
	for _, d := range docs {
		out = append(out, Blob{
			URL:        s.loc.url(d.Pathname),
			Pathname:   d.Pathname,
			Size:       d.Size,
			UploadedAt: d.UploadedAt.UTC(),
		})
	}
	return out, nil
}

func (s *MongoStore) Fetch(ctx context.Context, url string) ([]byte, error) {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil, ErrNotFound
	}

	var doc mongoBlob
	err := s.coll.FindOne(ctx, bson.M{"_id": p}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob %s: %w", p, err)
	}
	return doc.Content, nil
}

func (s *MongoStore) Delete(ctx context.Context, url string) error {
	p, ok := s.loc.pathname(url)
	if !ok {
		return nil
	}
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": p}); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", p, err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
