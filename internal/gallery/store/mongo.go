package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per category in a Mongo collection and
// emulates the conditional-write contract with a compare-and-swap on a
// revision field. Useful for self-hosted deployments that do not want the
// content repository dependency.
type MongoStore struct {
	col *mongo.Collection
}

// persistedDoc is the Mongo representation. Content is the serialized
// CollectionDocument; the store does not interpret it.
type persistedDoc struct {
	Key       string    `bson:"key"`
	Revision  string    `bson:"revision"`
	Content   []byte    `bson:"content"`
	Message   string    `bson:"message"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	// unique index on key; revision CAS depends on key uniqueness
	idx := mongo.IndexModel{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoStore{col: col}
}

func (m *MongoStore) Fetch(ctx context.Context, key string) (*Snapshot, error) {
	var doc persistedDoc
	err := m.col.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, &TransientError{Op: "fetch", Cause: err}
	}
	return &Snapshot{Content: doc.Content, Token: doc.Revision}, nil
}

func (m *MongoStore) Write(ctx context.Context, key string, content []byte, token, message string) (string, error) {
	if message == "" {
		return "", fmt.Errorf("change description is required")
	}
	next := uuid.NewString()
	doc := persistedDoc{
		Key:       key,
		Revision:  next,
		Content:   content,
		Message:   message,
		UpdatedAt: time.Now().UTC(),
	}

	if token == "" {
		// create-if-absent; a duplicate key means someone created it first
		_, err := m.col.InsertOne(ctx, doc)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return "", ErrConflict
			}
			return "", &TransientError{Op: "write", Cause: err}
		}
		return next, nil
	}

	res, err := m.col.ReplaceOne(ctx, bson.M{"key": key, "revision": token}, doc)
	if err != nil {
		return "", &TransientError{Op: "write", Cause: err}
	}
	if res.MatchedCount == 0 {
		// stale token or vanished document; either way the caller must
		// re-read before retrying
		return "", ErrConflict
	}
	return next, nil
}
