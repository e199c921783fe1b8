package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/app/config"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// snapshotDocument keeps the encoded item list as the same JSON payload the
// other backends store, so every backend decodes snapshots identically.
type snapshotDocument struct {
	Key       string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	ItemCount int       `bson:"item_count"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newSnapshotDocument(key string, items []entity.LineItem, now time.Time) (snapshotDocument, error) {
	data, err := entity.MarshalSnapshot(items)
	if err != nil {
		return snapshotDocument{}, err
	}
	return snapshotDocument{
		Key:       key,
		Payload:   string(data),
		ItemCount: len(items),
		UpdatedAt: now.UTC(),
	}, nil
}

func (d snapshotDocument) items() ([]entity.LineItem, error) {
	items, err := entity.UnmarshalSnapshot([]byte(d.Payload))
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", repository.ErrCorruptSnapshot, d.Key, err)
	}
	return items, nil
}

type snapshotRepository struct {
	collection *mongo.Collection
}

func NewSnapshotRepository(client *mongo.Client, cfg config.MongoDBConfig) repository.SnapshotRepository {
	return &snapshotRepository{
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}
}

func (r *snapshotRepository) Load(ctx context.Context, key string) ([]entity.LineItem, error) {
	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart snapshot %s from mongodb: %w", key, err)
	}

	return doc.items()
}

func (r *snapshotRepository) Save(ctx context.Context, key string, items []entity.LineItem) error {
	if key == "" {
		return errors.New("cannot save cart snapshot with empty key")
	}

	doc, err := newSnapshotDocument(key, items, time.Now())
	if err != nil {
		return err
	}

	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save cart snapshot %s to mongodb: %w", key, err)
	}
	return nil
}
