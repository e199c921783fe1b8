package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"github.com/redis/go-redis/v9"
)

type snapshotRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewSnapshotRepository stores each cart snapshot as a JSON string value.
// A zero ttl keeps snapshots until they are overwritten.
func NewSnapshotRepository(client redis.Cmdable, ttl time.Duration) repository.SnapshotRepository {
	return &snapshotRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *snapshotRepository) Load(ctx context.Context, key string) ([]entity.LineItem, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart snapshot %s from redis: %w", key, err)
	}

	items, err := entity.UnmarshalSnapshot(val)
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", repository.ErrCorruptSnapshot, key, err)
	}
	return items, nil
}

func (r *snapshotRepository) Save(ctx context.Context, key string, items []entity.LineItem) error {
	if key == "" {
		return errors.New("cannot save cart snapshot with empty key")
	}

	data, err := entity.MarshalSnapshot(items)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart snapshot %s to redis: %w", key, err)
	}
	return nil
}
