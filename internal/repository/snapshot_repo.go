package repository

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
)

// SnapshotRepository persists the serialized item list of a cart under a key.
// Load returns ErrNotFound when nothing is stored and ErrCorruptSnapshot when
// the stored value cannot be decoded.
type SnapshotRepository interface {
	Load(ctx context.Context, key string) ([]entity.LineItem, error)
	Save(ctx context.Context, key string, items []entity.LineItem) error
}
