package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

// SnapshotRepository keeps encoded snapshots in process memory, the way a
// browser's local storage holds them. Snapshots do not survive a restart of
// the process.
type SnapshotRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{data: make(map[string][]byte)}
}

func (r *SnapshotRepository) Load(_ context.Context, key string) ([]entity.LineItem, error) {
	r.mu.RLock()
	raw, ok := r.data[key]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	items, err := entity.UnmarshalSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: key %s: %v", repository.ErrCorruptSnapshot, key, err)
	}
	return items, nil
}

func (r *SnapshotRepository) Save(_ context.Context, key string, items []entity.LineItem) error {
	data, err := entity.MarshalSnapshot(items)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.data[key] = data
	r.mu.Unlock()
	return nil
}

// Raw returns the stored bytes for key.
func (r *SnapshotRepository) Raw(key string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, ok := r.data[key]
	return raw, ok
}

// SetRaw stores bytes for key without encoding them.
func (r *SnapshotRepository) SetRaw(key string, raw []byte) {
	r.mu.Lock()
	r.data[key] = raw
	r.mu.Unlock()
}
