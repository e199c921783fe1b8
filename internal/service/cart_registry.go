package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CartRegistryConfig struct {
	StorageKey  string
	SaveTimeout time.Duration
	LoadTimeout time.Duration
	// Observers are subscribed to every store the registry creates.
	Observers []Observer
	// OnRestore, if set, is called after each first restore attempt with the
	// number of stores held afterwards.
	OnRestore func(key string, result RestoreResult, active int)
	// OnEvict, if set, is called after a sweep that dropped stores.
	OnEvict func(evicted, active int)
}

type registryEntry struct {
	store      *CartStore
	lastAccess time.Time
}

// CartRegistry hands out one restored CartStore per session.
type CartRegistry struct {
	mu       sync.Mutex
	entries  map[string]*registryEntry
	restores singleflight.Group
	repo     repository.SnapshotRepository
	log      logger.Logger
	cfg      CartRegistryConfig
	now      func() time.Time
}

func NewCartRegistry(repo repository.SnapshotRepository, log logger.Logger, cfg CartRegistryConfig) *CartRegistry {
	if cfg.StorageKey == "" {
		cfg.StorageKey = defaultStorageKey
	}
	return &CartRegistry{
		entries: make(map[string]*registryEntry),
		repo:    repo,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SnapshotKey is the storage key of a session's cart. The empty session uses
// the base key unchanged.
func SnapshotKey(base, sessionID string) string {
	if sessionID == "" {
		return base
	}
	return base + ":" + sessionID
}

// Get returns the session's store, creating and restoring it on first use.
// When the snapshot cannot be read the store is not kept, and Get returns
// ErrCartUnavailable so the next call tries again.
func (r *CartRegistry) Get(ctx context.Context, sessionID string) (*CartStore, error) {
	if store, ok := r.lookup(sessionID); ok {
		return store, nil
	}

	v, err, _ := r.restores.Do(sessionID, func() (interface{}, error) {
		if store, ok := r.lookup(sessionID); ok {
			return store, nil
		}
		return r.create(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CartStore), nil
}

func (r *CartRegistry) lookup(sessionID string) (*CartStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	entry.lastAccess = r.now()
	return entry.store, true
}

func (r *CartRegistry) create(ctx context.Context, sessionID string) (*CartStore, error) {
	key := SnapshotKey(r.cfg.StorageKey, sessionID)
	store := NewCartStore(r.repo, r.log, CartStoreConfig{
		Key:         key,
		SaveTimeout: r.cfg.SaveTimeout,
		LoadTimeout: r.cfg.LoadTimeout,
	})

	result := store.Restore(ctx)
	if result == RestoreFailed {
		r.reportRestore(key, result, r.Len())
		return nil, fmt.Errorf("%w: %s", ErrCartUnavailable, key)
	}
	for _, obs := range r.cfg.Observers {
		store.Subscribe(obs)
	}

	r.mu.Lock()
	r.entries[sessionID] = &registryEntry{store: store, lastAccess: r.now()}
	active := len(r.entries)
	r.mu.Unlock()

	r.log.Debugf("Cart store for %s created (restore: %s)", key, result)
	r.reportRestore(key, result, active)
	return store, nil
}

func (r *CartRegistry) reportRestore(key string, result RestoreResult, active int) {
	if r.cfg.OnRestore != nil {
		r.cfg.OnRestore(key, result, active)
	}
}

func (r *CartRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle drops stores not accessed within idle. Their snapshots stay in
// storage, so a later Get restores them. Returns the number evicted.
func (r *CartRegistry) EvictIdle(idle time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-idle)
	evicted := 0
	for sessionID, entry := range r.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(r.entries, sessionID)
			evicted++
		}
	}
	active := len(r.entries)
	r.mu.Unlock()

	if evicted > 0 && r.cfg.OnEvict != nil {
		r.cfg.OnEvict(evicted, active)
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (r *CartRegistry) RunEviction(ctx context.Context, interval, idle time.Duration) error {
	if interval <= 0 || idle <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.EvictIdle(idle); n > 0 {
				r.log.Infof("Evicted %d idle carts from memory", n)
			}
		}
	}
}
