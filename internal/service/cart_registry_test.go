package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/adapter/memory"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySnapshotRepository fails the first loadFailures loads and honours
// context cancellation the way a network driver does.
type flakySnapshotRepository struct {
	*memory.SnapshotRepository

	mu           sync.Mutex
	loadFailures int
	loads        int
}

func (f *flakySnapshotRepository) Load(ctx context.Context, key string) ([]entity.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.loads++
	fail := f.loadFailures > 0
	if fail {
		f.loadFailures--
	}
	f.mu.Unlock()

	if fail {
		return nil, errors.New("i/o timeout")
	}
	return f.SnapshotRepository.Load(ctx, key)
}

func (f *flakySnapshotRepository) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func mustGet(t *testing.T, reg *CartRegistry, ctx context.Context, sessionID string) *CartStore {
	t.Helper()
	store, err := reg.Get(ctx, sessionID)
	require.NoError(t, err)
	return store
}

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "cart", SnapshotKey("cart", ""))
	assert.Equal(t, "cart:s1", SnapshotKey("cart", "s1"))
}

func TestCartRegistry_OneStorePerSession(t *testing.T) {
	reg := NewCartRegistry(memory.NewSnapshotRepository(), logger.NewNop(), CartRegistryConfig{})
	ctx := context.Background()

	a1 := mustGet(t, reg, ctx, "a")
	a2 := mustGet(t, reg, ctx, "a")
	b := mustGet(t, reg, ctx, "b")

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.Equal(t, "cart:a", a1.Key())
	assert.Equal(t, "cart", mustGet(t, reg, ctx, "").Key())
	assert.Equal(t, 3, reg.Len())
}

func TestCartRegistry_RestoresAndSubscribes(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "basket:s1", []entity.LineItem{{Product: kurta(100), Size: "M", Quantity: 2}}))

	var restores []RestoreResult
	var actives []int
	var events []Event
	reg := NewCartRegistry(repo, logger.NewNop(), CartRegistryConfig{
		StorageKey: "basket",
		Observers:  []Observer{func(e Event) { events = append(events, e) }},
		OnRestore: func(_ string, r RestoreResult, active int) {
			restores = append(restores, r)
			actives = append(actives, active)
		},
	})

	store := mustGet(t, reg, ctx, "s1")
	assert.Equal(t, 2, store.Count())

	store.Clear(ctx)
	mustGet(t, reg, ctx, "s1")
	mustGet(t, reg, ctx, "s2")

	assert.Equal(t, []RestoreResult{RestoreRestored, RestoreEmpty}, restores)
	assert.Equal(t, []int{1, 2}, actives)
	require.Len(t, events, 1)
	assert.Equal(t, entity.CommandClear, events[0].Type)
	assert.Equal(t, "basket:s1", events[0].Key)
}

func TestCartRegistry_LoadFailureKeepsSavedCart(t *testing.T) {
	repo := &flakySnapshotRepository{SnapshotRepository: memory.NewSnapshotRepository(), loadFailures: 1}
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, "cart:s1", []entity.LineItem{{Product: kurta(100), Size: "M", Quantity: 4}}))

	var restores []RestoreResult
	reg := NewCartRegistry(repo, logger.NewNop(), CartRegistryConfig{
		OnRestore: func(_ string, r RestoreResult, _ int) { restores = append(restores, r) },
	})

	store, err := reg.Get(ctx, "s1")
	require.ErrorIs(t, err, ErrCartUnavailable)
	assert.Nil(t, store)
	assert.Equal(t, 0, reg.Len(), "failed store is not kept")

	store = mustGet(t, reg, ctx, "s1")
	assert.Equal(t, 4, store.Count())
	require.NoError(t, store.AddItem(ctx, saree(50), "Free", 1))

	saved, err := repo.SnapshotRepository.Load(ctx, "cart:s1")
	require.NoError(t, err)
	assert.Equal(t, []itemKey{
		{ID: "kurta-1", Size: "M", Quantity: 4},
		{ID: "saree-1", Size: "Free", Quantity: 1},
	}, keysOf(saved))
	assert.Equal(t, []RestoreResult{RestoreFailed, RestoreRestored}, restores)
}

func TestCartRegistry_RestoreIgnoresCallerCancellation(t *testing.T) {
	repo := &flakySnapshotRepository{SnapshotRepository: memory.NewSnapshotRepository()}
	require.NoError(t, repo.Save(context.Background(), "cart:s1", []entity.LineItem{{Product: kurta(100), Size: "M", Quantity: 4}}))
	reg := NewCartRegistry(repo, logger.NewNop(), CartRegistryConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := mustGet(t, reg, ctx, "s1")

	assert.Equal(t, 4, store.Count())
}

func TestCartRegistry_ConcurrentFirstAccessRestoresOnce(t *testing.T) {
	repo := &flakySnapshotRepository{SnapshotRepository: memory.NewSnapshotRepository()}
	reg := NewCartRegistry(repo, logger.NewNop(), CartRegistryConfig{})

	const callers = 20
	stores := make([]*CartStore, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store, err := reg.Get(context.Background(), "s1")
			assert.NoError(t, err)
			stores[i] = store
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, repo.loadCount())
	for _, store := range stores {
		assert.Same(t, stores[0], store)
	}
}

func TestCartRegistry_EvictIdle(t *testing.T) {
	repo := memory.NewSnapshotRepository()
	var evictions [][2]int
	reg := NewCartRegistry(repo, logger.NewNop(), CartRegistryConfig{
		OnEvict: func(evicted, active int) { evictions = append(evictions, [2]int{evicted, active}) },
	})
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	old := mustGet(t, reg, ctx, "old")
	require.NoError(t, old.AddItem(ctx, kurta(100), "M", 2))

	now = now.Add(time.Hour)
	mustGet(t, reg, ctx, "fresh")

	assert.Equal(t, 1, reg.EvictIdle(30*time.Minute))
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 0, reg.EvictIdle(30*time.Minute))
	assert.Equal(t, [][2]int{{1, 1}}, evictions, "hook runs only when something was evicted")

	revived := mustGet(t, reg, ctx, "old")
	assert.NotSame(t, old, revived)
	assert.Equal(t, 2, revived.Count(), "evicted cart is restored from its snapshot")
}

func TestCartRegistry_RunEvictionStopsOnCancel(t *testing.T) {
	reg := NewCartRegistry(memory.NewSnapshotRepository(), logger.NewNop(), CartRegistryConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- reg.RunEviction(ctx, time.Millisecond, time.Hour) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunEviction did not stop")
	}
}
