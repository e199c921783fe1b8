package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/domain/entity"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/repository"
)

const (
	defaultStorageKey  = "cart"
	defaultSaveTimeout = 2 * time.Second
	defaultLoadTimeout = 2 * time.Second
)

// ErrCartUnavailable is returned when a cart's snapshot could not be read
// and the cart must not be mutated until it has been.
var ErrCartUnavailable = errors.New("cart is temporarily unavailable")

type RestoreResult string

const (
	RestoreRestored RestoreResult = "restored"
	RestoreEmpty    RestoreResult = "empty"
	RestoreCorrupt  RestoreResult = "corrupt"
	RestoreFailed   RestoreResult = "error"
	RestoreSkipped  RestoreResult = "skipped"
)

// Event describes a cart mutation after it has been applied and persisted.
// PersistErr is set when the snapshot could not be saved; the mutation
// itself is kept either way. Seq increases by one per mutation of a store.
type Event struct {
	Key        string
	Seq        uint64
	Type       entity.CommandType
	Items      []entity.LineItem
	Total      float64
	Count      int
	PersistErr error
	OccurredAt time.Time
}

type Observer func(Event)

type CartStoreConfig struct {
	Key         string
	SaveTimeout time.Duration
	LoadTimeout time.Duration
}

// CartStore owns one cart. Mutations are serialized: each one saves a
// snapshot and notifies observers before the next begins.
type CartStore struct {
	// dispatchMu orders whole mutations, notification included. mu guards
	// the cart itself so observers can read it.
	dispatchMu  sync.Mutex
	mu          sync.RWMutex
	cart        entity.Cart
	seq         uint64
	restored    bool
	loadErr     error
	repo        repository.SnapshotRepository
	log         logger.Logger
	key         string
	saveTimeout time.Duration
	loadTimeout time.Duration

	obsMu     sync.Mutex
	observers []subscription
	nextObsID int
}

type subscription struct {
	id int
	fn Observer
}

func NewCartStore(repo repository.SnapshotRepository, log logger.Logger, cfg CartStoreConfig) *CartStore {
	key := cfg.Key
	if key == "" {
		key = defaultStorageKey
	}
	saveTimeout := cfg.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}
	loadTimeout := cfg.LoadTimeout
	if loadTimeout <= 0 {
		loadTimeout = defaultLoadTimeout
	}

	return &CartStore{
		cart:        entity.NewCart(),
		repo:        repo,
		log:         log.With("cart_key", key),
		key:         key,
		saveTimeout: saveTimeout,
		loadTimeout: loadTimeout,
	}
}

func (s *CartStore) Key() string {
	return s.key
}

// Restore rehydrates the cart from its snapshot. It succeeds at most once
// per store; a missing or corrupt snapshot leaves the cart empty. Any other
// load error leaves the store unrestored, and mutations fail with
// ErrCartUnavailable until a later Restore succeeds.
func (s *CartStore) Restore(ctx context.Context) RestoreResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restored {
		return RestoreSkipped
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
	defer cancel()

	items, err := s.repo.Load(loadCtx, s.key)
	switch {
	case err == nil:
		s.cart = entity.Apply(s.cart, entity.LoadCommand(items))
		s.log.Debugf("Cart restored with %d line items", len(s.cart.Items))
		s.markRestored()
		return RestoreRestored
	case errors.Is(err, repository.ErrNotFound):
		s.markRestored()
		return RestoreEmpty
	case errors.Is(err, repository.ErrCorruptSnapshot):
		s.log.Warnf("Discarding unreadable cart snapshot: %v", err)
		s.markRestored()
		return RestoreCorrupt
	default:
		s.log.Errorf("Failed to load cart snapshot: %v", err)
		s.loadErr = err
		return RestoreFailed
	}
}

func (s *CartStore) markRestored() {
	s.restored = true
	s.loadErr = nil
}

func (s *CartStore) AddItem(ctx context.Context, product *entity.Product, size string, quantity int) error {
	return s.Dispatch(ctx, entity.AddItemCommand(product, size, quantity))
}

func (s *CartStore) RemoveItem(ctx context.Context, productID, size string) {
	_ = s.Dispatch(ctx, entity.RemoveItemCommand(productID, size))
}

// UpdateQuantity sets the quantity of an existing line item. Quantities
// below one are stored as one; absent items are left alone.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID, size string, quantity int) {
	_ = s.Dispatch(ctx, entity.UpdateQuantityCommand(productID, size, quantity))
}

func (s *CartStore) Clear(ctx context.Context) {
	_ = s.Dispatch(ctx, entity.ClearCommand())
}

// Dispatch applies cmd, saves the resulting snapshot and notifies observers.
// Invalid commands and carts whose snapshot failed to load return an error
// and leave the cart untouched. Observers must not mutate the store.
func (s *CartStore) Dispatch(ctx context.Context, cmd entity.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	if !s.restored && s.loadErr != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrCartUnavailable, s.loadErr)
	}
	s.restored = true
	s.cart = entity.Apply(s.cart, cmd)
	s.seq++
	seq := s.seq
	snapshot := s.cart.Clone()
	persistErr := s.persist(ctx, snapshot.Items)
	s.mu.Unlock()

	s.notify(Event{
		Key:        s.key,
		Seq:        seq,
		Type:       cmd.Type,
		Items:      snapshot.Items,
		Total:      snapshot.Total(),
		Count:      snapshot.Count(),
		PersistErr: persistErr,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// persist is best-effort: it outlives a cancelled request and its error is
// only logged and reported to observers.
func (s *CartStore) persist(ctx context.Context, items []entity.LineItem) error {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if err := s.repo.Save(saveCtx, s.key, items); err != nil {
		s.log.Warnf("Failed to persist cart snapshot: %v", err)
		return err
	}
	return nil
}

// Items returns a copy of the line items in insertion order.
func (s *CartStore) Items() []entity.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone().Items
}

func (s *CartStore) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Total()
}

func (s *CartStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

// Subscribe registers fn for mutation events and returns a func that
// removes it. Observers run on the mutating goroutine after the cart lock
// is released, in mutation order.
func (s *CartStore) Subscribe(fn Observer) (unsubscribe func()) {
	s.obsMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, subscription{id: id, fn: fn})
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()
			for i, sub := range s.observers {
				if sub.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *CartStore) notify(event Event) {
	s.obsMu.Lock()
	subs := make([]subscription, len(s.observers))
	copy(subs, s.observers)
	s.obsMu.Unlock()

	for _, sub := range subs {
		sub.fn(event)
	}
}
