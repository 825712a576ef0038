package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-leasegate/internal/apperr"
	"go-leasegate/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore keeps everything in process. Row locks are real mutexes held
// for the duration of an Atomic unit, so it honours the same lock discipline
// as Postgres. Used for local runs and tests.
type MemoryStore struct {
	mu           sync.Mutex
	rowLocks     map[string]*sync.Mutex
	nextID       uint
	transactions map[string]models.Transaction
	assets       map[string]models.Asset
	resources    map[string]models.Resource
	events       []models.AssetEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rowLocks:     make(map[string]*sync.Mutex),
		transactions: make(map[string]models.Transaction),
		assets:       make(map[string]models.Asset),
		resources:    make(map[string]models.Resource),
	}
}

// PutAsset inserts or replaces an asset.
func (s *MemoryStore) PutAsset(a models.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
}

// PutResource inserts or replaces a room or vehicle.
func (s *MemoryStore) PutResource(r models.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[r.Ref.Key()] = r
}

// Events returns a copy of the recorded control events.
func (s *MemoryStore) Events() []models.AssetEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AssetEvent(nil), s.events...)
}

func (s *MemoryStore) rowLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	return m
}

func (s *MemoryStore) CreateTransaction(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transactions[t.TransactionRef]; exists {
		return fmt.Errorf("transaction %s already exists: %w", t.TransactionRef, apperr.ErrValidation)
	}
	s.nextID++
	now := time.Now()
	t.ID = s.nextID
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	t.CreatedAt, t.UpdatedAt = now, now
	s.transactions[t.TransactionRef] = *t
	return nil
}

func (s *MemoryStore) FindTransaction(_ context.Context, ref string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[ref]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", ref, apperr.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) FindAsset(_ context.Context, id string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asset(id)
}

func (s *MemoryStore) asset(id string) (*models.Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, apperr.ErrNotFound)
	}
	return &a, nil
}

func (s *MemoryStore) FindAssetByNumber(_ context.Context, number string) (*models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assets {
		if a.AssetNumber == number {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("asset number %s: %w", number, apperr.ErrNotFound)
}

func (s *MemoryStore) FindResource(_ context.Context, ref models.ResourceRef) (*models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resource(ref)
}

func (s *MemoryStore) resource(ref models.ResourceRef) (*models.Resource, error) {
	r, ok := s.resources[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", ref, apperr.ErrNotFound)
	}
	return &r, nil
}

func (s *MemoryStore) ExpiredLeases(_ context.Context, cutoff time.Time, limit int) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Resource
	for _, r := range s.resources {
		if r.Lease.Status == models.LeaseActive && r.Lease.ExpiresAt != nil && !r.Lease.ExpiresAt.After(cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Lease.ExpiresAt.Before(*out[j].Lease.ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordEvent(_ context.Context, e *models.AssetEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	s.events = append(s.events, *e)
	return nil
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{s: s, held: make(map[string]*sync.Mutex)}
	defer tx.release()
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memoryTx struct {
	s     *MemoryStore
	held  map[string]*sync.Mutex
	order []string
	undo  []func()
}

func (t *memoryTx) lock(key string) {
	if _, ok := t.held[key]; ok {
		return
	}
	m := t.s.rowLock(key)
	m.Lock()
	t.held[key] = m
	t.order = append(t.order, key)
}

func (t *memoryTx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
}

func (t *memoryTx) rollback() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *memoryTx) LockTransaction(ref string) (*models.Transaction, error) {
	t.lock("tx:" + ref)
	return t.s.FindTransaction(context.Background(), ref)
}

func (t *memoryTx) SaveTransaction(tr *models.Transaction) error {
	t.lock("tx:" + tr.TransactionRef)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	prev, ok := t.s.transactions[tr.TransactionRef]
	if !ok {
		return fmt.Errorf("transaction %s: %w", tr.TransactionRef, apperr.ErrNotFound)
	}
	t.undo = append(t.undo, func() { t.s.transactions[prev.TransactionRef] = prev })
	tr.UpdatedAt = time.Now()
	t.s.transactions[tr.TransactionRef] = *tr
	return nil
}

func (t *memoryTx) FindAsset(id string) (*models.Asset, error) {
	return t.s.FindAsset(context.Background(), id)
}

func (t *memoryTx) AddRevenue(assetID string, amount decimal.Decimal) error {
	t.lock("asset:" + assetID)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	a, err := t.s.asset(assetID)
	if err != nil {
		return err
	}
	prev := *a
	t.undo = append(t.undo, func() { t.s.assets[prev.ID] = prev })
	a.TotalRevenue = a.TotalRevenue.Add(amount)
	t.s.assets[assetID] = *a
	return nil
}

func (t *memoryTx) LockResource(ref models.ResourceRef) (*models.Resource, error) {
	t.lock("res:" + ref.Key())
	return t.s.FindResource(context.Background(), ref)
}

func (t *memoryTx) SaveLease(ref models.ResourceRef, lease models.Lease) error {
	t.lock("res:" + ref.Key())
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, err := t.s.resource(ref)
	if err != nil {
		return err
	}
	prev := *r
	t.undo = append(t.undo, func() { t.s.resources[prev.Ref.Key()] = prev })
	r.Lease = lease
	t.s.resources[ref.Key()] = *r
	return nil
}
