package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// Memory is a thread-safe in-memory Store. Client records are held through
// KeyLocks for the duration of a unit of work; staged writes are applied in
// one step under the store's write lock at commit, so readers never observe
// a half-applied unit of work.
type Memory struct {
	locks *KeyLocks
	now   func() time.Time

	mu           sync.RWMutex
	clients      map[int64]*domain.Client
	emails       map[string]int64 // normalized email → client id
	nextClientID int64

	trades      map[int64]*domain.Trade
	tradeKeys   map[domain.TradeKey]int64 // business key → trade id
	timeline    *btree.BTreeG[*domain.Trade]
	nextTradeID int64
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	const degree = 32
	return &Memory{
		locks:     NewKeyLocks(),
		now:       time.Now,
		clients:   make(map[int64]*domain.Client),
		emails:    make(map[string]int64),
		trades:    make(map[int64]*domain.Trade),
		tradeKeys: make(map[domain.TradeKey]int64),
		timeline:  btree.NewG[*domain.Trade](degree, newestFirst),
	}
}

// newestFirst orders trades by created_at descending, then id descending,
// so Ascend walks the ledger from the most recent entry.
func newestFirst(a, b *domain.Trade) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// WithinTx runs fn in a unit of work. See Store.
func (m *Memory) WithinTx(ctx context.Context, fn func(Tx) error) error {
	tx := &memoryTx{
		store:    m,
		releases: make(map[int64]func()),
		working:  make(map[int64]*domain.Client),
		staged:   make(map[int64]*domain.Client),
	}
	defer tx.releaseAll()

	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

// commit applies the staged writes. Uniqueness is re-checked under the write
// lock before anything is applied.
func (m *Memory) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tx.trades {
		if _, exists := m.tradeKeys[t.Key()]; exists {
			return domain.ErrDuplicateTrade
		}
	}
	for id, c := range tx.staged {
		if owner, ok := m.emails[domain.NormalizeEmail(c.Email)]; ok && owner != id {
			return domain.ErrDuplicateResource
		}
	}

	for id, c := range tx.staged {
		if prev, ok := m.clients[id]; ok {
			delete(m.emails, domain.NormalizeEmail(prev.Email))
		}
		m.clients[id] = c.Clone()
		m.emails[domain.NormalizeEmail(c.Email)] = id
	}
	for _, t := range tx.trades {
		m.nextTradeID++
		t.ID = m.nextTradeID
		if t.CreatedAt.IsZero() {
			t.CreatedAt = m.now()
		}
		stored := *t
		m.trades[t.ID] = &stored
		m.tradeKeys[t.Key()] = t.ID
		m.timeline.ReplaceOrInsert(&stored)
	}
	return nil
}

// memoryTx is the Memory implementation of Tx. It is confined to the
// goroutine running the WithinTx callback.
type memoryTx struct {
	store    *Memory
	releases map[int64]func()
	working  map[int64]*domain.Client
	staged   map[int64]*domain.Client
	trades   []*domain.Trade
}

func (tx *memoryTx) ClientForUpdate(ctx context.Context, id int64) (*domain.Client, error) {
	if c, ok := tx.working[id]; ok {
		return c, nil
	}

	release, err := tx.store.locks.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock client %d: %w", id, err)
	}
	tx.releases[id] = release

	tx.store.mu.RLock()
	c, ok := tx.store.clients[id]
	if ok {
		c = c.Clone()
	}
	tx.store.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, domain.ErrClientNotFound)
	}
	tx.working[id] = c
	return c, nil
}

func (tx *memoryTx) SaveClient(_ context.Context, c *domain.Client) error {
	if _, held := tx.releases[c.ID]; !held {
		return fmt.Errorf("save client %d: not held by this unit of work", c.ID)
	}
	tx.staged[c.ID] = c.Clone()
	return nil
}

func (tx *memoryTx) FindTrade(_ context.Context, key domain.TradeKey) (*domain.Trade, error) {
	for _, t := range tx.trades {
		if t.Key() == key {
			cp := *t
			return &cp, nil
		}
	}

	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	id, ok := tx.store.tradeKeys[key]
	if !ok {
		return nil, nil
	}
	cp := *tx.store.trades[id]
	return &cp, nil
}

func (tx *memoryTx) AppendTrade(ctx context.Context, t *domain.Trade) error {
	existing, err := tx.FindTrade(ctx, t.Key())
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrDuplicateTrade
	}
	tx.trades = append(tx.trades, t)
	return nil
}

func (tx *memoryTx) releaseAll() {
	for _, release := range tx.releases {
		release()
	}
}
