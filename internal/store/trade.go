package store

import (
	"context"
	"fmt"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// GetTrade retrieves a committed trade by ID. It returns
// domain.ErrTradeNotFound if the trade does not exist.
func (m *Memory) GetTrade(_ context.Context, id int64) (*domain.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
	}
	cp := *t
	return &cp, nil
}

// ListTrades returns the whole ledger, newest first.
func (m *Memory) ListTrades(_ context.Context) ([]*domain.Trade, error) {
	return m.walkTrades(func(*domain.Trade) bool { return true }), nil
}

// TradesByClient returns trades the client supplied or consumed, newest first.
func (m *Memory) TradesByClient(_ context.Context, clientID int64) ([]*domain.Trade, error) {
	return m.walkTrades(func(t *domain.Trade) bool { return t.Involves(clientID) }), nil
}

// TradesBySupplier returns trades the client supplied, newest first.
func (m *Memory) TradesBySupplier(_ context.Context, supplierID int64) ([]*domain.Trade, error) {
	return m.walkTrades(func(t *domain.Trade) bool { return t.SupplierID == supplierID }), nil
}

// TradesByConsumer returns trades the client consumed, newest first.
func (m *Memory) TradesByConsumer(_ context.Context, consumerID int64) ([]*domain.Trade, error) {
	return m.walkTrades(func(t *domain.Trade) bool { return t.ConsumerID == consumerID }), nil
}

func (m *Memory) walkTrades(keep func(*domain.Trade) bool) []*domain.Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Copies, so callers cannot mutate ledger entries.
	result := make([]*domain.Trade, 0)
	m.timeline.Ascend(func(t *domain.Trade) bool {
		if keep(t) {
			cp := *t
			result = append(result, &cp)
		}
		return true
	})
	return result
}
