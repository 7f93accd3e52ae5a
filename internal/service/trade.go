package service

import (
	"context"
	"time"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/engine"
	"github.com/efreitasn/orderdesk/internal/store"
)

// TradeService submits trades through the admission engine and serves the
// ledger's read side.
type TradeService struct {
	admitter *engine.Admitter
	store    store.Store
	metrics  *Metrics
}

// NewTradeService creates a TradeService. Admission outcomes are logged by
// the admitter itself; metrics may be nil.
func NewTradeService(admitter *engine.Admitter, s store.Store, metrics *Metrics) *TradeService {
	return &TradeService{
		admitter: admitter,
		store:    s,
		metrics:  metrics,
	}
}

// Submit books one trade. The returned settlement carries the supplier and
// consumer as they were at commit.
func (s *TradeService) Submit(ctx context.Context, req engine.TradeRequest) (*domain.Settlement, error) {
	start := time.Now()
	settlement, err := s.admitter.Admit(ctx, req)
	s.metrics.observeAdmission(err, time.Since(start).Seconds())
	return settlement, err
}

// Get returns a committed trade.
func (s *TradeService) Get(ctx context.Context, id int64) (*domain.Trade, error) {
	return s.store.GetTrade(ctx, id)
}

// List returns the whole ledger, newest first.
func (s *TradeService) List(ctx context.Context) ([]*domain.Trade, error) {
	return s.store.ListTrades(ctx)
}

// ListByClient returns trades the client took part in on either side.
func (s *TradeService) ListByClient(ctx context.Context, clientID int64) ([]*domain.Trade, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.TradesByClient(ctx, clientID)
}

// ListSupplied returns trades the client supplied.
func (s *TradeService) ListSupplied(ctx context.Context, clientID int64) ([]*domain.Trade, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.TradesBySupplier(ctx, clientID)
}

// ListConsumed returns trades the client consumed.
func (s *TradeService) ListConsumed(ctx context.Context, clientID int64) ([]*domain.Trade, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.store.TradesByConsumer(ctx, clientID)
}

func (s *TradeService) requireClient(ctx context.Context, id int64) error {
	_, err := s.store.GetClient(ctx, id)
	return err
}
