// Package store holds the persistence contracts for clients and the trade
// ledger, plus an in-memory implementation.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// Tx is one unit of work. Clients obtained through ClientForUpdate stay
// exclusively held until the enclosing WithinTx call returns; writes become
// visible to other callers only when the unit of work commits.
type Tx interface {
	// ClientForUpdate blocks until the client record is exclusively held by
	// this unit of work, then returns a working copy. It returns
	// domain.ErrClientNotFound if the client does not exist.
	ClientForUpdate(ctx context.Context, id int64) (*domain.Client, error)

	// SaveClient stages the client for commit. The client must have been
	// acquired through ClientForUpdate in the same unit of work.
	SaveClient(ctx context.Context, c *domain.Client) error

	// FindTrade returns the committed trade with the given key, or nil when
	// there is none.
	FindTrade(ctx context.Context, key domain.TradeKey) (*domain.Trade, error)

	// AppendTrade stages a new ledger entry. The trade's ID is assigned when
	// the unit of work commits. A key collision, whether detected here or at
	// commit, is reported as domain.ErrDuplicateTrade.
	AppendTrade(ctx context.Context, t *domain.Trade) error
}

// Store is the balance store and trade ledger.
type Store interface {
	// WithinTx runs fn in a unit of work. The unit commits if fn returns nil
	// and rolls back otherwise; every exclusive hold is released either way.
	WithinTx(ctx context.Context, fn func(Tx) error) error

	// CreateClient assigns the client an ID and persists it. It returns
	// domain.ErrDuplicateResource if the email is already taken.
	CreateClient(ctx context.Context, c *domain.Client) error
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	ListClients(ctx context.Context) ([]*domain.Client, error)
	SearchClients(ctx context.Context, keyword string) ([]*domain.Client, error)
	ClientsByBalance(ctx context.Context, min, max decimal.Decimal) ([]*domain.Client, error)

	GetTrade(ctx context.Context, id int64) (*domain.Trade, error)
	// Trade listings are ordered newest first.
	ListTrades(ctx context.Context) ([]*domain.Trade, error)
	TradesByClient(ctx context.Context, clientID int64) ([]*domain.Trade, error)
	TradesBySupplier(ctx context.Context, supplierID int64) ([]*domain.Trade, error)
	TradesByConsumer(ctx context.Context, consumerID int64) ([]*domain.Trade, error)
}
