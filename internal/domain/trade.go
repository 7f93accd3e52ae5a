package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeKey is the business key of a trade. At most one committed trade
// exists per key; the key is directional, so A→B and B→A differ.
type TradeKey struct {
	Label      string
	SupplierID int64
	ConsumerID int64
}

// Trade is a committed, immutable transfer of Amount from the consumer's
// balance to the supplier's.
type Trade struct {
	ID                  int64
	Label               string
	SupplierID          int64
	ConsumerID          int64
	Amount              decimal.Decimal
	CreatedAt           time.Time
	ProcessingStartedAt time.Time
	ProcessingEndedAt   time.Time
}

// Key returns the trade's business key.
func (t *Trade) Key() TradeKey {
	return TradeKey{Label: t.Label, SupplierID: t.SupplierID, ConsumerID: t.ConsumerID}
}

// Involves reports whether the client is either side of the trade.
func (t *Trade) Involves(clientID int64) bool {
	return t.SupplierID == clientID || t.ConsumerID == clientID
}

// Settlement is the result of an admitted trade: the ledger entry plus
// snapshots of both participants as committed.
type Settlement struct {
	Trade    *Trade
	Supplier *Client
	Consumer *Client
}
