package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/store"
)

const maxLabelLength = 255

// TradeRequest is the input for a single admission.
type TradeRequest struct {
	Label      string
	SupplierID int64
	ConsumerID int64
	Amount     decimal.Decimal
}

// Validate checks the request shape. It never touches the store.
func (r TradeRequest) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return domain.Invalidf("label is required")
	}
	if len(r.Label) > maxLabelLength {
		return domain.Invalidf("label must be at most %d bytes", maxLabelLength)
	}
	if r.SupplierID <= 0 || r.ConsumerID <= 0 {
		return domain.Invalidf("supplier_id and consumer_id are required")
	}
	if r.SupplierID == r.ConsumerID {
		return domain.Invalidf("supplier and consumer must be different clients")
	}
	if !r.Amount.IsPositive() {
		return domain.Invalidf("amount must be positive, got %s", r.Amount)
	}
	return nil
}

// Key returns the business key the request would commit under.
func (r TradeRequest) Key() domain.TradeKey {
	return domain.TradeKey{Label: r.Label, SupplierID: r.SupplierID, ConsumerID: r.ConsumerID}
}

// Admitter books trades. Each admission is one unit of work against the
// store: both participants are held in OrderPair order, checked, mutated
// and released together with the new ledger entry.
type Admitter struct {
	store    store.Store
	floor    decimal.Decimal
	latency  Latency
	now      func() time.Time
	logger   *slog.Logger
	lifetime context.Context
}

// Option configures an Admitter.
type Option func(*Admitter)

// WithFloor sets the lowest balance a consumer may be left with.
func WithFloor(floor decimal.Decimal) Option {
	return func(a *Admitter) { a.floor = floor }
}

// WithLatency sets the settlement latency strategy.
func WithLatency(l Latency) Option {
	return func(a *Admitter) { a.latency = l }
}

// WithClock overrides the time source used for trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Admitter) { a.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Admitter) { a.logger = l }
}

// WithLifetime ties in-flight settlements to ctx. The caller's context only
// bounds lock acquisition; once both clients are held the settlement runs to
// commit unless ctx is done, in which case it rolls back.
func WithLifetime(ctx context.Context) Option {
	return func(a *Admitter) { a.lifetime = ctx }
}

// NewAdmitter creates an Admitter over s with the default floor and no
// settlement latency.
func NewAdmitter(s store.Store, opts ...Option) *Admitter {
	a := &Admitter{
		store:    s,
		floor:    domain.DefaultProfitFloor,
		latency:  NoLatency(),
		now:      time.Now,
		logger:   slog.Default(),
		lifetime: context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Floor returns the configured profit floor.
func (a *Admitter) Floor() decimal.Decimal {
	return a.floor
}

// Admit validates, locks, checks and settles one trade. On success exactly
// one ledger entry and two balance writes are committed; on any error
// nothing is.
//
// Rejections are reported as:
//   - *domain.ValidationError for malformed requests,
//   - domain.ErrClientNotFound when either client is unknown,
//   - *domain.InactiveParticipantError when either client is deactivated,
//   - domain.ErrDuplicateTrade when the (label, supplier, consumer) key exists,
//   - *domain.ProfitLimitError when the consumer would end below the floor.
//
// ctx bounds the wait for both locks. After that the unit of work is only
// interrupted by the admitter's lifetime context. Admit never retries.
func (a *Admitter) Admit(ctx context.Context, req TradeRequest) (*domain.Settlement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	first, second := OrderPair(req.SupplierID, req.ConsumerID)

	var settlement *domain.Settlement
	err := a.store.WithinTx(ctx, func(tx store.Tx) error {
		held := make(map[int64]*domain.Client, 2)
		for _, id := range [2]int64{first, second} {
			c, err := tx.ClientForUpdate(ctx, id)
			if err != nil {
				return err
			}
			held[id] = c
		}
		supplier, consumer := held[req.SupplierID], held[req.ConsumerID]

		work, stop := a.settlementContext(ctx)
		defer stop()

		if !supplier.Active {
			return &domain.InactiveParticipantError{Role: domain.RoleSupplier, ClientID: supplier.ID}
		}
		if !consumer.Active {
			return &domain.InactiveParticipantError{Role: domain.RoleConsumer, ClientID: consumer.ID}
		}

		existing, err := tx.FindTrade(work, req.Key())
		if err != nil {
			return fmt.Errorf("find trade: %w", err)
		}
		if existing != nil {
			return domain.ErrDuplicateTrade
		}

		resulting := consumer.Balance.Sub(req.Amount)
		if resulting.LessThan(a.floor) {
			return &domain.ProfitLimitError{
				ConsumerID: consumer.ID,
				Balance:    consumer.Balance,
				Amount:     req.Amount,
				Resulting:  resulting,
				Floor:      a.floor,
			}
		}

		started := a.now()
		supplier.Balance = supplier.Balance.Add(req.Amount)
		supplier.UpdatedAt = started
		consumer.Balance = resulting
		consumer.UpdatedAt = started
		if err := tx.SaveClient(work, supplier); err != nil {
			return fmt.Errorf("save supplier: %w", err)
		}
		if err := tx.SaveClient(work, consumer); err != nil {
			return fmt.Errorf("save consumer: %w", err)
		}

		delay := a.latency.Next()
		a.logger.Debug("settling trade",
			slog.String("label", req.Label),
			slog.Duration("latency", delay),
		)
		if err := wait(work, delay); err != nil {
			return fmt.Errorf("settlement interrupted: %w", err)
		}

		ended := a.now()
		trade := &domain.Trade{
			Label:               req.Label,
			SupplierID:          req.SupplierID,
			ConsumerID:          req.ConsumerID,
			Amount:              req.Amount,
			CreatedAt:           ended,
			ProcessingStartedAt: started,
			ProcessingEndedAt:   ended,
		}
		if err := tx.AppendTrade(work, trade); err != nil {
			return err
		}

		settlement = &domain.Settlement{
			Trade:    trade,
			Supplier: supplier.Clone(),
			Consumer: consumer.Clone(),
		}
		return nil
	})
	if err != nil {
		a.logRejection(req, err)
		return nil, err
	}

	a.logger.Info("trade committed",
		slog.Int64("trade_id", settlement.Trade.ID),
		slog.String("label", req.Label),
		slog.Int64("supplier_id", req.SupplierID),
		slog.Int64("consumer_id", req.ConsumerID),
		slog.String("amount", req.Amount.String()),
		slog.String("consumer_balance", settlement.Consumer.Balance.String()),
	)
	return settlement, nil
}

// settlementContext detaches ctx from the caller's deadline and cancellation
// and cancels it when the admitter's lifetime ends instead.
func (a *Admitter) settlementContext(ctx context.Context) (context.Context, context.CancelFunc) {
	work, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(a.lifetime, cancel)
	return work, func() {
		stop()
		cancel()
	}
}

func (a *Admitter) logRejection(req TradeRequest, err error) {
	attrs := []any{
		slog.String("label", req.Label),
		slog.Int64("supplier_id", req.SupplierID),
		slog.Int64("consumer_id", req.ConsumerID),
		slog.String("amount", req.Amount.String()),
		slog.String("reason", err.Error()),
	}

	var limit *domain.ProfitLimitError
	switch {
	case errors.As(err, &limit):
		attrs = append(attrs,
			slog.String("current_balance", limit.Balance.String()),
			slog.String("resulting_balance", limit.Resulting.String()),
		)
		a.logger.Warn("trade rejected: profit limit", attrs...)
	case errors.Is(err, domain.ErrDuplicateTrade),
		errors.Is(err, domain.ErrInactiveParticipant),
		errors.Is(err, domain.ErrClientNotFound):
		a.logger.Warn("trade rejected", attrs...)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.logger.Warn("trade abandoned", attrs...)
	default:
		a.logger.Error("trade failed", attrs...)
	}
}
