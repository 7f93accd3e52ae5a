// Package postgres implements the balance store and trade ledger on
// PostgreSQL. Exclusive holds are row locks taken with SELECT ... FOR
// UPDATE, released when the transaction commits or rolls back.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/store"
)

// Store is the PostgreSQL Store.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Open creates a pool for dsn. The caller owns the returned pool.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	return pool, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithinTx runs fn in a database transaction. See store.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			// The request context may already be done; rollback must still run.
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(&pgTx{tx: tx, held: make(map[int64]bool)}); err != nil {
		return err
	}
	// Locks are held by now; a caller deadline must not abandon the commit.
	if err := tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("commit: %w", mapUniqueViolation(err))
	}
	committed = true
	return nil
}

type pgTx struct {
	tx   pgx.Tx
	held map[int64]bool
}

func (t *pgTx) ClientForUpdate(ctx context.Context, id int64) (*domain.Client, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 FOR UPDATE`, id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client %d: %w", id, domain.ErrClientNotFound)
		}
		return nil, fmt.Errorf("lock client %d: %w", id, err)
	}
	t.held[id] = true
	return c, nil
}

func (t *pgTx) SaveClient(ctx context.Context, c *domain.Client) error {
	if !t.held[c.ID] {
		return fmt.Errorf("save client %d: not held by this unit of work", c.ID)
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE clients
		SET name = $1, email = $2, address = $3, phone = $4, balance = $5,
		    active = $6, deactivated_at = $7, updated_at = $8
		WHERE id = $9
	`, c.Name, c.Email, c.Address, c.Phone, c.Balance.String(), c.Active, c.DeactivatedAt, c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client with email %s: %w", c.Email, domain.ErrDuplicateResource)
		}
		return fmt.Errorf("save client %d: %w", c.ID, err)
	}
	return nil
}

func (t *pgTx) FindTrade(ctx context.Context, key domain.TradeKey) (*domain.Trade, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades
		WHERE label = $1 AND supplier_id = $2 AND consumer_id = $3`,
		key.Label, key.SupplierID, key.ConsumerID)
	tr, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return tr, err
}

func (t *pgTx) AppendTrade(ctx context.Context, tr *domain.Trade) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO trades (label, supplier_id, consumer_id, amount, created_at, processing_started_at, processing_ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, tr.Label, tr.SupplierID, tr.ConsumerID, tr.Amount.String(), tr.CreatedAt, tr.ProcessingStartedAt, tr.ProcessingEndedAt).Scan(&tr.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTrade
		}
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

const clientColumns = `id, name, email, address, phone, balance::text, active, deactivated_at, created_at, updated_at`

const tradeColumns = `id, label, supplier_id, consumer_id, amount::text, created_at, processing_started_at, processing_ended_at`

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c       domain.Client
		balance string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Address, &c.Phone, &balance,
		&c.Active, &c.DeactivatedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if c.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("parse balance of client %d: %w", c.ID, err)
	}
	return &c, nil
}

func scanTrade(row pgx.Row) (*domain.Trade, error) {
	var (
		t      domain.Trade
		amount string
	)
	if err := row.Scan(&t.ID, &t.Label, &t.SupplierID, &t.ConsumerID, &amount,
		&t.CreatedAt, &t.ProcessingStartedAt, &t.ProcessingEndedAt); err != nil {
		return nil, err
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount of trade %d: %w", t.ID, err)
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// mapUniqueViolation translates a unique violation surfacing at commit.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	if pgErr.ConstraintName == "trades_key_unique" {
		return domain.ErrDuplicateTrade
	}
	return domain.ErrDuplicateResource
}
