package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/efreitasn/orderdesk/internal/domain"
)

const newestFirst = ` ORDER BY created_at DESC, id DESC`

func (s *Store) GetTrade(ctx context.Context, id int64) (*domain.Trade, error) {
	t, err := scanTrade(s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("trade %d: %w", id, domain.ErrTradeNotFound)
		}
		return nil, fmt.Errorf("get trade %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) ListTrades(ctx context.Context) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades`+newestFirst)
}

func (s *Store) TradesByClient(ctx context.Context, clientID int64) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades
		WHERE supplier_id = $1 OR consumer_id = $1`+newestFirst, clientID)
}

func (s *Store) TradesBySupplier(ctx context.Context, supplierID int64) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades WHERE supplier_id = $1`+newestFirst, supplierID)
}

func (s *Store) TradesByConsumer(ctx context.Context, consumerID int64) ([]*domain.Trade, error) {
	return s.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades WHERE consumer_id = $1`+newestFirst, consumerID)
}

func (s *Store) queryTrades(ctx context.Context, sql string, args ...any) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Trade, 0)
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
