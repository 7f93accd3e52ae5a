package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
)

func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, address, phone, balance, active, deactivated_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, c.Name, c.Email, c.Address, c.Phone, c.Balance.String(), c.Active, c.DeactivatedAt, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client with email %s: %w", c.Email, domain.ErrDuplicateResource)
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client %d: %w", id, domain.ErrClientNotFound)
		}
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]*domain.Client, error) {
	return s.queryClients(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY id`)
}

// SearchClients matches keyword as a literal substring, so LIKE wildcards in
// the keyword have no special meaning.
func (s *Store) SearchClients(ctx context.Context, keyword string) ([]*domain.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE strpos(lower(name), lower($1)) > 0
		   OR strpos(lower(email), lower($1)) > 0
		   OR strpos(lower(address), lower($1)) > 0
		   OR strpos(lower(phone), lower($1)) > 0
		ORDER BY id
	`, keyword)
}

func (s *Store) ClientsByBalance(ctx context.Context, min, max decimal.Decimal) ([]*domain.Client, error) {
	return s.queryClients(ctx, `
		SELECT `+clientColumns+` FROM clients
		WHERE balance BETWEEN $1::numeric AND $2::numeric
		ORDER BY id
	`, min.String(), max.String())
}

func (s *Store) queryClients(ctx context.Context, sql string, args ...any) ([]*domain.Client, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
