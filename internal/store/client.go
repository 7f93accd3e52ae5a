package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
)

// CreateClient adds a client to the store and assigns its ID. It returns
// domain.ErrDuplicateResource if another client already uses the email.
func (m *Memory) CreateClient(_ context.Context, c *domain.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := domain.NormalizeEmail(c.Email)
	if _, exists := m.emails[email]; exists {
		return fmt.Errorf("client with email %s: %w", c.Email, domain.ErrDuplicateResource)
	}

	m.nextClientID++
	c.ID = m.nextClientID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	m.clients[c.ID] = c.Clone()
	m.emails[email] = c.ID
	return nil
}

// GetClient returns a snapshot of the last committed state of a client. It
// returns domain.ErrClientNotFound if the client does not exist.
func (m *Memory) GetClient(_ context.Context, id int64) (*domain.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %d: %w", id, domain.ErrClientNotFound)
	}
	return c.Clone(), nil
}

// ListClients returns every client ordered by ID.
func (m *Memory) ListClients(_ context.Context) ([]*domain.Client, error) {
	return m.filterClients(func(*domain.Client) bool { return true }), nil
}

// SearchClients returns clients whose contact fields contain keyword,
// ignoring case.
func (m *Memory) SearchClients(_ context.Context, keyword string) ([]*domain.Client, error) {
	return m.filterClients(func(c *domain.Client) bool { return c.Matches(keyword) }), nil
}

// ClientsByBalance returns clients whose balance lies in [min, max].
func (m *Memory) ClientsByBalance(_ context.Context, min, max decimal.Decimal) ([]*domain.Client, error) {
	return m.filterClients(func(c *domain.Client) bool {
		return c.Balance.GreaterThanOrEqual(min) && c.Balance.LessThanOrEqual(max)
	}), nil
}

func (m *Memory) filterClients(keep func(*domain.Client) bool) []*domain.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Client, 0)
	for _, c := range m.clients {
		if keep(c) {
			result = append(result, c.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
