package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/orderdesk/internal/domain"
	"github.com/efreitasn/orderdesk/internal/store"
)

const (
	maxFieldLength   = 255
	minKeywordLength = 3
)

// ClientRequest is the input for creating or updating a client. Updates
// replace every contact field.
type ClientRequest struct {
	Name    string
	Email   string
	Address string
	Phone   string
}

func (r ClientRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return domain.Invalidf("name is required")
	}
	email := strings.TrimSpace(r.Email)
	if email == "" {
		return domain.Invalidf("email is required")
	}
	if !strings.Contains(email, "@") {
		return domain.Invalidf("email must contain '@', got %q", r.Email)
	}
	fields := []struct{ name, value string }{
		{"name", r.Name}, {"email", r.Email}, {"address", r.Address}, {"phone", r.Phone},
	}
	for _, f := range fields {
		if len(f.value) > maxFieldLength {
			return domain.Invalidf("%s must be at most %d bytes", f.name, maxFieldLength)
		}
	}
	return nil
}

// ClientService manages the client lifecycle. Balances are never written
// here; only the admission engine moves money.
type ClientService struct {
	store   store.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewClientService creates a ClientService. A nil logger means
// slog.Default(); metrics may be nil.
func NewClientService(s store.Store, logger *slog.Logger, metrics *Metrics) *ClientService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientService{
		store:   s,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Create registers an active client with a zero balance.
func (s *ClientService) Create(ctx context.Context, req ClientRequest) (client *domain.Client, err error) {
	defer func() { s.metrics.observeLifecycle("create", err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	c := &domain.Client{
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Address:   req.Address,
		Phone:     req.Phone,
		Balance:   decimal.Zero,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("client created", slog.Int64("client_id", c.ID), slog.String("email", c.Email))
	return c, nil
}

// Get returns the last committed state of a client.
func (s *ClientService) Get(ctx context.Context, id int64) (*domain.Client, error) {
	return s.store.GetClient(ctx, id)
}

// List returns every client ordered by ID.
func (s *ClientService) List(ctx context.Context) ([]*domain.Client, error) {
	return s.store.ListClients(ctx)
}

// Search returns clients whose name, email, address or phone contains the
// keyword, ignoring case. The trimmed keyword must be at least three
// characters long.
func (s *ClientService) Search(ctx context.Context, keyword string) ([]*domain.Client, error) {
	k := strings.TrimSpace(keyword)
	if len([]rune(k)) < minKeywordLength {
		return nil, domain.Invalidf("search keyword must be at least %d characters long", minKeywordLength)
	}

	clients, err := s.store.SearchClients(ctx, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("client search", slog.String("keyword", k), slog.Int("matches", len(clients)))
	return clients, nil
}

// Update replaces the contact fields of a client under its exclusive lock.
// Email uniqueness is checked again at commit.
func (s *ClientService) Update(ctx context.Context, id int64, req ClientRequest) (client *domain.Client, err error) {
	defer func() { s.metrics.observeLifecycle("update", err) }()

	if err := req.validate(); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.ClientForUpdate(ctx, id)
		if err != nil {
			return err
		}
		c.Name = strings.TrimSpace(req.Name)
		c.Email = strings.TrimSpace(req.Email)
		c.Address = req.Address
		c.Phone = req.Phone
		c.UpdatedAt = s.now()
		if err := tx.SaveClient(context.WithoutCancel(ctx), c); err != nil {
			return err
		}
		client = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("client updated", slog.Int64("client_id", id))
	return client, nil
}

// Deactivate marks an active client inactive. It takes the same exclusive
// lock as trade admission, so it is ordered against in-flight trades on the
// client: a trade either commits before it or sees the client inactive.
func (s *ClientService) Deactivate(ctx context.Context, id int64) (client *domain.Client, err error) {
	defer func() { s.metrics.observeLifecycle("deactivate", err) }()

	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.ClientForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := c.Deactivate(s.now()); err != nil {
			return err
		}
		if err := tx.SaveClient(context.WithoutCancel(ctx), c); err != nil {
			return err
		}
		client = c.Clone()
		return nil
	})
	if err != nil {
		s.logger.Warn("client deactivation rejected", slog.Int64("client_id", id), slog.String("reason", err.Error()))
		return nil, err
	}

	s.logger.Info("client deactivated", slog.Int64("client_id", id))
	return client, nil
}

// Balance returns the client's running profit.
func (s *ClientService) Balance(ctx context.Context, id int64) (decimal.Decimal, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Balance, nil
}

// ListByBalanceRange returns clients whose balance lies in [min, max].
func (s *ClientService) ListByBalanceRange(ctx context.Context, min, max decimal.Decimal) ([]*domain.Client, error) {
	if min.GreaterThan(max) {
		return nil, domain.Invalidf("min %s must not exceed max %s", min, max)
	}
	return s.store.ClientsByBalance(ctx, min, max)
}
