package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a trading participant. Balance is the running profit: it grows
// when the client supplies a trade and shrinks when it consumes one.
type Client struct {
	ID            int64
	Name          string
	Email         string
	Address       string
	Phone         string
	Balance       decimal.Decimal
	Active        bool
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy, so stores can hand out snapshots that callers
// are free to mutate.
func (c *Client) Clone() *Client {
	cp := *c
	if c.DeactivatedAt != nil {
		at := *c.DeactivatedAt
		cp.DeactivatedAt = &at
	}
	return &cp
}

// Deactivate flips the client to inactive. The deactivation timestamp is
// only ever set once.
func (c *Client) Deactivate(at time.Time) error {
	if !c.Active {
		return ErrAlreadyInactive
	}
	c.Active = false
	if c.DeactivatedAt == nil {
		c.DeactivatedAt = &at
	}
	c.UpdatedAt = at
	return nil
}

// NormalizeEmail is the form under which emails are compared for uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Matches reports whether keyword occurs in any of the client's contact
// fields, ignoring case.
func (c *Client) Matches(keyword string) bool {
	k := strings.ToLower(keyword)
	for _, field := range []string{c.Name, c.Email, c.Address, c.Phone} {
		if strings.Contains(strings.ToLower(field), k) {
			return true
		}
	}
	return false
}
