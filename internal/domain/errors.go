package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrClientNotFound      = errors.New("client_not_found")
	ErrTradeNotFound       = errors.New("trade_not_found")
	ErrInactiveParticipant = errors.New("inactive_participant")
	ErrDuplicateTrade      = errors.New("duplicate_trade")
	ErrProfitLimitExceeded = errors.New("profit_limit_exceeded")
	ErrAlreadyInactive     = errors.New("already_inactive")
	ErrDuplicateResource   = errors.New("duplicate_resource")
)

// ValidationError represents a request validation failure.
// It matches ErrInvalidRequest under errors.Is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

// Invalidf builds a ValidationError from a format string.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Role names the side of a trade a client participates on.
type Role string

const (
	RoleSupplier Role = "supplier"
	RoleConsumer Role = "consumer"
)

// InactiveParticipantError reports which side of a trade refers to a
// deactivated client.
type InactiveParticipantError struct {
	Role     Role
	ClientID int64
}

func (e *InactiveParticipantError) Error() string {
	return fmt.Sprintf("%s %d is inactive", e.Role, e.ClientID)
}

func (e *InactiveParticipantError) Unwrap() error {
	return ErrInactiveParticipant
}

// ProfitLimitError carries the amounts that made the consumer's balance
// fall below the floor.
type ProfitLimitError struct {
	ConsumerID int64
	Balance    decimal.Decimal
	Amount     decimal.Decimal
	Resulting  decimal.Decimal
	Floor      decimal.Decimal
}

func (e *ProfitLimitError) Error() string {
	return fmt.Sprintf("trade would take consumer %d below %s: current %s, amount %s, after trade %s",
		e.ConsumerID, e.Floor, e.Balance, e.Amount, e.Resulting)
}

func (e *ProfitLimitError) Unwrap() error {
	return ErrProfitLimitExceeded
}
