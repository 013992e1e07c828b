package usecase

import (
	"context"
	"errors"
)

// Error kinds returned by the booking/payment core. Handlers branch on these
// with errors.Is instead of inspecting messages; transition failures
// additionally carry *entity.InvalidTransitionError for errors.As.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrCapacityFull     = errors.New("trip capacity full")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state for operation")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrGateway          = errors.New("payment gateway failure")
)

// TxManager runs a function inside one database transaction; the transaction
// travels in the context so repository calls share it. Satisfied by
// database.PgxIface.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
