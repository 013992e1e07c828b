package repository

import (
	"context"
	"fmt"

	"trip-booking/internal/data/entity"
	"trip-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error

	// Row-locking variants used inside RunInTx; they serialize concurrent
	// webhooks and reconciliation for the same payment.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	LockByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) q(ctx context.Context) database.Querier {
	if tx, ok := database.TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

const paymentColumns = `id, booking_id, provider, provider_order_id, provider_payment_id, provider_refund_ids, amount, refunded_amount, status, dispute_id, raw_payload, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Provider,
		&payment.ProviderOrderID,
		&payment.ProviderPaymentID,
		&payment.ProviderRefundIDs,
		&payment.Amount,
		&payment.RefundedAmount,
		&payment.Status,
		&payment.DisputeID,
		&payment.RawPayload,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, provider, provider_order_id, provider_payment_id, provider_refund_ids, amount, refunded_amount, status, dispute_id, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q(ctx).Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Provider,
		payment.ProviderOrderID,
		payment.ProviderPaymentID,
		payment.ProviderRefundIDs,
		payment.Amount,
		payment.RefundedAmount,
		payment.Status,
		payment.DisputeID,
		payment.RawPayload,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("provider_order_id", payment.ProviderOrderID),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, arg any, what string) (*entity.Payment, error) {
	payment, err := scanPayment(r.q(ctx).QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment",
			zap.Error(err),
			zap.String("key", what),
			zap.Any("value", arg),
		)
		return nil, fmt.Errorf("find payment by %s %v: %w", what, arg, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.findOne(ctx, query, id, "ID")
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.findOne(ctx, query, bookingID, "booking ID")
}

func (r *paymentRepository) FindByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_order_id = $1`
	return r.findOne(ctx, query, orderID, "provider order ID")
}

func (r *paymentRepository) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1`
	return r.findOne(ctx, query, providerPaymentID, "provider payment ID")
}

func (r *paymentRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, query, id, "ID")
}

func (r *paymentRepository) LockByProviderOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_order_id = $1 FOR UPDATE`
	return r.findOne(ctx, query, orderID, "provider order ID")
}

func (r *paymentRepository) LockByProviderPaymentID(ctx context.Context, providerPaymentID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_payment_id = $1 FOR UPDATE`
	return r.findOne(ctx, query, providerPaymentID, "provider payment ID")
}

func (r *paymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments
		SET provider_payment_id = $2, provider_refund_ids = $3, refunded_amount = $4,
		    status = $5, dispute_id = $6, raw_payload = $7, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q(ctx).Exec(ctx, query,
		payment.ID,
		payment.ProviderPaymentID,
		payment.ProviderRefundIDs,
		payment.RefundedAmount,
		payment.Status,
		payment.DisputeID,
		payment.RawPayload,
	)

	if err != nil {
		r.log.Error("Failed to update payment",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
		)
		return fmt.Errorf("update payment %s: %w", payment.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", payment.ID.String())
	}

	return nil
}
