package usecase

import (
	"context"
	"fmt"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/data/repository"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentLedger owns payment state transitions and their booking cascades.
// Mutations are keyed by provider identifiers, which double as idempotency
// keys: re-applying an event whose terminal state already matches returns
// ErrAlreadyProcessed and changes nothing. Every mutation runs in one
// transaction with the payment and booking rows locked.
type PaymentLedger interface {
	MarkCaptured(ctx context.Context, providerOrderID, providerPaymentID string, raw []byte) (*entity.Payment, error)
	MarkFailed(ctx context.Context, providerOrderID, providerPaymentID string, raw []byte) (*entity.Payment, error)
	ApplyRefund(ctx context.Context, paymentID uuid.UUID, amount int64, reason string, cancelBooking bool) (*entity.Payment, error)
	RecordRefund(ctx context.Context, providerPaymentID, refundID string, amount int64, raw []byte) (*entity.Payment, error)
	MarkDisputeCreated(ctx context.Context, providerPaymentID, disputeID string, raw []byte) error
	MarkDisputeWon(ctx context.Context, providerPaymentID string, raw []byte) error
	MarkDisputeLost(ctx context.Context, providerPaymentID string, raw []byte) error
}

const overbookedNote = "Trip capacity reached before payment capture. Contact support for a refund."

type paymentLedger struct {
	repo    *repository.Repository
	tx      TxManager
	gateway gateway.Client
	queue   jobs.Enqueuer
	log     *zap.Logger
}

func NewPaymentLedger(repo *repository.Repository, tx TxManager, gw gateway.Client, queue jobs.Enqueuer, log *zap.Logger) PaymentLedger {
	return &paymentLedger{
		repo:    repo,
		tx:      tx,
		gateway: gw,
		queue:   queue,
		log:     log.With(zap.String("service", "ledger")),
	}
}

// MarkCaptured records a provider-side capture and cascades the booking to
// CONFIRMED/PAID. If the trip filled up between order creation and capture,
// the capture is recorded FAILED and the booking REJECTED instead of blowing
// past capacity.
func (s *paymentLedger) MarkCaptured(ctx context.Context, providerOrderID, providerPaymentID string, raw []byte) (*entity.Payment, error) {
	var payment *entity.Payment

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.Payment.LockByProviderOrderID(ctx, providerOrderID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment for order %s: %w", providerOrderID, ErrNotFound)
		}

		if payment.Status == entity.PaymentStatusCaptured {
			return fmt.Errorf("payment %s already captured: %w", payment.ID.String(), ErrAlreadyProcessed)
		}

		booking, err := s.repo.Booking.LockByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", payment.BookingID.String(), ErrNotFound)
		}

		trip, err := s.repo.Trip.LockByID(ctx, booking.TripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return fmt.Errorf("trip %s: %w", booking.TripID.String(), ErrNotFound)
		}

		confirmed, err := s.repo.Booking.CountConfirmedByTrip(ctx, booking.TripID, &booking.ID)
		if err != nil {
			return err
		}

		payment.ProviderPaymentID = &providerPaymentID
		if raw != nil {
			payment.RawPayload = raw
		}

		if confirmed >= int64(trip.Capacity) {
			payment.Status = entity.PaymentStatusFailed
			if err := s.repo.Payment.Update(ctx, payment); err != nil {
				return err
			}
			notes := overbookedNote
			if err := s.repo.Booking.UpdateStatusAndPayment(ctx, booking.ID, entity.BookingStatusRejected, entity.BookingPaymentFailed, &notes); err != nil {
				return err
			}
			s.log.Warn("Capture arrived for a full trip, payment failed",
				zap.String("payment_id", payment.ID.String()),
				zap.String("trip_id", booking.TripID.String()),
			)
			return nil
		}

		payment.Status = entity.PaymentStatusCaptured
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}
		return s.repo.Booking.UpdateStatusAndPayment(ctx, booking.ID, entity.BookingStatusConfirmed, entity.BookingPaymentPaid, nil)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment capture recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider_payment_id", providerPaymentID),
		zap.String("status", string(payment.Status)),
	)

	return payment, nil
}

// MarkFailed records a provider-side failure. The booking's payment status
// flips to FAILED but the booking itself is left alone so the user can retry.
func (s *paymentLedger) MarkFailed(ctx context.Context, providerOrderID, providerPaymentID string, raw []byte) (*entity.Payment, error) {
	var payment *entity.Payment

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.Payment.LockByProviderOrderID(ctx, providerOrderID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment for order %s: %w", providerOrderID, ErrNotFound)
		}

		if payment.Status == entity.PaymentStatusFailed {
			return fmt.Errorf("payment %s already failed: %w", payment.ID.String(), ErrAlreadyProcessed)
		}

		payment.Status = entity.PaymentStatusFailed
		payment.ProviderPaymentID = &providerPaymentID
		if raw != nil {
			payment.RawPayload = raw
		}
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}

		return s.repo.Booking.UpdatePaymentStatus(ctx, payment.BookingID, entity.BookingPaymentFailed)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Payment failure recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider_payment_id", providerPaymentID),
	)

	return payment, nil
}

// ApplyRefund issues a provider refund and records it. The remote refund goes
// out first; if persisting the result then fails, a reconciliation job is
// enqueued so the refund record is not silently lost.
func (s *paymentLedger) ApplyRefund(ctx context.Context, paymentID uuid.UUID, amount int64, reason string, cancelBooking bool) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID.String(), ErrNotFound)
	}

	if payment.Status == entity.PaymentStatusRefunded {
		return nil, fmt.Errorf("payment %s already refunded: %w", paymentID.String(), ErrAlreadyProcessed)
	}
	if payment.Status != entity.PaymentStatusCaptured && payment.Status != entity.PaymentStatusPartiallyRefunded {
		return nil, fmt.Errorf("payment %s is %s, not refundable: %w", paymentID.String(), payment.Status, ErrInvalidState)
	}
	if payment.ProviderPaymentID == nil {
		return nil, fmt.Errorf("payment %s has no provider payment id: %w", paymentID.String(), ErrInvalidState)
	}
	if amount <= 0 || payment.RefundedAmount+amount > payment.Amount {
		return nil, fmt.Errorf("refund of %d against %d/%d: %w", amount, payment.RefundedAmount, payment.Amount, ErrInvalidAmount)
	}

	refund, err := s.gateway.Refund(ctx, *payment.ProviderPaymentID, amount, map[string]string{
		"booking_id": payment.BookingID.String(),
		"reason":     reason,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	result, err := s.applyRefundTx(ctx, payment.ID, refund.ID, amount, cancelBooking, nil)
	if err != nil {
		// The provider refund went through but the local record did not.
		// Reconciliation has to repair this; losing it would mean a refund
		// with no trace in the ledger.
		s.log.Error("Refund persisted remotely but not locally, enqueueing reconciliation",
			zap.Error(err),
			zap.String("payment_id", payment.ID.String()),
			zap.String("refund_id", refund.ID),
		)
		if qErr := s.queue.Enqueue(ctx, jobs.TypeReconcilePayment, payment.ID.String(), map[string]any{
			"payment_id": payment.ID.String(),
		}); qErr != nil {
			s.log.Error("Failed to enqueue reconciliation after refund drift", zap.Error(qErr))
		}
		return nil, fmt.Errorf("persist refund %s: %w", refund.ID, err)
	}

	return result, nil
}

// RecordRefund applies a refund reported by the provider (webhook path). The
// provider refund id is the idempotency key.
func (s *paymentLedger) RecordRefund(ctx context.Context, providerPaymentID, refundID string, amount int64, raw []byte) (*entity.Payment, error) {
	var payment *entity.Payment

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.Payment.LockByProviderPaymentID(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment %s: %w", providerPaymentID, ErrNotFound)
		}

		if payment.RefundRecorded(refundID) {
			return fmt.Errorf("refund %s already recorded: %w", refundID, ErrAlreadyProcessed)
		}
		if payment.Status == entity.PaymentStatusRefunded {
			return fmt.Errorf("payment %s already refunded: %w", payment.ID.String(), ErrAlreadyProcessed)
		}
		if amount <= 0 || payment.RefundedAmount+amount > payment.Amount {
			return fmt.Errorf("refund of %d against %d/%d: %w", amount, payment.RefundedAmount, payment.Amount, ErrInvalidAmount)
		}

		return s.applyRefundLocked(ctx, payment, refundID, amount, false, raw)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// applyRefundTx opens its own transaction around applyRefundLocked.
func (s *paymentLedger) applyRefundTx(ctx context.Context, paymentID uuid.UUID, refundID string, amount int64, cancelBooking bool, raw []byte) (*entity.Payment, error) {
	var payment *entity.Payment

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.repo.Payment.LockByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment %s: %w", paymentID.String(), ErrNotFound)
		}
		if payment.RefundedAmount+amount > payment.Amount {
			return fmt.Errorf("refund of %d against %d/%d: %w", amount, payment.RefundedAmount, payment.Amount, ErrInvalidAmount)
		}
		return s.applyRefundLocked(ctx, payment, refundID, amount, cancelBooking, raw)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// applyRefundLocked mutates an already-locked payment. REFUNDED if and only
// if the accumulated refund reaches the full amount; a full refund or an
// explicit cancellation request cascades the booking to CANCELLED.
func (s *paymentLedger) applyRefundLocked(ctx context.Context, payment *entity.Payment, refundID string, amount int64, cancelBooking bool, raw []byte) error {
	payment.RefundedAmount += amount
	payment.ProviderRefundIDs = append(payment.ProviderRefundIDs, refundID)
	if raw != nil {
		payment.RawPayload = raw
	}

	full := payment.RefundedAmount == payment.Amount
	if full {
		payment.Status = entity.PaymentStatusRefunded
	} else {
		payment.Status = entity.PaymentStatusPartiallyRefunded
	}

	if err := s.repo.Payment.Update(ctx, payment); err != nil {
		return err
	}

	if full || cancelBooking {
		if err := s.repo.Booking.UpdateStatus(ctx, payment.BookingID, entity.BookingStatusCancelled); err != nil {
			return err
		}
	}

	s.log.Info("Refund recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("refund_id", refundID),
		zap.Int64("amount", amount),
		zap.Int64("refunded_total", payment.RefundedAmount),
		zap.String("status", string(payment.Status)),
	)

	return nil
}

// MarkDisputeCreated moves a captured payment into DISPUTED.
func (s *paymentLedger) MarkDisputeCreated(ctx context.Context, providerPaymentID, disputeID string, raw []byte) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.Payment.LockByProviderPaymentID(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment %s: %w", providerPaymentID, ErrNotFound)
		}

		if payment.Status == entity.PaymentStatusDisputed && payment.DisputeID != nil && *payment.DisputeID == disputeID {
			return fmt.Errorf("dispute %s already recorded: %w", disputeID, ErrAlreadyProcessed)
		}
		if payment.Status != entity.PaymentStatusCaptured {
			return fmt.Errorf("payment %s is %s, disputes open only from CAPTURED: %w", payment.ID.String(), payment.Status, ErrInvalidState)
		}

		payment.Status = entity.PaymentStatusDisputed
		payment.DisputeID = &disputeID
		payment.RawPayload = raw
		return s.repo.Payment.Update(ctx, payment)
	})
}

// MarkDisputeWon resolves a dispute back to CAPTURED.
func (s *paymentLedger) MarkDisputeWon(ctx context.Context, providerPaymentID string, raw []byte) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.Payment.LockByProviderPaymentID(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment %s: %w", providerPaymentID, ErrNotFound)
		}

		if payment.Status == entity.PaymentStatusCaptured {
			return fmt.Errorf("payment %s already captured: %w", payment.ID.String(), ErrAlreadyProcessed)
		}
		if payment.Status != entity.PaymentStatusDisputed {
			return fmt.Errorf("payment %s is %s, expected DISPUTED: %w", payment.ID.String(), payment.Status, ErrInvalidState)
		}

		payment.Status = entity.PaymentStatusCaptured
		payment.RawPayload = raw
		return s.repo.Payment.Update(ctx, payment)
	})
}

// MarkDisputeLost records a lost dispute as a full refund and cancels the
// booking.
func (s *paymentLedger) MarkDisputeLost(ctx context.Context, providerPaymentID string, raw []byte) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.repo.Payment.LockByProviderPaymentID(ctx, providerPaymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return fmt.Errorf("payment %s: %w", providerPaymentID, ErrNotFound)
		}

		if payment.Status == entity.PaymentStatusRefunded {
			return fmt.Errorf("payment %s already refunded: %w", payment.ID.String(), ErrAlreadyProcessed)
		}
		if payment.Status != entity.PaymentStatusDisputed {
			return fmt.Errorf("payment %s is %s, expected DISPUTED: %w", payment.ID.String(), payment.Status, ErrInvalidState)
		}

		payment.Status = entity.PaymentStatusRefunded
		payment.RefundedAmount = payment.Amount
		payment.RawPayload = raw
		if err := s.repo.Payment.Update(ctx, payment); err != nil {
			return err
		}

		return s.repo.Booking.UpdateStatus(ctx, payment.BookingID, entity.BookingStatusCancelled)
	})
}
