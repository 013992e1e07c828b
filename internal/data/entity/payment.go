package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusCreated           PaymentStatus = "CREATED"
	PaymentStatusAuthorized        PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured          PaymentStatus = "CAPTURED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusDisputed          PaymentStatus = "DISPUTED"
)

// Terminal reports whether no further automatic transition happens from this
// status without external intervention.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCaptured || s == PaymentStatusRefunded || s == PaymentStatusFailed
}

// Payment tracks one provider-side payment attempt for a booking. A booking may
// carry several attempts but at most one non-terminal one. ProviderOrderID is
// the idempotency key for order-level events, ProviderPaymentID for
// payment-level events.
type Payment struct {
	Base
	BookingID         uuid.UUID     `db:"booking_id"`
	Provider          string        `db:"provider"`
	ProviderOrderID   string        `db:"provider_order_id"`
	ProviderPaymentID *string       `db:"provider_payment_id"`
	ProviderRefundIDs []string      `db:"provider_refund_ids"` // refund ids already applied
	Amount            int64         `db:"amount"`              // minor currency units
	RefundedAmount    int64         `db:"refunded_amount"`
	Status            PaymentStatus `db:"status"`
	DisputeID         *string       `db:"dispute_id"`
	RawPayload        []byte        `db:"raw_payload"` // last provider event, audit/debug only
}

// RefundRecorded reports whether a provider refund id has already been applied
// to this payment.
func (p *Payment) RefundRecorded(refundID string) bool {
	for _, id := range p.ProviderRefundIDs {
		if id == refundID {
			return true
		}
	}
	return false
}
