package entity

import (
	"github.com/google/uuid"
)

// Audit actions written by the booking/payment core.
const (
	AuditBookingCreated          = "BOOKING_CREATED"
	AuditBookingConfirmed        = "BOOKING_CONFIRMED"
	AuditBookingRejected         = "BOOKING_REJECTED"
	AuditBookingCapacityRejected = "BOOKING_CAPACITY_REJECTED"
	AuditPaymentCreated          = "PAYMENT_CREATED"
	AuditPaymentRefunded         = "PAYMENT_REFUNDED"
)

const (
	AuditTargetBooking = "BOOKING"
	AuditTargetPayment = "PAYMENT"
)

type AuditLog struct {
	BaseSimple
	ActorID    *uuid.UUID     `db:"actor_id"`
	Action     string         `db:"action"`
	TargetType string         `db:"target_type"`
	TargetID   string         `db:"target_id"`
	Metadata   map[string]any `db:"metadata"`
}
