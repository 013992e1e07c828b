package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "REQUESTED"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type BookingPaymentStatus string

const (
	BookingPaymentPending BookingPaymentStatus = "PENDING"
	BookingPaymentPaid    BookingPaymentStatus = "PAID"
	BookingPaymentFailed  BookingPaymentStatus = "FAILED"
)

// Booking rows are never hard-deleted; the status field carries the full
// lifecycle instead.
type Booking struct {
	Base
	TripID        uuid.UUID            `db:"trip_id"`
	UserID        uuid.UUID            `db:"user_id"`
	Guests        int                  `db:"guests"`
	TotalPrice    int64                `db:"total_price"` // minor currency units
	Status        BookingStatus        `db:"status"`
	PaymentStatus BookingPaymentStatus `db:"payment_status"`
	Notes         *string              `db:"notes"`
}
