package repository

import (
	"trip-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Trip    TripRepository
	Booking BookingRepository
	Payment PaymentRepository
	Audit   AuditLogRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Trip:    NewTripRepository(db, log),
		Booking: NewBookingRepository(db, log),
		Payment: NewPaymentRepository(db, log),
		Audit:   NewAuditLogRepository(db, log),
	}
}
