package wire

import (
	"trip-booking/internal/adaptor"
	"trip-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAdmin(
	r chi.Router,
	adminHandler *adaptor.AdminHandler,
	log *zap.Logger,
) {
	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		// Require both authentication AND admin role
		r.Use(middleware.Actor(log))
		r.Use(middleware.Admin(log))

		// GET /api/admin/bookings/{id} - View any booking details (admin)
		r.Get("/{id}", adminHandler.GetBookingByID)

		// PUT /api/admin/bookings/{id}/confirm - Approve a booking request (admin)
		r.Put("/{id}/confirm", adminHandler.ConfirmBooking)

		// PUT /api/admin/bookings/{id}/reject - Reject a booking request (admin)
		r.Put("/{id}/reject", adminHandler.RejectBooking)

		// POST /api/admin/bookings/{id}/refund - Refund a paid booking (admin)
		r.Post("/{id}/refund", adminHandler.RefundBooking)
	})
}
