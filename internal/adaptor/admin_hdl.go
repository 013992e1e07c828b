package adaptor

import (
	"encoding/json"
	"net/http"

	"trip-booking/internal/dto/request"
	"trip-booking/internal/dto/response"
	"trip-booking/internal/usecase"
	"trip-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AdminHandler struct {
	booking      usecase.BookingService
	confirmation usecase.ConfirmationService
	log          *zap.Logger
}

func NewAdminHandler(booking usecase.BookingService, confirmation usecase.ConfirmationService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		booking:      booking,
		confirmation: confirmation,
		log:          log.With(zap.String("handler", "admin")),
	}
}

// GetBookingByID handles GET /api/admin/bookings/{id} (admin only)
func (h *AdminHandler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.booking.GetBookingByID(r.Context(), bookingID.String())
	if err != nil {
		respondServiceError(h.log, w, err, "get booking by ID")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// ConfirmBooking handles PUT /api/admin/bookings/{id}/confirm (admin only)
func (h *AdminHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.confirmation.Confirm(r.Context(), bookingID, adminID)
	if err != nil {
		respondServiceError(h.log, w, err, "confirm booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, nil, nil))
}

// RejectBooking handles PUT /api/admin/bookings/{id}/reject (admin only)
func (h *AdminHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	booking, err := h.confirmation.Reject(r.Context(), bookingID, adminID)
	if err != nil {
		respondServiceError(h.log, w, err, "reject booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, nil, nil))
}

// RefundBooking handles POST /api/admin/bookings/{id}/refund (admin only)
func (h *AdminHandler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req request.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	payment, err := h.booking.RefundBooking(r.Context(), adminID.String(), bookingID.String(), &req)
	if err != nil {
		respondServiceError(h.log, w, err, "refund booking")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

func (h *AdminHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}
