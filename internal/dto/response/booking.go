package response

import (
	"time"

	"trip-booking/internal/data/entity"
)

type BookingResponse struct {
	ID            string                      `json:"id"`
	TripID        string                      `json:"trip_id"`
	UserID        string                      `json:"user_id"`
	TripTitle     string                      `json:"trip_title,omitempty"`
	Guests        int                         `json:"guests"`
	TotalPrice    int64                       `json:"total_price"`
	Status        entity.BookingStatus        `json:"status"`
	PaymentStatus entity.BookingPaymentStatus `json:"payment_status"`
	Notes         *string                     `json:"notes,omitempty"`
	Payment       *PaymentResponse            `json:"payment,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
}

type PaymentResponse struct {
	ID                string               `json:"id"`
	BookingID         string               `json:"booking_id"`
	Provider          string               `json:"provider"`
	ProviderOrderID   string               `json:"provider_order_id"`
	ProviderPaymentID *string              `json:"provider_payment_id,omitempty"`
	Amount            int64                `json:"amount"`
	RefundedAmount    int64                `json:"refunded_amount"`
	Status            entity.PaymentStatus `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
}

// PaymentIntentResponse carries what the frontend checkout widget needs to
// open a provider payment session.
type PaymentIntentResponse struct {
	PaymentID       string `json:"payment_id"`
	BookingID       string `json:"booking_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	KeyID           string `json:"key_id"`
}

// Helper converters
func BookingToResponse(booking *entity.Booking, trip *entity.Trip, payment *entity.Payment) BookingResponse {
	resp := BookingResponse{
		ID:            booking.ID.String(),
		TripID:        booking.TripID.String(),
		UserID:        booking.UserID.String(),
		Guests:        booking.Guests,
		TotalPrice:    booking.TotalPrice,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
		Notes:         booking.Notes,
		CreatedAt:     booking.CreatedAt,
	}
	if trip != nil {
		resp.TripTitle = trip.Title
	}
	if payment != nil {
		p := PaymentToResponse(payment)
		resp.Payment = &p
	}
	return resp
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                payment.ID.String(),
		BookingID:         payment.BookingID.String(),
		Provider:          payment.Provider,
		ProviderOrderID:   payment.ProviderOrderID,
		ProviderPaymentID: payment.ProviderPaymentID,
		Amount:            payment.Amount,
		RefundedAmount:    payment.RefundedAmount,
		Status:            payment.Status,
		CreatedAt:         payment.CreatedAt,
	}
}
