package request

type CreateBookingRequest struct {
	TripID string `json:"trip_id" validate:"required,uuid4"`
	Guests int    `json:"guests" validate:"required,min=1,max=20"`
}

type CreatePaymentIntentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

type RefundRequest struct {
	Amount        int64  `json:"amount" validate:"required,min=1"`
	Reason        string `json:"reason" validate:"required,max=500"`
	CancelBooking bool   `json:"cancel_booking"`
}
