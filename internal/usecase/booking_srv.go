package usecase

import (
	"context"
	"fmt"
	"time"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/data/repository"
	"trip-booking/internal/dto/request"
	"trip-booking/internal/dto/response"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"
	"trip-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingConfig carries provider checkout settings surfaced to clients.
type BookingConfig struct {
	Provider string
	Currency string
	KeyID    string
}

type BookingService interface {
	// Public endpoints (butuh auth)
	CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	CreatePaymentIntent(ctx context.Context, userID string, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error)

	// Admin endpoints
	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	RefundBooking(ctx context.Context, adminID, bookingID string, req *request.RefundRequest) (*response.PaymentResponse, error)
}

type bookingService struct {
	repo    *repository.Repository
	gateway gateway.Client
	ledger  PaymentLedger
	queue   jobs.Enqueuer
	config  BookingConfig
	log     *zap.Logger
}

func NewBookingService(repo *repository.Repository, gw gateway.Client, ledger PaymentLedger, queue jobs.Enqueuer, config BookingConfig, log *zap.Logger) BookingService {
	return &bookingService{
		repo:    repo,
		gateway: gw,
		ledger:  ledger,
		queue:   queue,
		config:  config,
		log:     log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, userID string, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		return nil, fmt.Errorf("invalid trip ID format %s: %w", req.TripID, err)
	}

	trip, err := s.repo.Trip.FindByID(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("find trip %s: %w", req.TripID, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %s: %w", req.TripID, ErrNotFound)
	}
	if trip.Status != entity.TripStatusPublished {
		return nil, fmt.Errorf("trip %s is %s, not open for booking: %w", req.TripID, trip.Status, ErrInvalidState)
	}

	// Advisory only. The hard capacity check happens under the trip row lock
	// at confirmation and capture time.
	confirmed, err := s.repo.Booking.CountConfirmedByTrip(ctx, tripID, nil)
	if err != nil {
		return nil, fmt.Errorf("count confirmed bookings: %w", err)
	}
	if confirmed >= int64(trip.Capacity) {
		return nil, fmt.Errorf("trip %s: %w", req.TripID, ErrCapacityFull)
	}

	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TripID:        tripID,
		UserID:        userUUID,
		Guests:        req.Guests,
		TotalPrice:    trip.Price * int64(req.Guests),
		Status:        entity.BookingStatusRequested,
		PaymentStatus: entity.BookingPaymentPending,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("trip_id", req.TripID),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("trip_id", req.TripID),
		zap.String("user_id", userID),
		zap.Int("guests", req.Guests),
		zap.Int64("total_price", booking.TotalPrice),
	)

	if err := s.repo.Audit.Create(ctx, &entity.AuditLog{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		ActorID:    &userUUID,
		Action:     entity.AuditBookingCreated,
		TargetType: entity.AuditTargetBooking,
		TargetID:   booking.ID.String(),
		Metadata:   map[string]any{"trip_id": req.TripID, "guests": req.Guests},
	}); err != nil {
		s.log.Warn("Failed to write booking audit log", zap.Error(err))
	}

	if err := s.queue.Enqueue(ctx, jobs.TypeSendBookingEmail, booking.ID.String(), map[string]any{
		"booking_id": booking.ID.String(),
		"user_id":    userID,
		"trip_title": trip.Title,
	}); err != nil {
		s.log.Warn("Failed to enqueue booking email", zap.Error(err))
	}

	resp := response.BookingToResponse(booking, trip, nil)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByUserID(ctx, userUUID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userUUID)
	if err != nil {
		s.log.Error("Failed to count user bookings", zap.Error(err))
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	bookingResponses := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		trip, _ := s.repo.Trip.FindByID(ctx, booking.TripID)
		payment, _ := s.repo.Payment.FindByBookingID(ctx, booking.ID)
		bookingResponses[i] = response.BookingToResponse(booking, trip, payment)
	}

	return response.NewPaginatedResponse(bookingResponses, req.Page, req.PerPage, total), nil
}

// CreatePaymentIntent opens a provider order for a booking so the client can
// start checkout. Re-requesting an intent for a booking whose payment is still
// CREATED returns the existing order instead of opening another one.
func (s *bookingService) CreatePaymentIntent(ctx context.Context, userID string, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment intent validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format %s: %w", userID, err)
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", req.BookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", req.BookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", req.BookingID, ErrNotFound)
	}
	if booking.UserID != userUUID {
		return nil, fmt.Errorf("booking %s belongs to another user: %w", req.BookingID, ErrForbidden)
	}
	if booking.Status != entity.BookingStatusRequested && booking.Status != entity.BookingStatusConfirmed {
		return nil, fmt.Errorf("booking %s is %s, cannot start payment: %w", req.BookingID, booking.Status, ErrInvalidState)
	}

	existing, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("find payment for booking %s: %w", req.BookingID, err)
	}
	if existing != nil {
		switch existing.Status {
		case entity.PaymentStatusCaptured:
			return nil, fmt.Errorf("booking %s already paid: %w", req.BookingID, ErrAlreadyProcessed)
		case entity.PaymentStatusCreated:
			return s.intentResponse(existing), nil
		}
	}

	order, err := s.gateway.CreateOrder(ctx, booking.TotalPrice, s.config.Currency, booking.ID.String())
	if err != nil {
		s.log.Error("Failed to create provider order",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
		)
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	now := time.Now()
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:       bookingID,
		Provider:        s.config.Provider,
		ProviderOrderID: order.ID,
		Amount:          booking.TotalPrice,
		Status:          entity.PaymentStatusCreated,
	}

	if err := s.repo.Payment.Create(ctx, payment); err != nil {
		s.log.Error("Failed to persist payment",
			zap.Error(err),
			zap.String("booking_id", req.BookingID),
			zap.String("provider_order_id", order.ID),
		)
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.log.Info("Payment intent created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", req.BookingID),
		zap.String("provider_order_id", order.ID),
		zap.Int64("amount", payment.Amount),
	)

	if err := s.repo.Audit.Create(ctx, &entity.AuditLog{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		ActorID:    &userUUID,
		Action:     entity.AuditPaymentCreated,
		TargetType: entity.AuditTargetPayment,
		TargetID:   payment.ID.String(),
		Metadata:   map[string]any{"booking_id": req.BookingID, "amount": payment.Amount},
	}); err != nil {
		s.log.Warn("Failed to write payment audit log", zap.Error(err))
	}

	return s.intentResponse(payment), nil
}

// ==================== ADMIN METHODS ====================

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}

	trip, _ := s.repo.Trip.FindByID(ctx, booking.TripID)
	payment, _ := s.repo.Payment.FindByBookingID(ctx, booking.ID)

	resp := response.BookingToResponse(booking, trip, payment)
	return &resp, nil
}

// RefundBooking refunds the booking's payment through the ledger and notifies
// the user.
func (s *bookingService) RefundBooking(ctx context.Context, adminID, bookingID string, req *request.RefundRequest) (*response.PaymentResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Refund validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	adminUUID, err := uuid.Parse(adminID)
	if err != nil {
		return nil, fmt.Errorf("invalid admin ID format %s: %w", adminID, err)
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID format %s: %w", bookingID, err)
	}

	payment, err := s.repo.Payment.FindByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find payment for booking %s: %w", bookingID, err)
	}
	if payment == nil {
		return nil, fmt.Errorf("payment for booking %s: %w", bookingID, ErrNotFound)
	}

	refunded, err := s.ledger.ApplyRefund(ctx, payment.ID, req.Amount, req.Reason, req.CancelBooking)
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking refunded",
		zap.String("booking_id", bookingID),
		zap.String("payment_id", refunded.ID.String()),
		zap.String("admin_id", adminID),
		zap.Int64("amount", req.Amount),
	)

	if err := s.repo.Audit.Create(ctx, &entity.AuditLog{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		ActorID:    &adminUUID,
		Action:     entity.AuditPaymentRefunded,
		TargetType: entity.AuditTargetPayment,
		TargetID:   refunded.ID.String(),
		Metadata:   map[string]any{"booking_id": bookingID, "amount": req.Amount, "reason": req.Reason},
	}); err != nil {
		s.log.Warn("Failed to write refund audit log", zap.Error(err))
	}

	if err := s.queue.Enqueue(ctx, jobs.TypeSendRefundEmail, refunded.ID.String(), map[string]any{
		"booking_id": bookingID,
		"payment_id": refunded.ID.String(),
		"amount":     req.Amount,
	}); err != nil {
		s.log.Warn("Failed to enqueue refund email", zap.Error(err))
	}

	resp := response.PaymentToResponse(refunded)
	return &resp, nil
}

// ==================== HELPER METHODS ====================

func (s *bookingService) intentResponse(payment *entity.Payment) *response.PaymentIntentResponse {
	return &response.PaymentIntentResponse{
		PaymentID:       payment.ID.String(),
		BookingID:       payment.BookingID.String(),
		ProviderOrderID: payment.ProviderOrderID,
		Amount:          payment.Amount,
		Currency:        s.config.Currency,
		KeyID:           s.config.KeyID,
	}
}
