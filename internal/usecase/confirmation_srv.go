package usecase

import (
	"context"
	"fmt"
	"time"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationService approves or rejects booking requests. Confirm is the
// capacity-critical path: the capacity read and the status flip happen inside
// one transaction, serialized per trip by a row lock on the trip itself.
type ConfirmationService interface {
	Confirm(ctx context.Context, bookingID, adminID uuid.UUID) (*entity.Booking, error)
	Reject(ctx context.Context, bookingID, adminID uuid.UUID) (*entity.Booking, error)
}

type confirmationService struct {
	repo *repository.Repository
	tx   TxManager
	log  *zap.Logger
}

func NewConfirmationService(repo *repository.Repository, tx TxManager, log *zap.Logger) ConfirmationService {
	return &confirmationService{
		repo: repo,
		tx:   tx,
		log:  log.With(zap.String("service", "confirmation")),
	}
}

func (s *confirmationService) Confirm(ctx context.Context, bookingID, adminID uuid.UUID) (*entity.Booking, error) {
	var (
		booking      *entity.Booking
		capacityFull bool
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", bookingID.String(), ErrNotFound)
		}

		if booking.Status == entity.BookingStatusConfirmed || booking.Status == entity.BookingStatusRejected {
			return fmt.Errorf("booking %s is %s: %w", bookingID.String(), booking.Status, ErrAlreadyProcessed)
		}

		next, err := entity.Transition(booking.Status, entity.ActionApprove)
		if err != nil {
			return err
		}

		// The trip row lock is what serializes concurrent confirmations for
		// the same trip; the confirmed count below is read under it.
		trip, err := s.repo.Trip.LockByID(ctx, booking.TripID)
		if err != nil {
			return err
		}
		if trip == nil {
			return fmt.Errorf("trip %s: %w", booking.TripID.String(), ErrNotFound)
		}

		confirmed, err := s.repo.Booking.CountConfirmedByTrip(ctx, booking.TripID, nil)
		if err != nil {
			return err
		}

		if confirmed >= int64(trip.Capacity) {
			// Commit only the audit row; the booking itself is untouched.
			if err := s.audit(ctx, &adminID, entity.AuditBookingCapacityRejected, booking, map[string]any{
				"reason":    "capacity_full",
				"trip_id":   booking.TripID.String(),
				"capacity":  trip.Capacity,
				"confirmed": confirmed,
			}); err != nil {
				return err
			}
			capacityFull = true
			return nil
		}

		if err := s.repo.Booking.UpdateStatus(ctx, bookingID, next); err != nil {
			return err
		}
		booking.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	if capacityFull {
		return nil, fmt.Errorf("trip %s: %w", booking.TripID.String(), ErrCapacityFull)
	}

	s.log.Info("Booking confirmed",
		zap.String("booking_id", bookingID.String()),
		zap.String("trip_id", booking.TripID.String()),
		zap.String("admin_id", adminID.String()),
	)

	// Post-commit audit; failures here never undo the confirmation.
	if err := s.audit(ctx, &adminID, entity.AuditBookingConfirmed, booking, map[string]any{
		"trip_id": booking.TripID.String(),
	}); err != nil {
		s.log.Warn("Failed to write confirmation audit log", zap.Error(err))
	}

	return booking, nil
}

func (s *confirmationService) Reject(ctx context.Context, bookingID, adminID uuid.UUID) (*entity.Booking, error) {
	var booking *entity.Booking

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.Booking.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return fmt.Errorf("booking %s: %w", bookingID.String(), ErrNotFound)
		}

		if booking.Status == entity.BookingStatusConfirmed || booking.Status == entity.BookingStatusRejected {
			return fmt.Errorf("booking %s is %s: %w", bookingID.String(), booking.Status, ErrAlreadyProcessed)
		}

		next, err := entity.Transition(booking.Status, entity.ActionReject)
		if err != nil {
			return err
		}

		if err := s.repo.Booking.UpdateStatus(ctx, bookingID, next); err != nil {
			return err
		}
		booking.Status = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking rejected",
		zap.String("booking_id", bookingID.String()),
		zap.String("admin_id", adminID.String()),
	)

	if err := s.audit(ctx, &adminID, entity.AuditBookingRejected, booking, map[string]any{
		"trip_id": booking.TripID.String(),
	}); err != nil {
		s.log.Warn("Failed to write rejection audit log", zap.Error(err))
	}

	return booking, nil
}

func (s *confirmationService) audit(ctx context.Context, actorID *uuid.UUID, action string, booking *entity.Booking, metadata map[string]any) error {
	return s.repo.Audit.Create(ctx, &entity.AuditLog{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: time.Now(),
		},
		ActorID:    actorID,
		Action:     action,
		TargetType: entity.AuditTargetBooking,
		TargetID:   booking.ID.String(),
		Metadata:   metadata,
	})
}
