package usecase

import (
	"context"
	"errors"
	"fmt"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/data/repository"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"
	"trip-booking/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReconcileRequest locates the payment to reconcile. Jobs fired from the API
// layer know the local id; jobs fired from failed webhook applies only carry
// provider identifiers.
type ReconcileRequest struct {
	PaymentID         *uuid.UUID
	ProviderOrderID   string
	ProviderPaymentID string
}

// Reconciler re-derives local payment state from the provider's record. It is
// the repair path for webhook deliveries that were lost or failed to apply.
type Reconciler interface {
	Reconcile(ctx context.Context, req ReconcileRequest) error
}

type reconciler struct {
	repo    *repository.Repository
	gateway gateway.Client
	ledger  PaymentLedger
	log     *zap.Logger
}

func NewReconciler(repo *repository.Repository, gw gateway.Client, ledger PaymentLedger, log *zap.Logger) Reconciler {
	return &reconciler{
		repo:    repo,
		gateway: gw,
		ledger:  ledger,
		log:     log.With(zap.String("service", "reconciler")),
	}
}

// Reconcile fetches the provider's view of a payment and replays it through
// the ledger. Payments already in a terminal state are left alone. A gateway
// error is returned so the job retries; every other mismatch is resolved or
// logged here.
func (s *reconciler) Reconcile(ctx context.Context, req ReconcileRequest) error {
	payment, err := s.resolve(ctx, req)
	if err != nil {
		return err
	}
	if payment == nil {
		s.log.Warn("Nothing to reconcile, payment not found",
			zap.Any("payment_id", req.PaymentID),
			zap.String("provider_order_id", req.ProviderOrderID),
		)
		monitoring.TrackReconciliation(monitoring.OutcomeUnknown)
		return nil
	}

	if payment.Status.Terminal() {
		s.log.Debug("Payment already terminal, skipping",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(payment.Status)),
		)
		monitoring.TrackReconciliation(monitoring.OutcomeIgnored)
		return nil
	}

	providerPaymentID := payment.ProviderPaymentID
	if providerPaymentID == nil && req.ProviderPaymentID != "" {
		providerPaymentID = &req.ProviderPaymentID
	}
	if providerPaymentID == nil {
		// No provider payment exists yet, checkout never finished. There is
		// nothing remote to compare against.
		s.log.Info("Payment has no provider payment id, skipping",
			zap.String("payment_id", payment.ID.String()),
		)
		monitoring.TrackReconciliation(monitoring.OutcomeIgnored)
		return nil
	}

	remote, err := s.gateway.FetchPayment(ctx, *providerPaymentID)
	if err != nil {
		monitoring.TrackReconciliation(monitoring.OutcomeError)
		return fmt.Errorf("fetch payment %s: %w", *providerPaymentID, err)
	}

	if err := s.apply(ctx, payment, remote); err != nil {
		monitoring.TrackReconciliation(monitoring.OutcomeError)
		return err
	}

	monitoring.TrackReconciliation(monitoring.OutcomeProcessed)
	return nil
}

func (s *reconciler) resolve(ctx context.Context, req ReconcileRequest) (*entity.Payment, error) {
	if req.PaymentID != nil {
		return s.repo.Payment.FindByID(ctx, *req.PaymentID)
	}
	if req.ProviderOrderID != "" {
		return s.repo.Payment.FindByProviderOrderID(ctx, req.ProviderOrderID)
	}
	if req.ProviderPaymentID != "" {
		return s.repo.Payment.FindByProviderPaymentID(ctx, req.ProviderPaymentID)
	}
	return nil, fmt.Errorf("reconcile request without payment reference: %w", ErrInvalidPayload)
}

func (s *reconciler) apply(ctx context.Context, payment *entity.Payment, remote *gateway.RemotePayment) error {
	s.log.Info("Reconciling payment against provider state",
		zap.String("payment_id", payment.ID.String()),
		zap.String("local_status", string(payment.Status)),
		zap.String("remote_status", remote.Status),
	)

	switch remote.Status {
	case gateway.RemoteStatusCaptured:
		_, err := s.ledger.MarkCaptured(ctx, remote.OrderID, remote.ID, nil)
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		return err

	case gateway.RemoteStatusFailed:
		_, err := s.ledger.MarkFailed(ctx, remote.OrderID, remote.ID, nil)
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		return err

	default:
		// created/authorized/refunded-in-flight: nothing local to change yet.
		s.log.Debug("Remote payment not settled, leaving local state",
			zap.String("payment_id", payment.ID.String()),
			zap.String("remote_status", remote.Status),
		)
		return nil
	}
}

// ReconcileJobHandler adapts the reconciler to the queue. The payload carries
// whichever payment reference the enqueuer had.
func ReconcileJobHandler(r Reconciler) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		var req ReconcileRequest
		if raw, ok := job.Payload["payment_id"].(string); ok && raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("parse payment id %q: %w", raw, err)
			}
			req.PaymentID = &id
		}
		if raw, ok := job.Payload["provider_order_id"].(string); ok {
			req.ProviderOrderID = raw
		}
		if raw, ok := job.Payload["provider_payment_id"].(string); ok {
			req.ProviderPaymentID = raw
		}
		return r.Reconcile(ctx, req)
	}
}
