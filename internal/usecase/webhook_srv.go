package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"
	"trip-booking/pkg/monitoring"

	"go.uber.org/zap"
)

// Webhook event names as delivered by the provider.
const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
	EventPaymentFailed   = "payment.failed"
	EventRefundProcessed = "refund.processed"
	EventDisputeCreated  = "payment.dispute.created"
	EventDisputeWon      = "payment.dispute.won"
	EventDisputeLost     = "payment.dispute.lost"
)

// webhookEnvelope is the provider's outer event shape. Only the entities a
// given event carries are populated.
type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Refund struct {
			Entity webhookRefund `json:"entity"`
		} `json:"refund"`
		Dispute struct {
			Entity webhookDispute `json:"entity"`
		} `json:"dispute"`
	} `json:"payload"`
}

type webhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type webhookRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type webhookDispute struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// WebhookService verifies and applies provider webhook deliveries. A nil
// return means the delivery should be acknowledged with 200; the provider
// retries anything else, so business failures that retries cannot fix are
// swallowed here and handed to reconciliation instead.
type WebhookService interface {
	Handle(ctx context.Context, body []byte, signature string) error
}

type webhookService struct {
	ledger PaymentLedger
	queue  jobs.Enqueuer
	secret string
	log    *zap.Logger
}

func NewWebhookService(ledger PaymentLedger, queue jobs.Enqueuer, secret string, log *zap.Logger) WebhookService {
	return &webhookService{
		ledger: ledger,
		queue:  queue,
		secret: secret,
		log:    log.With(zap.String("service", "webhook")),
	}
}

func (s *webhookService) Handle(ctx context.Context, body []byte, signature string) error {
	if signature == "" {
		monitoring.TrackSignatureFailure()
		return ErrMissingSignature
	}
	if !gateway.VerifyWebhookSignature(body, signature, s.secret) {
		monitoring.TrackSignatureFailure()
		return ErrInvalidSignature
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if envelope.Event == "" {
		return fmt.Errorf("%w: missing event name", ErrInvalidPayload)
	}

	err := s.dispatch(ctx, envelope, body)
	return s.settle(ctx, envelope, err)
}

func (s *webhookService) dispatch(ctx context.Context, envelope webhookEnvelope, body []byte) error {
	switch envelope.Event {
	case EventPaymentCaptured, EventOrderPaid:
		p := envelope.Payload.Payment.Entity
		if p.OrderID == "" {
			return fmt.Errorf("%w: capture event without order id", ErrInvalidPayload)
		}
		payment, err := s.ledger.MarkCaptured(ctx, p.OrderID, p.ID, body)
		if err != nil {
			return err
		}
		s.notify(ctx, jobs.TypeSendPaymentEmail, payment.ID.String(), map[string]any{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
			"status":     string(payment.Status),
		})
		return nil

	case EventPaymentFailed:
		p := envelope.Payload.Payment.Entity
		if p.OrderID == "" {
			return fmt.Errorf("%w: failure event without order id", ErrInvalidPayload)
		}
		payment, err := s.ledger.MarkFailed(ctx, p.OrderID, p.ID, body)
		if err != nil {
			return err
		}
		s.notify(ctx, jobs.TypeSendPaymentFailed, payment.ID.String(), map[string]any{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
			"error_code": p.ErrorCode,
		})
		return nil

	case EventRefundProcessed:
		r := envelope.Payload.Refund.Entity
		if r.PaymentID == "" || r.ID == "" {
			return fmt.Errorf("%w: refund event without ids", ErrInvalidPayload)
		}
		payment, err := s.ledger.RecordRefund(ctx, r.PaymentID, r.ID, r.Amount, body)
		if err != nil {
			return err
		}
		s.notify(ctx, jobs.TypeSendRefundEmail, payment.ID.String(), map[string]any{
			"payment_id": payment.ID.String(),
			"booking_id": payment.BookingID.String(),
			"amount":     r.Amount,
		})
		return nil

	case EventDisputeCreated:
		d := envelope.Payload.Dispute.Entity
		if d.PaymentID == "" || d.ID == "" {
			return fmt.Errorf("%w: dispute event without ids", ErrInvalidPayload)
		}
		return s.ledger.MarkDisputeCreated(ctx, d.PaymentID, d.ID, body)

	case EventDisputeWon:
		d := envelope.Payload.Dispute.Entity
		if d.PaymentID == "" {
			return fmt.Errorf("%w: dispute event without payment id", ErrInvalidPayload)
		}
		return s.ledger.MarkDisputeWon(ctx, d.PaymentID, body)

	case EventDisputeLost:
		d := envelope.Payload.Dispute.Entity
		if d.PaymentID == "" {
			return fmt.Errorf("%w: dispute event without payment id", ErrInvalidPayload)
		}
		return s.ledger.MarkDisputeLost(ctx, d.PaymentID, body)

	default:
		s.log.Info("Ignoring unhandled webhook event", zap.String("event", envelope.Event))
		monitoring.TrackWebhookEvent(envelope.Event, monitoring.OutcomeIgnored)
		return nil
	}
}

// settle classifies the dispatch result into an HTTP-facing outcome.
// Redeliveries and events for unknown entities are acknowledged, otherwise
// the provider would retry them forever.
func (s *webhookService) settle(ctx context.Context, envelope webhookEnvelope, err error) error {
	switch {
	case err == nil:
		monitoring.TrackWebhookEvent(envelope.Event, monitoring.OutcomeProcessed)
		return nil

	case errors.Is(err, ErrInvalidPayload):
		return err

	case errors.Is(err, ErrAlreadyProcessed):
		s.log.Info("Webhook event already processed",
			zap.String("event", envelope.Event),
			zap.Error(err),
		)
		monitoring.TrackWebhookReplay()
		monitoring.TrackWebhookEvent(envelope.Event, monitoring.OutcomeReplayed)
		return nil

	case errors.Is(err, ErrNotFound):
		s.log.Warn("Webhook event references unknown entities",
			zap.String("event", envelope.Event),
			zap.Error(err),
		)
		monitoring.TrackWebhookEvent(envelope.Event, monitoring.OutcomeUnknown)
		return nil

	default:
		s.log.Error("Webhook event failed, deferring to reconciliation",
			zap.String("event", envelope.Event),
			zap.Error(err),
		)
		monitoring.TrackWebhookEvent(envelope.Event, monitoring.OutcomeError)
		s.enqueueReconcile(ctx, envelope)
		return nil
	}
}

// enqueueReconcile asks the reconciler to re-derive state from the provider
// after a failed apply. Best effort; a full queue only costs a log line since
// the periodic sweep covers the same ground.
func (s *webhookService) enqueueReconcile(ctx context.Context, envelope webhookEnvelope) {
	orderID := envelope.Payload.Payment.Entity.OrderID

	// Refund and dispute events reference the payment directly, capture and
	// failure events reference the order.
	paymentID := envelope.Payload.Payment.Entity.ID
	if paymentID == "" {
		paymentID = envelope.Payload.Refund.Entity.PaymentID
	}
	if paymentID == "" {
		paymentID = envelope.Payload.Dispute.Entity.PaymentID
	}

	key := orderID
	if key == "" {
		key = paymentID
	}
	if key == "" {
		return
	}

	if err := s.queue.Enqueue(ctx, jobs.TypeReconcilePayment, key, map[string]any{
		"provider_order_id":   orderID,
		"provider_payment_id": paymentID,
		"event":               envelope.Event,
	}); err != nil {
		s.log.Error("Failed to enqueue reconciliation for failed webhook", zap.Error(err))
	}
}

func (s *webhookService) notify(ctx context.Context, kind jobs.Type, key string, payload map[string]any) {
	if err := s.queue.Enqueue(ctx, kind, key, payload); err != nil {
		s.log.Warn("Failed to enqueue notification",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
