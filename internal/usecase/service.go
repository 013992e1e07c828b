package usecase

import (
	"trip-booking/internal/data/repository"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"
	"trip-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking      BookingService
	Confirmation ConfirmationService
	Ledger       PaymentLedger
	Webhook      WebhookService
	Reconciler   Reconciler
}

func NewService(repo *repository.Repository, tx TxManager, gw gateway.Client, queue jobs.Enqueuer, config *utils.Config, log *zap.Logger) *Service {
	ledger := NewPaymentLedger(repo, tx, gw, queue, log)

	return &Service{
		Booking: NewBookingService(repo, gw, ledger, queue, BookingConfig{
			Provider: "razorpay",
			Currency: config.Razorpay.Currency,
			KeyID:    config.Razorpay.KeyID,
		}, log),
		Confirmation: NewConfirmationService(repo, tx, log),
		Ledger:       ledger,
		Webhook:      NewWebhookService(ledger, queue, config.Razorpay.WebhookSecret, log),
		Reconciler:   NewReconciler(repo, gw, ledger, log),
	}
}
