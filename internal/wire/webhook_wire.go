package wire

import (
	"trip-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireWebhook(
	r chi.Router,
	webhookHandler *adaptor.WebhookHandler,
) {
	// POST /api/webhooks/razorpay - Provider event ingestion. No actor
	// middleware; authentication is the HMAC signature over the body.
	r.Post("/api/webhooks/razorpay", webhookHandler.HandleWebhook)
}
