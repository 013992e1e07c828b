package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"trip-booking/internal/usecase"

	"go.uber.org/zap"
)

// signatureHeader is where the provider puts its HMAC over the raw body.
const signatureHeader = "X-Razorpay-Signature"

// maxWebhookBody caps webhook reads at 1 MiB.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// HandleWebhook handles POST /api/webhooks/razorpay. The provider expects a
// plain acknowledgement body, not the API envelope; 2xx stops redelivery and
// anything else triggers it.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.log.Error("Failed to read webhook body", zap.Error(err))
		h.respond(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "unreadable body"},
		})
		return
	}

	err = h.service.Handle(r.Context(), body, r.Header.Get(signatureHeader))
	switch {
	case err == nil:
		h.respond(w, http.StatusOK, map[string]any{"received": true})

	case errors.Is(err, usecase.ErrMissingSignature), errors.Is(err, usecase.ErrInvalidSignature):
		h.log.Warn("Webhook signature rejected", zap.Error(err))
		h.respond(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "SIGNATURE_VERIFICATION_FAILED", "message": "invalid signature"},
		})

	case errors.Is(err, usecase.ErrInvalidPayload):
		h.log.Warn("Webhook payload rejected", zap.Error(err))
		h.respond(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST", "message": "invalid payload"},
		})

	default:
		h.log.Error("Webhook handling failed", zap.Error(err))
		h.respond(w, http.StatusInternalServerError, map[string]any{
			"error": map[string]string{"code": "SERVER_ERROR", "message": "internal error"},
		})
	}
}

func (h *WebhookHandler) respond(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
