package adaptor

import (
	"errors"
	"net/http"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/usecase"
	"trip-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	Admin   *AdminHandler
	Webhook *WebhookHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, log),
		Admin:   NewAdminHandler(service.Booking, service.Confirmation, log),
		Webhook: NewWebhookHandler(service.Webhook, log),
	}
}

// respondServiceError maps service errors to HTTP responses. Classification
// goes through errors.Is on the usecase error kinds; messages are never
// inspected.
func respondServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	var transitionErr *entity.InvalidTransitionError

	switch {
	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrAlreadyProcessed), errors.Is(err, usecase.ErrCapacityFull):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden), errors.As(err, &transitionErr):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidState),
		errors.Is(err, usecase.ErrInvalidAmount):
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrGateway):
		log.Error(operation+" failed - payment gateway", zap.Error(err))
		utils.ResponseBadGateway(w, "Payment gateway unavailable")

	default:
		log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
