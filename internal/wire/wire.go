// internal/wire/wire.go
package wire

import (
	"context"
	"net/http"
	"time"

	"trip-booking/internal/adaptor"
	"trip-booking/internal/data/repository"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"
	"trip-booking/internal/usecase"
	"trip-booking/pkg/database"
	"trip-booking/pkg/middleware"
	"trip-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router *chi.Mux
	Queue  *jobs.Queue
}

// Wiring menginisialisasi semua dependencies
func Wiring(repo *repository.Repository, db database.PgxIface, config *utils.Config, logger *zap.Logger) *App {
	gatewayClient := gateway.NewRazorpayClient(gateway.RazorpayConfig{
		BaseURL:   config.Razorpay.BaseURL,
		KeyID:     config.Razorpay.KeyID,
		KeySecret: config.Razorpay.KeySecret,
	}, logger)

	queue := jobs.NewQueue(jobs.Config{
		Workers:     config.Worker.Count,
		QueueSize:   config.Worker.QueueSize,
		MaxAttempts: config.Worker.MaxAttempts,
		BaseBackoff: time.Duration(config.Worker.BackoffSeconds) * time.Second,
	}, logger)

	// Initialize services dan handlers
	service := usecase.NewService(repo, db, gatewayClient, queue, config, logger)
	handler := adaptor.NewHandler(service, logger)

	registerJobHandlers(queue, service, logger)

	// Setup router
	router := setupRouter(handler, db, logger)

	return &App{
		Router: router,
		Queue:  queue,
	}
}

// registerJobHandlers binds queue job types to their workers.
func registerJobHandlers(queue *jobs.Queue, service *usecase.Service, logger *zap.Logger) {
	notifier := jobs.NewLogNotifier(logger)

	for _, jobType := range []jobs.Type{
		jobs.TypeSendBookingEmail,
		jobs.TypeSendPaymentEmail,
		jobs.TypeSendPaymentFailed,
		jobs.TypeSendRefundEmail,
	} {
		jt := jobType
		queue.Register(jt, func(ctx context.Context, job jobs.Job) error {
			return notifier.Notify(ctx, jt, job.Payload)
		})
	}

	queue.Register(jobs.TypeReconcilePayment, usecase.ReconcileJobHandler(service.Reconciler))
}

// setupRouter konfigurasi Chi router
func setupRouter(
	handler *adaptor.Handler,
	db database.PgxIface,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	// Apply routes
	wireBooking(r, handler.Booking, logger)
	wireAdmin(r, handler.Admin, logger)
	wireWebhook(r, handler.Webhook)

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("DB DOWN"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
