package usecase

import (
	"context"
	"testing"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/gateway"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReconcileFixture(gw *fakeGateway) (*memStore, Reconciler) {
	store := newMemStore()
	ledger := NewPaymentLedger(store.repo(), store, gw, &fakeQueue{}, zap.NewNop())
	return store, NewReconciler(store.repo(), gw, ledger, zap.NewNop())
}

func TestReconcileAppliesMissedCapture(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	gw.fetchResult = &gateway.RemotePayment{
		ID:      "pay_1",
		OrderID: "order_1",
		Amount:  1000,
		Status:  gateway.RemoteStatusCaptured,
	}

	err := rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID})
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
	assert.Equal(t, entity.BookingStatusConfirmed, store.bookings[booking.ID].Status)
}

func TestReconcileAppliesMissedFailure(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	gw.fetchResult = &gateway.RemotePayment{ID: "pay_1", OrderID: "order_1", Status: gateway.RemoteStatusFailed}

	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID}))
	assert.Equal(t, entity.PaymentStatusFailed, store.payments[payment.ID].Status)
	assert.Equal(t, entity.BookingPaymentFailed, store.bookings[booking.ID].PaymentStatus)
}

func TestReconcileTerminalPaymentNoFetch(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusConfirmed, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCaptured, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID}))
	assert.Zero(t, gw.fetchCalls)
}

func TestReconcileMissingPaymentIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	_, rec := newReconcileFixture(gw)

	id := uuid.New()
	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &id}))
	assert.Zero(t, gw.fetchCalls)
}

func TestReconcileNoProviderPaymentIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")

	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID}))
	assert.Zero(t, gw.fetchCalls)
}

func TestReconcileGatewayErrorPropagates(t *testing.T) {
	// The job queue retries on error, so gateway failures must surface.
	gw := &fakeGateway{fetchErr: assert.AnError}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	err := rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID})
	assert.Error(t, err)
}

func TestReconcileByProviderOrderID(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")

	gw.fetchResult = &gateway.RemotePayment{ID: "pay_1", OrderID: "order_1", Status: gateway.RemoteStatusCaptured}

	// Provider identifiers only, as enqueued from a failed webhook apply.
	err := rec.Reconcile(context.Background(), ReconcileRequest{
		ProviderOrderID:   "order_1",
		ProviderPaymentID: "pay_1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, store.bookings[booking.ID].Status)
}

func TestReconcileByProviderPaymentIDOnly(t *testing.T) {
	// Refund and dispute webhooks reference the payment, not the order.
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	gw.fetchResult = &gateway.RemotePayment{ID: "pay_1", OrderID: "order_1", Status: gateway.RemoteStatusCaptured}

	err := rec.Reconcile(context.Background(), ReconcileRequest{ProviderPaymentID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.fetchCalls)
	assert.Equal(t, entity.BookingStatusConfirmed, store.bookings[booking.ID].Status)
}

func TestReconcileAfterCaptureAlreadyApplied(t *testing.T) {
	// Webhook applied the capture, then the reconcile job for the same payment
	// runs. It must see terminal state or an already-processed apply, not error.
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")

	ledger := NewPaymentLedger(store.repo(), store, gw, &fakeQueue{}, zap.NewNop())
	_, err := ledger.MarkCaptured(context.Background(), "order_1", "pay_1", nil)
	require.NoError(t, err)

	gw.fetchResult = &gateway.RemotePayment{ID: "pay_1", OrderID: "order_1", Status: gateway.RemoteStatusCaptured}
	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID}))
	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
}

func TestReconcilePendingRemoteIsNoop(t *testing.T) {
	gw := &fakeGateway{}
	store, rec := newReconcileFixture(gw)

	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	gw.fetchResult = &gateway.RemotePayment{ID: "pay_1", OrderID: "order_1", Status: gateway.RemoteStatusAuthorized}

	require.NoError(t, rec.Reconcile(context.Background(), ReconcileRequest{PaymentID: &payment.ID}))
	assert.Equal(t, entity.PaymentStatusCreated, store.payments[payment.ID].Status)
}
