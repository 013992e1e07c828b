package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"trip-booking/internal/data/entity"
	"trip-booking/internal/gateway"
	"trip-booking/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "whsec_test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func capturedEvent(orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":1000,"status":"captured"}}}}`,
		paymentID, orderID,
	))
}

func newWebhookFixture(t *testing.T) (*memStore, *fakeQueue, WebhookService, *entity.Booking, *entity.Payment) {
	t.Helper()
	store := newMemStore()
	trip := store.addTrip(5, 1000, entity.TripStatusPublished)
	booking := store.addBooking(trip.ID, entity.BookingStatusRequested, 1000)
	payment := store.addPayment(booking.ID, entity.PaymentStatusCreated, 1000, "order_1")

	queue := &fakeQueue{}
	ledger := NewPaymentLedger(store.repo(), store, &fakeGateway{}, queue, zap.NewNop())
	svc := NewWebhookService(ledger, queue, testSecret, zap.NewNop())
	return store, queue, svc, booking, payment
}

func TestWebhookMissingSignature(t *testing.T) {
	_, _, svc, _, _ := newWebhookFixture(t)

	err := svc.Handle(context.Background(), capturedEvent("order_1", "pay_1"), "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestWebhookInvalidSignature(t *testing.T) {
	_, _, svc, _, _ := newWebhookFixture(t)

	err := svc.Handle(context.Background(), capturedEvent("order_1", "pay_1"), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookTamperedBody(t *testing.T) {
	_, _, svc, _, _ := newWebhookFixture(t)

	body := capturedEvent("order_1", "pay_1")
	sig := sign(body)
	tampered := capturedEvent("order_2", "pay_1")

	err := svc.Handle(context.Background(), tampered, sig)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookMalformedPayload(t *testing.T) {
	_, _, svc, _, _ := newWebhookFixture(t)

	body := []byte(`{"not":"an event"}`)
	err := svc.Handle(context.Background(), body, sign(body))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	body = []byte(`not json at all`)
	err = svc.Handle(context.Background(), body, sign(body))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestWebhookCaptureConfirmsBookingAndNotifies(t *testing.T) {
	store, queue, svc, booking, payment := newWebhookFixture(t)

	body := capturedEvent("order_1", "pay_1")
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
	assert.Equal(t, entity.BookingStatusConfirmed, store.bookings[booking.ID].Status)
	assert.Len(t, queue.byType(jobs.TypeSendPaymentEmail), 1)
}

func TestWebhookReplayAckedOnce(t *testing.T) {
	store, queue, svc, _, payment := newWebhookFixture(t)

	body := capturedEvent("order_1", "pay_1")
	sig := sign(body)

	require.NoError(t, svc.Handle(context.Background(), body, sig))
	// Redelivery: acknowledged, no second notification, no state change.
	require.NoError(t, svc.Handle(context.Background(), body, sig))

	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
	assert.Len(t, queue.byType(jobs.TypeSendPaymentEmail), 1)
}

func TestWebhookUnknownOrderAcked(t *testing.T) {
	_, queue, svc, _, _ := newWebhookFixture(t)

	body := capturedEvent("order_unknown", "pay_9")
	err := svc.Handle(context.Background(), body, sign(body))
	assert.NoError(t, err)
	assert.Empty(t, queue.jobs)
}

func TestWebhookUnhandledEventIgnored(t *testing.T) {
	_, queue, svc, _, _ := newWebhookFixture(t)

	body := []byte(`{"event":"invoice.paid","payload":{}}`)
	err := svc.Handle(context.Background(), body, sign(body))
	assert.NoError(t, err)
	assert.Empty(t, queue.jobs)
}

func TestWebhookPaymentFailed(t *testing.T) {
	store, queue, svc, booking, payment := newWebhookFixture(t)

	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","error_code":"BAD_REQUEST_ERROR"}}}}`)
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	assert.Equal(t, entity.PaymentStatusFailed, store.payments[payment.ID].Status)
	assert.Equal(t, entity.BookingPaymentFailed, store.bookings[booking.ID].PaymentStatus)
	assert.Len(t, queue.byType(jobs.TypeSendPaymentFailed), 1)
}

func TestWebhookRefundProcessed(t *testing.T) {
	store, queue, svc, booking, payment := newWebhookFixture(t)

	// Capture first so the payment carries pay_1.
	body := capturedEvent("order_1", "pay_1")
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	refund := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":1000}}}}`)
	require.NoError(t, svc.Handle(context.Background(), refund, sign(refund)))

	stored := store.payments[payment.ID]
	assert.Equal(t, entity.PaymentStatusRefunded, stored.Status)
	assert.Equal(t, int64(1000), stored.RefundedAmount)
	assert.Equal(t, entity.BookingStatusCancelled, store.bookings[booking.ID].Status)
	assert.Len(t, queue.byType(jobs.TypeSendRefundEmail), 1)

	// Redelivered refund is acked without double counting.
	require.NoError(t, svc.Handle(context.Background(), refund, sign(refund)))
	assert.Equal(t, int64(1000), store.payments[payment.ID].RefundedAmount)
	assert.Len(t, queue.byType(jobs.TypeSendRefundEmail), 1)
}

func TestWebhookDisputeEvents(t *testing.T) {
	store, _, svc, _, payment := newWebhookFixture(t)

	body := capturedEvent("order_1", "pay_1")
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	created := []byte(`{"event":"payment.dispute.created","payload":{"dispute":{"entity":{"id":"disp_1","payment_id":"pay_1","amount":1000}}}}`)
	require.NoError(t, svc.Handle(context.Background(), created, sign(created)))
	assert.Equal(t, entity.PaymentStatusDisputed, store.payments[payment.ID].Status)

	won := []byte(`{"event":"payment.dispute.won","payload":{"dispute":{"entity":{"id":"disp_1","payment_id":"pay_1"}}}}`)
	require.NoError(t, svc.Handle(context.Background(), won, sign(won)))
	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
}

func TestWebhookBusinessFailureEnqueuesReconcile(t *testing.T) {
	// An invalid-state apply (dispute on an uncaptured payment) is swallowed
	// so the provider stops redelivering, and reconciliation takes over.
	store, queue, svc, _, payment := newWebhookFixture(t)
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	body := []byte(`{"event":"payment.dispute.created","payload":{"dispute":{"entity":{"id":"disp_1","payment_id":"pay_1"}}}}`)
	err := svc.Handle(context.Background(), body, sign(body))
	assert.NoError(t, err)

	// The job must carry the payment reference the event had, or the
	// reconciler can never find the payment.
	enq := queue.byType(jobs.TypeReconcilePayment)
	require.Len(t, enq, 1)
	assert.Equal(t, "pay_1", enq[0].Payload["provider_payment_id"])
}

func TestWebhookRefundFailureEnqueuesResolvableReconcile(t *testing.T) {
	// Refund events carry no order id; the enqueued job still needs a usable
	// payment reference.
	store, queue, svc, _, payment := newWebhookFixture(t)

	body := capturedEvent("order_1", "pay_1")
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	// Over-amount refund fails the apply and defers to reconciliation.
	refund := []byte(`{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":5000}}}}`)
	require.NoError(t, svc.Handle(context.Background(), refund, sign(refund)))

	enq := queue.byType(jobs.TypeReconcilePayment)
	require.Len(t, enq, 1)
	assert.Equal(t, "pay_1", enq[0].Payload["provider_payment_id"])

	// The job resolves the payment instead of dying on a missing reference.
	gw := &fakeGateway{}
	ledger := NewPaymentLedger(store.repo(), store, gw, &fakeQueue{}, zap.NewNop())
	handler := ReconcileJobHandler(NewReconciler(store.repo(), gw, ledger, zap.NewNop()))

	require.NoError(t, handler(context.Background(), jobs.Job{Type: jobs.TypeReconcilePayment, Payload: enq[0].Payload}))
	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
}

func TestWebhookFailureRepairRoundTrip(t *testing.T) {
	// A dispute arrives before the capture webhook ever did. The apply fails,
	// and the enqueued job repairs the missed capture from the provider.
	store, queue, svc, booking, payment := newWebhookFixture(t)
	payment.ProviderPaymentID = str("pay_1")
	store.payments[payment.ID] = payment

	body := []byte(`{"event":"payment.dispute.created","payload":{"dispute":{"entity":{"id":"disp_1","payment_id":"pay_1"}}}}`)
	require.NoError(t, svc.Handle(context.Background(), body, sign(body)))

	enq := queue.byType(jobs.TypeReconcilePayment)
	require.Len(t, enq, 1)

	gw := &fakeGateway{fetchResult: &gateway.RemotePayment{
		ID:      "pay_1",
		OrderID: "order_1",
		Amount:  1000,
		Status:  gateway.RemoteStatusCaptured,
	}}
	ledger := NewPaymentLedger(store.repo(), store, gw, &fakeQueue{}, zap.NewNop())
	handler := ReconcileJobHandler(NewReconciler(store.repo(), gw, ledger, zap.NewNop()))

	require.NoError(t, handler(context.Background(), jobs.Job{Type: jobs.TypeReconcilePayment, Payload: enq[0].Payload}))
	assert.Equal(t, 1, gw.fetchCalls)
	assert.Equal(t, entity.PaymentStatusCaptured, store.payments[payment.ID].Status)
	assert.Equal(t, entity.BookingStatusConfirmed, store.bookings[booking.ID].Status)
}
