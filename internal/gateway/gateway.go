package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Remote payment statuses as reported by the provider.
const (
	RemoteStatusCreated    = "created"
	RemoteStatusAuthorized = "authorized"
	RemoteStatusCaptured   = "captured"
	RemoteStatusFailed     = "failed"
	RemoteStatusRefunded   = "refunded"
)

// Order is a provider-side order created before checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// RemotePayment is the provider's view of a payment, used as ground truth
// during reconciliation.
type RemotePayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// Refund is the provider's record of an issued refund.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// Error carries the provider's failure details for upstream classification.
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Client is the payment-provider surface this core consumes. One provider
// integration is assumed; swapping providers means another implementation of
// this interface.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	FetchPayment(ctx context.Context, providerPaymentID string) (*RemotePayment, error)
	Refund(ctx context.Context, providerPaymentID string, amount int64, notes map[string]string) (*Refund, error)
}

// VerifyWebhookSignature checks the provider's HMAC-SHA256 signature over the
// raw request body. The body must be the original bytes; re-serialized JSON
// changes the digest.
func VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
