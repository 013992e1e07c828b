package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

type RazorpayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// RazorpayClient talks to the Razorpay REST API with basic auth.
type RazorpayClient struct {
	baseURL   string
	keyID     string
	keySecret string
	hc        *http.Client
	log       *zap.Logger
}

func NewRazorpayClient(config RazorpayConfig, log *zap.Logger) *RazorpayClient {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &RazorpayClient{
		baseURL:   baseURL,
		keyID:     config.KeyID,
		keySecret: config.KeySecret,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With(zap.String("gateway", "razorpay")),
	}
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	body := map[string]any{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}

	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, fmt.Errorf("create order for receipt %s: %w", receipt, err)
	}

	c.log.Info("Provider order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", amount),
		zap.String("receipt", receipt),
	)

	return &order, nil
}

func (c *RazorpayClient) FetchPayment(ctx context.Context, providerPaymentID string) (*RemotePayment, error) {
	var payment RemotePayment
	if err := c.do(ctx, http.MethodGet, "/payments/"+providerPaymentID, nil, &payment); err != nil {
		return nil, fmt.Errorf("fetch payment %s: %w", providerPaymentID, err)
	}
	return &payment, nil
}

func (c *RazorpayClient) Refund(ctx context.Context, providerPaymentID string, amount int64, notes map[string]string) (*Refund, error) {
	body := map[string]any{
		"amount": amount,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/payments/"+providerPaymentID+"/refund", body, &refund); err != nil {
		return nil, fmt.Errorf("refund payment %s: %w", providerPaymentID, err)
	}

	c.log.Info("Provider refund issued",
		zap.String("refund_id", refund.ID),
		zap.String("provider_payment_id", providerPaymentID),
		zap.Int64("amount", amount),
	)

	return &refund, nil
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		payload, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(payload, &failure)

		return &Error{
			StatusCode:  resp.StatusCode,
			Code:        failure.Error.Code,
			Description: failure.Error.Description,
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}
