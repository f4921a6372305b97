package paygate

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"salon-booking/pkg/utils"

	"go.uber.org/zap"
)

// Client adalah HTTP client untuk payment gateway (order + payment API).
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	currency      string
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(config utils.GatewayConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:       config.BaseURL,
		keyID:         config.KeyID,
		keySecret:     config.KeySecret,
		webhookSecret: config.WebhookSecret,
		currency:      config.Currency,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With(zap.String("integration", "paygate")),
	}
}

// Currency returns the configured settlement currency code.
func (c *Client) Currency() string {
	return c.currency
}

// CreateOrder creates a gateway order for the given amount (smallest currency
// unit) with the receipt used later for booking correlation.
func (c *Client) CreateOrder(ctx context.Context, amount int64, receipt string) (*Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amount,
		Currency: c.currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGateway, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Gateway order request failed", zap.Error(err), zap.String("receipt", receipt))
		return nil, fmt.Errorf("%w: execute request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.gatewayError(resp, "create order")
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("%w: decode order response: %v", ErrGateway, err)
	}

	c.log.Info("Gateway order created",
		zap.String("order_id", order.ID),
		zap.Int64("amount", order.Amount),
		zap.String("receipt", receipt),
	)

	return &order, nil
}

// FetchPayment looks up a payment by its gateway id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrGateway, err)
	}

	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("Gateway payment lookup failed", zap.Error(err), zap.String("payment_id", paymentID))
		return nil, fmt.Errorf("%w: execute request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// lanjut
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	default:
		return nil, c.gatewayError(resp, "fetch payment")
	}

	var payment Payment
	if err := json.NewDecoder(resp.Body).Decode(&payment); err != nil {
		return nil, fmt.Errorf("%w: decode payment response: %v", ErrGateway, err)
	}

	return &payment, nil
}

// VerifyPaymentSignature checks the client-confirmed payment signature:
// HMAC-SHA256(key_secret, "<order_id>|<payment_id>") hex encoded.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(c.keySecret), []byte(orderID+"|"+paymentID), signature)
}

// VerifyWebhookSignature checks the webhook signature header against the raw
// request body: HMAC-SHA256(webhook_secret, body) hex encoded.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC([]byte(c.webhookSecret), body, signature)
}

func verifyHMAC(secret, message []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time compare
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) gatewayError(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(resp.Body)

	var gwErr errorResponse
	if err := json.Unmarshal(body, &gwErr); err == nil && gwErr.Error.Description != "" {
		c.log.Error("Gateway rejected request",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("code", gwErr.Error.Code),
			zap.String("description", gwErr.Error.Description),
		)
		return fmt.Errorf("%w: %s: %s", ErrGateway, operation, gwErr.Error.Description)
	}

	c.log.Error("Gateway rejected request",
		zap.String("operation", operation),
		zap.Int("status", resp.StatusCode),
	)
	return fmt.Errorf("%w: %s: unexpected status %d", ErrGateway, operation, resp.StatusCode)
}
