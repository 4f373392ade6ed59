package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrGateway is the umbrella error for any payment provider failure
	ErrGateway = errors.New("payment gateway error")
	// ErrNotConfigured is returned when API credentials are missing
	ErrNotConfigured = errors.New("payment gateway not configured")
	// ErrRefundInProgress is returned while another refund for the same payment is running
	ErrRefundInProgress = errors.New("refund already in progress for payment")
)

// GatewayError carries the provider's failure details. It unwraps to ErrGateway.
type GatewayError struct {
	Op          string
	StatusCode  int // 0 for network failures
	Code        string
	Description string
	Err         error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %v", ErrGateway, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: status %d %s %s", ErrGateway, e.Op, e.StatusCode, e.Code, e.Description)
}

// Unwrap lets callers match with errors.Is(err, ErrGateway)
func (e *GatewayError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGateway, e.Err}
	}
	return []error{ErrGateway}
}

// Temporary reports whether retrying the call may succeed
func (e *GatewayError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds Razorpay credentials and call policy
type Config struct {
	KeyID          string
	KeySecret      string
	APIURL         string
	Currency       string
	MaxAttempts    int           // order creation attempts, at least 1
	RetryBaseDelay time.Duration // doubled after every failed attempt
	RefundSpeed    string
	Timeout        time.Duration
}

// Order is a provider-side payment intent
type Order struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Refund is a provider-side refund of a captured payment
type Refund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	Speed     string `json:"speed_requested,omitempty"`
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type refundRequest struct {
	Amount int64  `json:"amount"`
	Speed  string `json:"speed,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// RazorpayGateway talks to the Razorpay Orders and Refunds APIs
type RazorpayGateway struct {
	config Config
	logger *logrus.Logger
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	refunds map[string]*refundGuard
}

// refundGuard tracks one payment's refund within this process
type refundGuard struct {
	inFlight bool
	result   *Refund
}

// NewRazorpayGateway creates a new gateway client
func NewRazorpayGateway(cfg Config, logger *logrus.Logger) *RazorpayGateway {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return &RazorpayGateway{
		config:  cfg,
		logger:  logger,
		client:  &http.Client{Timeout: cfg.Timeout},
		sleep:   sleepContext,
		refunds: make(map[string]*refundGuard),
	}
}

// IsConfigured reports whether API credentials are present
func (g *RazorpayGateway) IsConfigured() bool {
	return g.config.KeyID != "" && g.config.KeySecret != ""
}

// Currency returns the currency orders are created in
func (g *RazorpayGateway) Currency() string {
	return g.config.Currency
}

// KeyID returns the public key id the checkout widget needs
func (g *RazorpayGateway) KeyID() string {
	return g.config.KeyID
}

// CreateOrder creates an order for amountMinor (paise for INR).
// Transient failures are retried with exponential backoff up to MaxAttempts.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*Order, error) {
	if !g.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if amountMinor <= 0 {
		return nil, fmt.Errorf("order amount must be positive, got %d", amountMinor)
	}
	if receipt == "" {
		receipt = "rcpt_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
	}

	req := orderRequest{Amount: amountMinor, Currency: g.config.Currency, Receipt: receipt}

	var lastErr error
	delay := g.config.RetryBaseDelay
	for attempt := 1; attempt <= g.config.MaxAttempts; attempt++ {
		var order Order
		err := g.do(ctx, "create order", http.MethodPost, "/orders", req, &order)
		if err == nil {
			g.logger.WithFields(logrus.Fields{
				"order_id": order.ID,
				"amount":   order.Amount,
				"receipt":  receipt,
				"attempt":  attempt,
			}).Info("Payment order created")
			return &order, nil
		}

		lastErr = err
		var gwErr *GatewayError
		if !errors.As(err, &gwErr) || !gwErr.Temporary() || attempt == g.config.MaxAttempts {
			break
		}

		g.logger.WithError(err).WithFields(logrus.Fields{
			"attempt":  attempt,
			"retry_in": delay.String(),
		}).Warn("Payment order creation failed, retrying")

		if err := g.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
	}

	g.logger.WithError(lastErr).WithField("receipt", receipt).Error("Payment order creation failed")
	return nil, lastErr
}

// FetchOrder loads an order by id
func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if !g.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var order Order
	if err := g.do(ctx, "fetch order", http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Refund refunds amountMinor against paymentID. It is never retried automatically.
// A second call for a payment already refunded by this process returns the first
// result; a concurrent call fails with ErrRefundInProgress.
func (g *RazorpayGateway) Refund(ctx context.Context, paymentID string, amountMinor int64) (*Refund, error) {
	if !g.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if paymentID == "" {
		return nil, fmt.Errorf("payment id is required for a refund")
	}

	g.mu.Lock()
	guard, seen := g.refunds[paymentID]
	switch {
	case seen && guard.result != nil:
		g.mu.Unlock()
		return guard.result, nil
	case seen && guard.inFlight:
		g.mu.Unlock()
		return nil, ErrRefundInProgress
	}
	guard = &refundGuard{inFlight: true}
	g.refunds[paymentID] = guard
	g.mu.Unlock()

	var refund Refund
	err := g.do(ctx, "refund payment", http.MethodPost, "/payments/"+paymentID+"/refund",
		refundRequest{Amount: amountMinor, Speed: g.config.RefundSpeed}, &refund)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		delete(g.refunds, paymentID)
		g.logger.WithError(err).WithField("payment_id", paymentID).Error("Refund failed")
		return nil, err
	}
	guard.inFlight = false
	guard.result = &refund

	g.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"refund_id":  refund.ID,
		"amount":     refund.Amount,
		"status":     refund.Status,
	}).Info("Refund issued")

	return &refund, nil
}

// VerifySignature checks a checkout signature with the configured key secret
func (g *RazorpayGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(g.config.KeySecret, orderID, paymentID, signature)
}

// Sign computes the hex HMAC-SHA256 of "orderID|paymentID" keyed by secret
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the expected signature with the submitted one in constant time
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *RazorpayGateway) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.config.APIURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.SetBasicAuth(g.config.KeyID, g.config.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, Err: err}
	}

	g.logger.WithFields(logrus.Fields{
		"op":          op,
		"status_code": resp.StatusCode,
	}).Debug("Razorpay response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &GatewayError{Op: op, StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			gwErr.Code = errResp.Error.Code
			gwErr.Description = errResp.Error.Description
		}
		return gwErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
