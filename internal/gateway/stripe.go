package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/pkg/circuit_breaker"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Status is the gateway-side view of a checkout session.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Client talks to the Stripe hosted-checkout REST API. Calls go through a
// circuit breaker; an open breaker or transport failure surfaces as
// errs.ErrGatewayUnavailable.
type Client struct {
	cfg    config.Stripe
	client *http.Client
	cb     circuit_breaker.CircuitBreaker
	log    *zap.Logger
}

func NewClient(cfg config.Stripe, log *zap.Logger) *Client {
	const (
		recordLength     = 20
		timeout          = 30 * time.Second
		percentile       = 0.5
		recoveryRequests = 3
	)
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Minute},
		cb:     circuit_breaker.New(recordLength, timeout, percentile, recoveryRequests),
		log:    log.Named("stripe"),
	}
}

type session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

// CreateSession creates a hosted checkout session for amount (usd) and
// returns its id and url.
func (c *Client) CreateSession(ctx context.Context, amount decimal.Decimal, title, description string) (string, string, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(toCents(amount), 10))
	form.Set("line_items[0][price_data][product_data][name]", title)
	form.Set("line_items[0][price_data][product_data][description]", description)
	form.Set("success_url", c.cfg.SuccessURL+"?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", c.cfg.CancelURL+"?session_id={CHECKOUT_SESSION_ID}")

	var s session
	if err := c.cb.Call(func() error {
		return c.do(ctx, http.MethodPost, "/v1/checkout/sessions", strings.NewReader(form.Encode()), &s)
	}); err != nil {
		c.log.Warn("CreateSession", zap.Error(err))
		return "", "", errors.Wrap(errs.ErrGatewayUnavailable, err.Error())
	}
	return s.ID, s.URL, nil
}

// GetStatus retrieves the session and maps it to a Status.
func (c *Client) GetStatus(ctx context.Context, sessionID string) (Status, error) {
	var s session
	if err := c.cb.Call(func() error {
		return c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+sessionID, nil, &s)
	}); err != nil {
		return "", errors.Wrap(errs.ErrGatewayUnavailable, err.Error())
	}

	switch {
	case s.PaymentStatus == "paid":
		return StatusPaid, nil
	case s.Status == "expired":
		return StatusExpired, nil
	case s.Status == "canceled":
		return StatusCanceled, nil
	default:
		return StatusPending, nil
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10)) //nolint:errcheck
		return errors.Errorf("stripe: %s %s: %d: %s", method, path, resp.StatusCode, data)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
