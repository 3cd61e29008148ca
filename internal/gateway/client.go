package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const ordersPath = "/v1/orders"

// Config configures the gateway REST client.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// OrderRequest creates a gateway order. Amount is in the smallest currency unit.
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway's view of an order.
type Order struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Notes      json.RawMessage `json:"notes"` // object, or [] when empty
	CreatedAt  int64           `json:"created_at"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Description == "" {
		return fmt.Sprintf("gateway: http %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway: http %d: %s: %s", e.StatusCode, e.Code, e.Description)
}

type errorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Client talks to a Razorpay-compatible orders API.
type Client struct {
	http  *resty.Client
	keyID string
}

// NewClient builds a Client authenticated with the key id and secret.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.KeySecret) == "" {
		return nil, errors.New("gateway: key id and key secret are required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway: base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: rc, keyID: cfg.KeyID}, nil
}

// KeyID is the public key the client-side checkout sheet is opened with.
func (c *Client) KeyID() string { return c.keyID }

// CreateOrder registers a new order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("gateway: amount must be positive, got %d", req.Amount)
	}
	var (
		out     Order
		errBody errorBody
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errBody).
		Post(ordersPath)
	if err != nil {
		return nil, fmt.Errorf("gateway: create order: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{
			StatusCode:  resp.StatusCode(),
			Code:        errBody.Error.Code,
			Description: errBody.Error.Description,
		}
	}
	if out.ID == "" {
		return nil, errors.New("gateway: create order: response has no order id")
	}
	return &out, nil
}
