package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/nursery-checkout/internal/auditlog"
	"github.com/imrishuroy/nursery-checkout/internal/auth"
	"github.com/imrishuroy/nursery-checkout/internal/cart"
	"github.com/imrishuroy/nursery-checkout/internal/checkout"
	"github.com/imrishuroy/nursery-checkout/internal/gateway"
	"github.com/imrishuroy/nursery-checkout/internal/payments"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCheckout struct {
	err error

	ship     payments.Shipping
	identity *auth.Identity
	callback checkout.CallbackRequest
	webhook  struct {
		body      string
		signature string
	}
}

func (s *stubCheckout) ValidateCart(ctx context.Context, id *auth.Identity) (cart.Result, error) {
	s.identity = id
	return cart.Result{Valid: true, Issues: []cart.Issue{}}, s.err
}

func (s *stubCheckout) CreatePaymentIntent(ctx context.Context, id *auth.Identity, ship payments.Shipping, clientIP string) (*checkout.Intent, error) {
	s.identity, s.ship = id, ship
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Intent{GatewayOrderID: "order_abc", Amount: 64700, Currency: "INR", CorrelationID: "corr-1"}, nil
}

func (s *stubCheckout) VerifyClientCallback(ctx context.Context, req checkout.CallbackRequest) (*checkout.VerifyResult, error) {
	s.callback = req
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.VerifyResult{OrderNumber: "NP-1"}, nil
}

func (s *stubCheckout) Cancel(ctx context.Context, id *auth.Identity, gatewayOrderID, reason, clientIP string) error {
	s.identity = id
	return s.err
}

func (s *stubCheckout) HandleWebhook(ctx context.Context, body []byte, signature, clientIP string) (*checkout.WebhookResult, error) {
	s.webhook.body, s.webhook.signature = string(body), signature
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.WebhookResult{Status: checkout.WebhookProcessed, OrderNumber: "NP-1"}, nil
}

type stubLogs struct {
	filter  auditlog.Filter
	page    auditlog.Page
	entries []auditlog.Entry
	err     error
}

func (s *stubLogs) List(ctx context.Context, f auditlog.Filter) (auditlog.Page, error) {
	s.filter = f
	return s.page, s.err
}

func (s *stubLogs) Timeline(ctx context.Context, correlationID string) ([]auditlog.Entry, error) {
	return s.entries, s.err
}

const jwtSecret = "jwt-secret"

func newTestRouter(co *stubCheckout, logs *stubLogs) *gin.Engine {
	return NewRouter(HandlerConfig{
		Checkout:    co,
		PaymentLogs: logs,
		Auth:        auth.NewVerifier(jwtSecret),
	})
}

func token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, err := auth.NewVerifier(jwtSecret).Sign(id, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)
	return "Bearer " + tok
}

func perform(r http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func validShipping() map[string]string {
	return map[string]string{
		"name": "Asha", "phone": "9845012345", "line1": "12 Lalbagh Rd",
		"city": "Bengaluru", "state": "KA", "postal_code": "560004", "country": "in",
	}
}

func TestHealth(t *testing.T) {
	w := perform(newTestRouter(&stubCheckout{}, &stubLogs{}), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateIntent(t *testing.T) {
	co := &stubCheckout{}
	r := newTestRouter(co, &stubLogs{})

	w := perform(r, http.MethodPost, "/checkout/intent", "", validShipping())
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(r, http.MethodPost, "/checkout/intent", token(t, auth.Identity{UserID: "u-1"}), validShipping())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `"order_abc"`, mustField(t, w, "gateway_order_id"))
	assert.Equal(t, "u-1", co.identity.UserID)
	assert.Equal(t, "IN", co.ship.Country)

	bad := validShipping()
	bad["postal_code"] = "12345"
	w = perform(r, http.MethodPost, "/checkout/intent", token(t, auth.Identity{UserID: "u-1"}), bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		key  string
	}{
		{"cart invalid", &checkout.CartInvalidError{Issues: []cart.Issue{{ItemID: "monstera", Issue: cart.IssueOutOfStock, Critical: true}}}, http.StatusUnprocessableEntity, "cart_invalid"},
		{"cart empty", checkout.ErrCartEmpty, http.StatusUnprocessableEntity, "cart_empty"},
		{"cart too large", checkout.ErrCartTooLarge, http.StatusUnprocessableEntity, "cart_too_large"},
		{"gateway", &checkout.GatewayError{Err: errors.New("timeout")}, http.StatusBadGateway, "gateway_unavailable"},
		{"internal", errors.New("dynamodb down"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubCheckout{err: tt.err}, &stubLogs{})
			w := perform(r, http.MethodPost, "/checkout/intent", token(t, auth.Identity{UserID: "u-1"}), validShipping())
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, `"`+tt.key+`"`, mustField(t, w, "error"))
		})
	}
}

func TestVerify(t *testing.T) {
	sig := gateway.PaymentSignature("secret", "order_abc", "pay_xyz")
	req := map[string]string{"gateway_order_id": "order_abc", "gateway_payment_id": "pay_xyz", "signature": sig}

	co := &stubCheckout{}
	w := perform(newTestRouter(co, &stubLogs{}), http.MethodPost, "/checkout/verify", "", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"NP-1"`, mustField(t, w, "order_number"))
	assert.Equal(t, sig, co.callback.Signature)

	tests := []struct {
		err  error
		code int
	}{
		{checkout.ErrSignatureInvalid, http.StatusBadRequest},
		{checkout.ErrPaymentNotFound, http.StatusNotFound},
		{&checkout.MaterializationError{Reference: "corr-1", Reason: "insufficient stock"}, http.StatusConflict},
	}
	for _, tt := range tests {
		w := perform(newTestRouter(&stubCheckout{err: tt.err}, &stubLogs{}), http.MethodPost, "/checkout/verify", "", req)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}

	w = perform(newTestRouter(&stubCheckout{err: &checkout.MaterializationError{Reference: "corr-1"}}, &stubLogs{}), http.MethodPost, "/checkout/verify", "", req)
	assert.JSONEq(t, `"corr-1"`, mustField(t, w, "support_reference"))

	req["signature"] = "not-hex"
	w = perform(newTestRouter(&stubCheckout{}, &stubLogs{}), http.MethodPost, "/checkout/verify", "", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `"validation_failed"`, mustField(t, w, "error"))
}

func TestCancel(t *testing.T) {
	bearer := token(t, auth.Identity{UserID: "u-1"})
	body := map[string]string{"gateway_order_id": "order_abc"}

	co := &stubCheckout{}
	r := newTestRouter(co, &stubLogs{})
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodPost, "/checkout/cancel", "", body).Code)

	w := perform(r, http.MethodPost, "/checkout/cancel", bearer, body)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, co.identity)
	assert.Equal(t, "u-1", co.identity.UserID)

	w = perform(r, http.MethodPost, "/checkout/cancel", bearer, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(newTestRouter(&stubCheckout{err: checkout.ErrPaymentNotOpen}, &stubLogs{}), http.MethodPost, "/checkout/cancel", bearer, body)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "payment_not_open")
}

func TestWebhook(t *testing.T) {
	raw := `{"event":"payment.captured",  "payload":{}}`
	post := func(co *stubCheckout, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(body))
		req.Header.Set(gateway.SignatureHeader, "abc123")
		w := httptest.NewRecorder()
		newTestRouter(co, &stubLogs{}).ServeHTTP(w, req)
		return w
	}

	co := &stubCheckout{}
	w := post(co, raw)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, raw, co.webhook.body, "body is passed through byte for byte")
	assert.Equal(t, "abc123", co.webhook.signature)

	assert.Equal(t, http.StatusBadRequest, post(&stubCheckout{}, "").Code)
	assert.Equal(t, http.StatusBadRequest, post(&stubCheckout{err: checkout.ErrSignatureInvalid}, raw).Code)
	assert.Equal(t, http.StatusBadRequest, post(&stubCheckout{err: gateway.ErrMalformedWebhook}, raw).Code)
	assert.Equal(t, http.StatusInternalServerError, post(&stubCheckout{err: errors.New("throttled")}, raw).Code)
}

func TestPaymentLogs(t *testing.T) {
	logs := &stubLogs{page: auditlog.Page{Items: []auditlog.Entry{{CorrelationID: "corr-1", EventType: auditlog.EventOrderCreated}}, NextPageToken: "tok"}}
	r := newTestRouter(&stubCheckout{}, logs)
	admin := token(t, auth.Identity{UserID: "u-9", Role: auth.RoleAdmin})

	w := perform(r, http.MethodGet, "/admin/payment-logs", token(t, auth.Identity{UserID: "u-1"}), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodGet, "/admin/payment-logs?event_type=ORDER_CREATED&status=SUCCESS&page_size=10&from=2026-05-01T00:00:00Z&to=2026-05-02T00:00:00Z", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"tok"`, mustField(t, w, "next_page_token"))
	assert.Equal(t, auditlog.EventOrderCreated, logs.filter.EventType)
	assert.Equal(t, 10, logs.filter.PageSize)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), logs.filter.From.UTC())

	w = perform(r, http.MethodGet, "/admin/payment-logs?event_type=REFUNDED", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = perform(r, http.MethodGet, "/admin/payment-logs?from=2026-05-02T00:00:00Z&to=2026-05-01T00:00:00Z", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	logs.err = auditlog.ErrInvalidPageToken
	w = perform(r, http.MethodGet, "/admin/payment-logs?page_token=junk", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentLogTimeline(t *testing.T) {
	logs := &stubLogs{}
	r := newTestRouter(&stubCheckout{}, logs)
	admin := token(t, auth.Identity{UserID: "u-9", Role: auth.RoleAdmin})

	w := perform(r, http.MethodGet, "/admin/payment-logs/corr-1", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	logs.entries = []auditlog.Entry{{CorrelationID: "corr-1", EventType: auditlog.EventInitiated}}
	w = perform(r, http.MethodGet, "/admin/payment-logs/corr-1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `"corr-1"`, mustField(t, w, "correlation_id"))
}

func mustField(t *testing.T, w *httptest.ResponseRecorder, key string) string {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	v, ok := body[key]
	require.True(t, ok, "missing %q in %s", key, w.Body.String())
	return string(v)
}
