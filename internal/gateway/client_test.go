package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", KeyID: "rzp_test_key", KeySecret: "s3cret"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://api.example.com", KeyID: "k"})
	require.Error(t, err)
	_, err = NewClient(Config{KeyID: "k", KeySecret: "s"})
	require.Error(t, err)
}

func TestCreateOrder(t *testing.T) {
	var got OrderRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "s3cret", pass)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":64700,"amount_paid":0,"currency":"INR","receipt":"rcpt_1","status":"created","notes":[],"created_at":1777600000}`))
	})

	o, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 64700, Currency: "INR", Receipt: "rcpt_1", Notes: map[string]string{"correlation_id": "corr-1"}})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", o.ID)
	assert.Equal(t, int64(64700), o.Amount)
	assert.Equal(t, "created", o.Status)
	assert.Equal(t, "rzp_test_key", c.KeyID())

	assert.Equal(t, int64(64700), got.Amount)
	assert.Equal(t, "rcpt_1", got.Receipt)
	assert.Equal(t, "corr-1", got.Notes["correlation_id"])
}

func TestCreateOrder_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Order amount less than minimum amount allowed"}}`))
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 1, Currency: "INR", Receipt: "rcpt_1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "minimum amount")
}

func TestCreateOrder_RejectsBadInput(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entity":"order"}`))
	})

	_, err := c.CreateOrder(context.Background(), OrderRequest{Amount: 0, Currency: "INR"})
	require.Error(t, err)
	assert.Equal(t, 0, calls)

	_, err = c.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	require.Error(t, err, "a response without an order id is an error")
	assert.Equal(t, 1, calls)
}
