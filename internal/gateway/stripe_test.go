package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/errs"
	"github.com/IvanGLS/library-service-project/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T, h http.HandlerFunc) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return gateway.NewClient(config.Stripe{
		SecretKey:  "sk_test",
		BaseURL:    srv.URL,
		SuccessURL: "http://localhost:8080/api/v1/payments/success",
		CancelURL:  "http://localhost:8080/api/v1/payments/cancel",
	}, zap.NewExample().Named("test"))
}

func TestClient_CreateSession(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		require.Equal(t, "payment", r.PostForm.Get("mode"))
		require.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		require.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		// 7.00 usd -> 700 cents
		require.Equal(t, "700", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		require.Equal(t, "Kobzar", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		require.Equal(t, "Book borrowing fee", r.PostForm.Get("line_items[0][price_data][product_data][description]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.test/cs_test_1"}`))
	})

	sessionID, sessionURL, err := client.CreateSession(context.Background(),
		decimal.RequireFromString("7.00"), "Kobzar", "Book borrowing fee")
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", sessionID)
	require.Equal(t, "https://checkout.test/cs_test_1", sessionURL)
}

func TestClient_CreateSession_GatewayError(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	})

	_, _, err := client.CreateSession(context.Background(),
		decimal.RequireFromString("7.00"), "Kobzar", "Book borrowing fee")
	require.ErrorIs(t, err, errs.ErrGatewayUnavailable)
}

func TestClient_GetStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want gateway.Status
	}{
		{
			name: "paid",
			body: `{"id":"cs_test_1","status":"complete","payment_status":"paid"}`,
			want: gateway.StatusPaid,
		},
		{
			name: "expired",
			body: `{"id":"cs_test_1","status":"expired","payment_status":"unpaid"}`,
			want: gateway.StatusExpired,
		},
		{
			name: "still pending",
			body: `{"id":"cs_test_1","status":"open","payment_status":"unpaid"}`,
			want: gateway.StatusPending,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			status, err := client.GetStatus(context.Background(), "cs_test_1")
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
		})
	}
}
