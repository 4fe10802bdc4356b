package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"payment.captured"}`)
	secret := "whsec"

	assert.True(t, VerifyWebhookSignature(body, sign(body, secret), secret))
	assert.False(t, VerifyWebhookSignature(body, sign(body, "other"), secret))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
	assert.False(t, VerifyWebhookSignature(body, sign(body, secret), ""))
	assert.False(t, VerifyWebhookSignature([]byte(`tampered`), sign(body, secret), secret))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"amount":400000`)
		_, _ = w.Write([]byte(`{"id":"order_1","amount":400000,"currency":"INR","status":"created","notes":{"stud_id":"STU001"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", time.Second)
	order, err := client.CreateOrder(context.Background(), OrderRequest{
		Amount:   400000,
		Currency: "INR",
		Receipt:  "fee_STU001",
		Notes:    map[string]string{"stud_id": "STU001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, "STU001", order.Notes["stud_id"])
}

func TestFetchOrderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"description":"order not found"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", time.Second)
	_, err := client.FetchOrder(context.Background(), "order_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
