package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "12345", time.Second)
	require.NoError(t, client.SendText(context.Background(), "919999999999", "hello"))
	assert.Equal(t, "whatsapp", captured["messaging_product"])
	assert.Equal(t, "919999999999", captured["to"])
	assert.Equal(t, "hello", captured["text"].(map[string]interface{})["body"])
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":131030}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "12345", time.Second)
	err := client.SendText(context.Background(), "911234", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "131030")
}

func TestUploadMediaAndSendDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/12345/media":
			assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
			_, _ = w.Write([]byte(`{"id":"MEDIA42"}`))
		case "/12345/messages":
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"id":"MEDIA42"`)
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token", "12345", time.Second)
	mediaID, err := client.UploadMedia(context.Background(), "receipt.pdf", "application/pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "MEDIA42", mediaID)

	require.NoError(t, client.SendDocument(context.Background(), "919999999999", mediaID, "receipt.pdf", "Payment receipt"))
}
