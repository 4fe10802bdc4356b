package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"operation":"READ"}`, `{"operation":"READ"}`, false},
		{"markdown fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"commentary around", `Here you go: {"a":1} hope that helps`, `{"a":1}`, false},
		{"nested braces", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`, false},
		{"no object", "sorry, I cannot help", "", true},
		{"reversed braces", "} {", "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"operation\":\"READ\"}  "}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)
	content, err := client.Complete(context.Background(), CompletionRequest{Model: "test", Prompt: "classify"})
	require.NoError(t, err)
	assert.Equal(t, `{"operation":"READ"}`, content)
}

func TestClientCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "test", Prompt: "classify"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
