package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineClient_Authorize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pipe-1", body["pipeline_id"])

		_ = json.NewEncoder(w).Encode(map[string]string{"client_session_key": "csk", "session_id": "vs-1"})
	}))
	defer srv.Close()

	c := NewPipelineClient(srv.URL, "key-1", "pipe-1")
	out, err := c.Authorize(context.Background(), AuthorizeRequest{Metadata: map[string]string{"interview_session_id": "s1"}})
	require.NoError(t, err)
	assert.Equal(t, "csk", out.ClientSessionKey)
	assert.Equal(t, "vs-1", out.SessionID)
}

func TestPipelineClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewPipelineClient(srv.URL, "k", "p").Authorize(context.Background(), AuthorizeRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPipelineClient_NotConfigured(t *testing.T) {
	_, err := NewPipelineClient("http://unused", "", "").Authorize(context.Background(), AuthorizeRequest{})
	assert.Error(t, err)
}
