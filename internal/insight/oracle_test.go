package insight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPOracle_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"analysis\":\"ok\"}"}}]}`))
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(srv.Client(), srv.URL, "key-123", "test-model")
	reply, err := oracle.Complete(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, `{"analysis":"ok"}`, reply)
	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestHTTPOracle_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	_, err := NewHTTPOracle(nil, srv.URL, "", "m").Complete(context.Background(), "hello")
	var oerr *OracleError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, http.StatusTooManyRequests, oerr.StatusCode)
	assert.Equal(t, "slow down", oerr.Message)
}

func TestHTTPOracle_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewHTTPOracle(nil, srv.URL, "", "m").Complete(context.Background(), "hello")
	assert.Error(t, err)
}
