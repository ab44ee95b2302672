package deploy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/pkg/httpx"
)

func TestHook_ReturnsJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		require.Empty(t, b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"job":{"id":"dpl_123","state":"PENDING"}}`))
	}))
	defer srv.Close()

	id, ok, err := NewHook(srv.URL, srv.Client()).Trigger(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dpl_123", id)
}

func TestHook_NoJobIsTriggered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	id, _, err := NewHook(srv.URL, srv.Client()).Trigger(context.Background())
	require.NoError(t, err)
	require.Equal(t, Triggered, id)
}

func TestHook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	_, _, err := NewHook(srv.URL, srv.Client()).Trigger(context.Background())
	var apiErr *httpx.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "nope", apiErr.Body)
}

func TestHook_Unconfigured(t *testing.T) {
	var h *Hook = NewHook("", nil)
	id, ok, err := h.Trigger(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, id)
}
