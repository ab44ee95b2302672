package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zcheck/blogpipe/pkg/metrics"
)

func TestTelegram_SendsHTMLMessage(t *testing.T) {
	var got sendMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/botabc:123/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegram(TelegramConfig{BotToken: "abc:123", ChatID: "-100", APIBase: srv.URL, HTTPClient: srv.Client()})
	n.Notify(context.Background(), "<b>done</b>")

	require.Equal(t, "-100", got.ChatID)
	require.Equal(t, "<b>done</b>", got.Text)
	require.Equal(t, "HTML", got.ParseMode)
}

func TestTelegram_FailureIsSwallowedAndCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.NotificationsFailed)
	n := NewTelegram(TelegramConfig{BotToken: "t", ChatID: "c", APIBase: srv.URL, HTTPClient: srv.Client()})
	require.NotPanics(t, func() { n.Notify(context.Background(), "x") })
	require.Equal(t, before+1, testutil.ToFloat64(metrics.NotificationsFailed))
}

func TestNewTelegram_UnconfiguredIsNop(t *testing.T) {
	require.IsType(t, Nop{}, NewTelegram(TelegramConfig{BotToken: "t"}))
}

func TestEscape(t *testing.T) {
	require.Equal(t, "a &lt;b&gt; &amp; c", Escape("a <b> & c"))
}
