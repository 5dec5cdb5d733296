package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IvanGLS/library-service-project/config"
	"github.com/IvanGLS/library-service-project/internal/notify"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTelegramSender_Send(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken123/sendMessage", r.URL.Path)
		require.Equal(t, "42", r.URL.Query().Get("chat_id"))
		require.Equal(t, "No borrowings overdue today!", r.URL.Query().Get("text"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	sender := notify.NewTelegramSender(config.Telegram{
		BotToken: "token123",
		ChatID:   "42",
		BaseURL:  srv.URL,
	}, zap.NewExample().Named("test"))

	require.NoError(t, sender.Send(context.Background(), "No borrowings overdue today!"))
}

func TestTelegramSender_Send_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	t.Cleanup(srv.Close)

	sender := notify.NewTelegramSender(config.Telegram{
		BotToken: "token123",
		ChatID:   "42",
		BaseURL:  srv.URL,
	}, zap.NewExample().Named("test"))

	err := sender.Send(context.Background(), "hello")
	require.ErrorContains(t, err, "chat not found")
}
