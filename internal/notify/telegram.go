package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/IvanGLS/library-service-project/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TelegramSender delivers plain-text messages to the configured chat via the
// bot sendMessage endpoint.
type TelegramSender struct {
	cfg    config.Telegram
	client *http.Client
	log    *zap.Logger
}

func NewTelegramSender(cfg config.Telegram, log *zap.Logger) *TelegramSender {
	return &TelegramSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.Named("telegram"),
	}
}

func (s *TelegramSender) Send(ctx context.Context, text string) error {
	u := fmt.Sprintf("%s/bot%s/sendMessage?chat_id=%s&text=%s",
		s.cfg.BaseURL, s.cfg.BotToken, url.QueryEscape(s.cfg.ChatID), url.QueryEscape(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Ok          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if !result.Ok {
		return errors.Errorf("telegram sendMessage: %s", result.Description)
	}
	return nil
}
