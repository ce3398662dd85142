package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"assistant-gateway/internal/config"
)

// Telegram pings operators when a conversation needs a human. Failures are
// logged and swallowed: bookkeeping never blocks the message path.
type Telegram struct {
	Config *config.Config
	http   *http.Client
}

func NewTelegram(cfg *config.Config) *Telegram {
	return &Telegram{
		Config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (t *Telegram) NotifyOperator(text string) {
	if t.Config.TelegramBotToken == "" || t.Config.TelegramChatID == "" {
		return
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.Config.TelegramBotToken)
	body, err := json.Marshal(sendMessageRequest{ChatID: t.Config.TelegramChatID, Text: text})
	if err != nil {
		logrus.WithError(err).Error("Telegram notify: marshal failed")
		return
	}

	resp, err := t.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		logrus.WithError(err).Error("Telegram notify failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logrus.WithField("status", resp.Status).Error("Telegram notify rejected")
	}
}
