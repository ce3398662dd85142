package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"assistant-gateway/internal/config"
	"assistant-gateway/internal/metrics"
	"assistant-gateway/internal/orchestrator"
	"assistant-gateway/pkg/models"
)

type Handler struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
}

func NewHandler(cfg *config.Config, orch *orchestrator.Orchestrator) *Handler {
	return &Handler{
		Config:       cfg,
		Orchestrator: orch,
	}
}

// ValidateSignature checks the X-Line-Signature header: base64 of the
// HMAC-SHA256 of the raw request body keyed with the channel secret.
func ValidateSignature(channelSecret, signature string, body []byte) bool {
	if channelSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEvents verifies and dispatches one webhook delivery. Verified
// deliveries always get 200, even when individual events fail downstream;
// LINE retries non-2xx deliveries and we never want duplicate processing.
func (h *Handler) HandleEvents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if !ValidateSignature(h.Config.ChannelSecret, c.GetHeader("X-Line-Signature"), body) {
		logrus.Warn("Webhook signature verification failed")
		c.Status(http.StatusForbidden)
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		logrus.WithError(err).Error("Error decoding webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	for _, event := range payload.Events {
		h.dispatch(event)
	}

	c.Status(http.StatusOK)
}

func (h *Handler) dispatch(event models.Event) {
	metrics.WebhookEvents.WithLabelValues(event.Type).Inc()

	switch event.Type {
	case "message":
		if event.Message == nil {
			return
		}
		if event.Message.Type != "text" {
			logrus.WithFields(logrus.Fields{
				"user": event.Source.UserID,
				"type": event.Message.Type,
			}).Debug("Ignoring non-text message")
			return
		}
		logrus.WithField("user", event.Source.UserID).Info("Received text message")
		h.Orchestrator.HandleTextMessage(event.Source.UserID, event.ReplyToken, event.Message.Text)
	case "follow":
		h.Orchestrator.HandleFollow(event.Source.UserID, event.ReplyToken)
	case "unfollow":
		h.Orchestrator.HandleUnfollow(event.Source.UserID)
	default:
		logrus.WithField("type", event.Type).Debug("Ignoring webhook event")
	}
}
