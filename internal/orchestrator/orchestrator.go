package orchestrator

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"assistant-gateway/internal/line"
	"assistant-gateway/internal/metrics"
	"assistant-gateway/internal/models"
	"assistant-gateway/internal/renderer"
	"assistant-gateway/internal/template"
)

const apologyText = "Sorry, I can't answer that right now. Please try again in a moment."
const handoffAckText = "Got it, I'm connecting you to a staff member. Please wait a moment."

// handoffPhrases flip a user to manual mode when they appear in a message.
var handoffPhrases = []string{
	"talk to a human",
	"human agent",
	"real person",
	"contact staff",
	"talk to staff",
}

// LineAPI is the slice of the LINE client the orchestrator uses.
type LineAPI interface {
	ReplyMessage(replyToken string, messages ...line.Message) error
	PushMessage(to string, messages ...line.Message) error
	GetProfile(userID string) (*line.Profile, error)
}

// Generator produces a reply when no template matches.
type Generator interface {
	Complete(userMessage string) (string, error)
}

// Notifier alerts operators about manual-mode handoffs.
type Notifier interface {
	NotifyOperator(text string)
}

// Broadcaster pushes conversation events to the dashboard.
type Broadcaster interface {
	NotifyMessage(msg models.ChatMessage)
	NotifyUser(user models.User, action string)
}

// Orchestrator routes one inbound event at a time: persist the turn, pick a
// template or fall back to the generative path, dispatch the reply, and log
// usage exactly once per dispatched template.
type Orchestrator struct {
	db       *gorm.DB
	store    *template.Store
	selector *template.Selector
	line     LineAPI
	ai       Generator
	notifier Notifier
	hub      Broadcaster
}

func New(db *gorm.DB, store *template.Store, selector *template.Selector, lineAPI LineAPI, generator Generator, notifier Notifier, hub Broadcaster) *Orchestrator {
	return &Orchestrator{
		db:       db,
		store:    store,
		selector: selector,
		line:     lineAPI,
		ai:       generator,
		notifier: notifier,
		hub:      hub,
	}
}

// HandleTextMessage processes one inbound text message.
func (o *Orchestrator) HandleTextMessage(userID, replyToken, text string) {
	user := o.ensureUser(userID)
	o.saveMessage(userID, text, true)

	if user.BlockedAt != nil {
		logrus.WithField("user", userID).Debug("Ignoring message from blocked user")
		return
	}

	if wantsHuman(text) {
		o.switchToManual(user, text, replyToken)
		return
	}

	if user.Mode != "bot" {
		// Manual mode: the operator answers from the dashboard, which
		// already received the turn via the hub.
		return
	}

	o.respond(userID, replyToken, text)
}

// HandleFollow handles a new follower or a returning one.
func (o *Orchestrator) HandleFollow(userID, replyToken string) {
	var user models.User
	err := o.db.Where("line_id = ?", userID).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := o.ensureUser(userID)
		o.hub.NotifyUser(*created, "add")
	case err != nil:
		logrus.WithError(err).Error("Follow: user lookup failed")
		return
	case user.BlockedAt != nil:
		user.BlockedAt = nil
		if err := o.db.Save(&user).Error; err != nil {
			logrus.WithError(err).Error("Follow: unblock failed")
		}
		o.logEvent(userID, "renew")
		o.hub.NotifyUser(user, "renew")
	}

	if replyToken != "" {
		o.respond(userID, replyToken, "hello greeting welcome")
	}
}

// HandleUnfollow marks the user blocked so the gateway stops replying.
func (o *Orchestrator) HandleUnfollow(userID string) {
	now := time.Now()
	var user models.User
	if err := o.db.Where("line_id = ?", userID).First(&user).Error; err != nil {
		logrus.WithError(err).WithField("user", userID).Warn("Unfollow for unknown user")
		return
	}
	user.BlockedAt = &now
	if err := o.db.Save(&user).Error; err != nil {
		logrus.WithError(err).Error("Unfollow: update failed")
		return
	}
	o.logEvent(userID, "unfollow")
	o.hub.NotifyUser(user, "block")
}

// respond answers with a template when the selector finds one, otherwise
// through the generative fallback. Template absence is a normal branch.
func (o *Orchestrator) respond(userID, replyToken, text string) {
	req := template.SelectionRequest{
		Context:     text,
		UserMessage: text,
		Tags:        strings.Fields(strings.ToLower(text)),
	}

	tpl, err := o.selector.Select(req)
	if err != nil {
		logrus.WithError(err).Error("Template selection failed")
		tpl = nil
	}

	if tpl != nil {
		msg, rerr := renderer.Build(tpl.Kind, tpl.Content)
		var malformed *renderer.MalformedContentError
		switch {
		case rerr == nil:
		case errors.As(rerr, &malformed):
			// Fallback text was returned and is still sendable.
			logrus.WithField("template_id", tpl.ID).WithError(rerr).Warn("Template content malformed, sending diagnostic fallback")
			metrics.RenderFallbacks.Inc()
		default:
			logrus.WithField("template_id", tpl.ID).WithError(rerr).Error("Template unrenderable, taking generative path")
			tpl = nil
		}

		if tpl != nil {
			sendErr := o.line.ReplyMessage(replyToken, msg)
			if sendErr != nil {
				metrics.DeliveryFailures.Inc()
				logrus.WithError(sendErr).Error("Reply delivery failed")
			}
			if _, logErr := o.store.LogUsage(tpl.ID, userID, "auto-reply: "+text, sendErr == nil); logErr != nil {
				logrus.WithError(logErr).Warn("Usage logging failed")
			}
			o.saveMessage(userID, outboundText(msg), false)
			metrics.TemplateReplies.Inc()
			return
		}
	}

	replyText, aiErr := o.ai.Complete(text)
	if aiErr != nil {
		logrus.WithError(aiErr).Warn("Generative fallback unavailable")
		replyText = apologyText
	}
	if err := o.line.ReplyMessage(replyToken, line.NewTextMessage(replyText)); err != nil {
		metrics.DeliveryFailures.Inc()
		logrus.WithError(err).Error("Reply delivery failed")
	}
	o.saveMessage(userID, replyText, false)
	metrics.GenerativeReplies.Inc()
}

func (o *Orchestrator) switchToManual(user *models.User, text, replyToken string) {
	user.Mode = "manual"
	if err := o.db.Save(user).Error; err != nil {
		logrus.WithError(err).Error("Mode switch failed")
		return
	}
	o.logEvent(user.LineID, "mode_switch")
	o.hub.NotifyUser(*user, "mode_switch")
	o.notifier.NotifyOperator("User " + user.Name + " (" + user.LineID + ") asked for a human: " + text)

	if err := o.line.ReplyMessage(replyToken, line.NewTextMessage(handoffAckText)); err != nil {
		metrics.DeliveryFailures.Inc()
		logrus.WithError(err).Error("Handoff ack delivery failed")
	}
	o.saveMessage(user.LineID, handoffAckText, false)
}

// ensureUser loads the user, creating a record on first contact. Profile
// fetch failures fall back to placeholder fields, matching follow handling.
func (o *Orchestrator) ensureUser(userID string) *models.User {
	var user models.User
	err := o.db.Where("line_id = ?", userID).First(&user).Error
	if err == nil {
		return &user
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithError(err).Error("User lookup failed")
	}

	user = models.User{LineID: userID, Name: "Unknown User", Mode: "bot"}
	if profile, perr := o.line.GetProfile(userID); perr == nil {
		user.Name = profile.DisplayName
		user.Picture = profile.PictureURL
	} else {
		logrus.WithError(perr).WithField("user", userID).Warn("Profile fetch failed")
	}

	if cerr := o.db.Create(&user).Error; cerr != nil {
		logrus.WithError(cerr).Error("User create failed")
	}
	o.logEvent(userID, "follow")
	return &user
}

func (o *Orchestrator) saveMessage(userID, text string, fromUser bool) {
	msg := models.ChatMessage{LineID: userID, Text: text, FromUser: fromUser}
	if err := o.db.Create(&msg).Error; err != nil {
		logrus.WithError(err).Error("Chat message persist failed")
		return
	}
	o.hub.NotifyMessage(msg)
}

func (o *Orchestrator) logEvent(userID, eventType string) {
	event := models.EventLog{LineID: userID, EventType: eventType}
	if err := o.db.Create(&event).Error; err != nil {
		logrus.WithError(err).Error("Event log persist failed")
	}
}

func wantsHuman(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range handoffPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

func outboundText(msg line.Message) string {
	if text, ok := msg.(line.TextMessage); ok {
		return text.Text
	}
	return "[" + msg.MessageType() + "]"
}
