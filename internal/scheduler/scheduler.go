package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"assistant-gateway/internal/line"
	"assistant-gateway/internal/models"
	"assistant-gateway/internal/renderer"
)

// Pusher sends messages outside a reply window.
type Pusher interface {
	PushMessage(to string, messages ...line.Message) error
}

// Scheduler sweeps due scheduled broadcasts once a minute and pushes them
// through the renderer and the LINE client.
type Scheduler struct {
	db     *gorm.DB
	pusher Pusher
	cron   *cron.Cron
}

func New(db *gorm.DB, pusher Pusher) *Scheduler {
	return &Scheduler{db: db, pusher: pusher}
}

func (s *Scheduler) Start() {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("* * * * *", s.Sweep); err != nil {
		logrus.WithError(err).Error("Broadcast sweep registration failed")
		return
	}
	s.cron.Start()
	logrus.Info("Broadcast scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep sends every pending broadcast whose time has come. Each row is
// claimed with a conditional update first so a broadcast never leaves
// pending twice.
func (s *Scheduler) Sweep() {
	var due []models.ScheduledBroadcast
	err := s.db.Where("status = ? AND scheduled_time <= ?", "pending", time.Now()).Find(&due).Error
	if err != nil {
		logrus.WithError(err).Error("Broadcast sweep query failed")
		return
	}

	for _, broadcast := range due {
		claimed := s.db.Model(&models.ScheduledBroadcast{}).
			Where("id = ? AND status = ?", broadcast.ID, "pending").
			Update("status", "sending")
		if claimed.Error != nil || claimed.RowsAffected == 0 {
			continue
		}
		s.send(broadcast)
	}
}

func (s *Scheduler) send(broadcast models.ScheduledBroadcast) {
	status := "sent"
	if err := s.deliver(broadcast); err != nil {
		logrus.WithError(err).WithField("broadcast_id", broadcast.ID).Error("Broadcast delivery failed")
		status = "failed"
	}

	now := time.Now()
	err := s.db.Model(&models.ScheduledBroadcast{}).
		Where("id = ?", broadcast.ID).
		UpdateColumns(map[string]interface{}{"status": status, "sent_at": now}).Error
	if err != nil {
		logrus.WithError(err).Error("Broadcast status update failed")
	}
}

func (s *Scheduler) deliver(broadcast models.ScheduledBroadcast) error {
	var tpl models.MessageTemplate
	if err := s.db.First(&tpl, broadcast.TemplateID).Error; err != nil {
		return err
	}

	msg, err := renderer.Build(tpl.Kind, tpl.Content)
	if msg == nil {
		return err
	}
	if err != nil {
		// Malformed content: diagnostic fallback is still sendable.
		logrus.WithError(err).WithField("template_id", tpl.ID).Warn("Broadcast template malformed")
	}

	if broadcast.Recipient != "all" {
		return s.pusher.PushMessage(broadcast.Recipient, msg)
	}

	var users []models.User
	if err := s.db.Where("blocked_at IS NULL").Find(&users).Error; err != nil {
		return err
	}
	var lastErr error
	for _, user := range users {
		if err := s.pusher.PushMessage(user.LineID, msg); err != nil {
			logrus.WithError(err).WithField("user", user.LineID).Warn("Broadcast push failed")
			lastErr = err
		}
	}
	return lastErr
}
