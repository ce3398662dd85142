package models

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a LINE end user known to the gateway.
type User struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	LineID    string     `gorm:"uniqueIndex;not null" json:"line_id"`
	Name      string     `gorm:"type:varchar(255)" json:"name"`
	Picture   string     `gorm:"type:text" json:"picture"`
	Mode      string     `gorm:"type:varchar(10);default:'bot'" json:"mode"` // bot or manual
	AddedAt   time.Time  `gorm:"autoCreateTime" json:"added_at"`
	BlockedAt *time.Time `json:"blocked_at"`
}

func (User) TableName() string {
	return "users"
}

// ChatMessage is one turn of a conversation, either direction.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LineID    string    `gorm:"index;not null" json:"line_id"`
	Text      string    `gorm:"type:text" json:"text"`
	FromUser  bool      `json:"from_user"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// EventLog records lifecycle events: follow, unfollow, renew, mode_switch.
type EventLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LineID    string    `gorm:"index" json:"line_id"`
	EventType string    `gorm:"type:varchar(20)" json:"event_type"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (EventLog) TableName() string {
	return "event_logs"
}

// MessageCategory groups templates for the dashboard.
type MessageCategory struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Name        string            `gorm:"uniqueIndex;type:varchar(255);not null" json:"name"`
	Description string            `gorm:"type:text" json:"description"`
	Color       string            `gorm:"type:varchar(20);default:'#3B82F6'" json:"color"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	Templates   []MessageTemplate `gorm:"foreignKey:CategoryID" json:"templates,omitempty"`
}

func (MessageCategory) TableName() string {
	return "message_categories"
}

// MessageTemplate is a pre-authored response. Content carries the per-kind
// JSON payload; UsageCount and LastUsed are written only by Store.LogUsage.
type MessageTemplate struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"index;type:varchar(255)" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Kind        string         `gorm:"index;type:varchar(20)" json:"message_kind"`
	CategoryID  *uint          `gorm:"index" json:"category_id"`
	Content     datatypes.JSON `json:"content"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	Priority    int            `gorm:"default:0" json:"priority"`
	Tags        string         `gorm:"type:text" json:"tags"` // comma-separated
	UsageCount  int            `gorm:"default:0" json:"usage_count"`
	LastUsed    *time.Time     `json:"last_used"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MessageTemplate) TableName() string {
	return "message_templates"
}

// TemplateUsageLog is an append-only audit record of one selection attempt.
type TemplateUsageLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TemplateID uint      `gorm:"index" json:"template_id"`
	LineID     string    `gorm:"index" json:"line_id"`
	Context    string    `gorm:"type:text" json:"context"`
	Success    bool      `gorm:"default:true" json:"success"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TemplateUsageLog) TableName() string {
	return "template_usage_logs"
}

// ScheduledBroadcast is a template push queued for a future time.
// Recipient is a LINE user id, or "all" for every non-blocked user.
type ScheduledBroadcast struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Recipient     string     `gorm:"type:varchar(64)" json:"recipient"`
	TemplateID    uint       `json:"template_id"`
	ScheduledTime time.Time  `gorm:"not null" json:"scheduled_time"`
	Status        string     `gorm:"type:varchar(20);default:'pending'" json:"status"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (ScheduledBroadcast) TableName() string {
	return "scheduled_broadcasts"
}
