package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"assistant-gateway/internal/line"
	"assistant-gateway/internal/models"
	"assistant-gateway/internal/ws"
)

// Sender is the slice of the LINE client the dashboard needs for manual
// operator replies.
type Sender interface {
	PushMessage(to string, messages ...line.Message) error
}

type DashboardHandler struct {
	DB     *gorm.DB
	Client Sender
	Hub    *ws.Hub
}

func NewDashboardHandler(db *gorm.DB, client Sender, hub *ws.Hub) *DashboardHandler {
	return &DashboardHandler{DB: db, Client: client, Hub: hub}
}

func (h *DashboardHandler) GetUsers(c *gin.Context) {
	var users []models.User
	if err := h.DB.Order("added_at desc").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *DashboardHandler) GetMessages(c *gin.Context) {
	userID := c.Param("userId")
	var messages []models.ChatMessage
	if err := h.DB.Where("line_id = ?", userID).Order("created_at asc").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, messages)
}

type SetModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

func (h *DashboardHandler) SetMode(c *gin.Context) {
	userID := c.Param("userId")
	var req SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mode != "bot" && req.Mode != "manual" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be bot or manual"})
		return
	}

	var user models.User
	if err := h.DB.Where("line_id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	user.Mode = req.Mode
	if err := h.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update mode"})
		return
	}

	h.DB.Create(&models.EventLog{LineID: userID, EventType: "mode_switch"})
	h.Hub.NotifyUser(user, "mode_switch")
	c.JSON(http.StatusOK, user)
}

type DashboardStats struct {
	TotalUsers   int64 `json:"total_users"`
	DailyAdds    int64 `json:"daily_adds"`
	DailyBlocks  int64 `json:"daily_blocks"`
	DailyRenews  int64 `json:"daily_renews"`
	ManualUsers  int64 `json:"manual_users"`
	DailyMessage int64 `json:"daily_messages"`
}

func (h *DashboardHandler) GetStats(c *gin.Context) {
	var stats DashboardStats
	midnight := time.Now().Truncate(24 * time.Hour)

	h.DB.Model(&models.User{}).Count(&stats.TotalUsers)
	h.DB.Model(&models.User{}).Where("mode = ?", "manual").Count(&stats.ManualUsers)
	h.DB.Model(&models.EventLog{}).Where("event_type = ? AND created_at >= ?", "follow", midnight).Count(&stats.DailyAdds)
	h.DB.Model(&models.EventLog{}).Where("event_type = ? AND created_at >= ?", "unfollow", midnight).Count(&stats.DailyBlocks)
	h.DB.Model(&models.EventLog{}).Where("event_type = ? AND created_at >= ?", "renew", midnight).Count(&stats.DailyRenews)
	h.DB.Model(&models.ChatMessage{}).Where("created_at >= ?", midnight).Count(&stats.DailyMessage)

	c.JSON(http.StatusOK, stats)
}

type SendRequest struct {
	To   string `json:"to" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// SendMessage lets an operator answer a manual-mode conversation.
func (h *DashboardHandler) SendMessage(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Client.PushMessage(req.To, line.NewTextMessage(req.Text)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message: " + err.Error()})
		return
	}

	msg := models.ChatMessage{LineID: req.To, Text: req.Text, FromUser: false}
	if err := h.DB.Create(&msg).Error; err == nil {
		h.Hub.NotifyMessage(msg)
	}
	c.JSON(http.StatusOK, gin.H{"status": "Message sent"})
}
