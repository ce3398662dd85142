package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"assistant-gateway/internal/models"
)

type BroadcastHandler struct {
	DB *gorm.DB
}

func NewBroadcastHandler(db *gorm.DB) *BroadcastHandler {
	return &BroadcastHandler{DB: db}
}

type BroadcastRequest struct {
	Recipient     string    `json:"recipient" binding:"required"` // user id or "all"
	TemplateID    uint      `json:"template_id" binding:"required"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

func (h *BroadcastHandler) CreateBroadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var tpl models.MessageTemplate
	if err := h.DB.First(&tpl, req.TemplateID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Template not found"})
		return
	}

	scheduled := req.ScheduledTime
	if scheduled.IsZero() {
		scheduled = time.Now()
	}

	broadcast := models.ScheduledBroadcast{
		Recipient:     req.Recipient,
		TemplateID:    req.TemplateID,
		ScheduledTime: scheduled,
		Status:        "pending",
	}
	if err := h.DB.Create(&broadcast).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule broadcast"})
		return
	}
	c.JSON(http.StatusCreated, broadcast)
}

func (h *BroadcastHandler) GetBroadcasts(c *gin.Context) {
	var broadcasts []models.ScheduledBroadcast
	if err := h.DB.Order("scheduled_time desc").Find(&broadcasts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if broadcasts == nil {
		broadcasts = []models.ScheduledBroadcast{}
	}
	c.JSON(http.StatusOK, broadcasts)
}
