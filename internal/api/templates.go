package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"assistant-gateway/internal/models"
	"assistant-gateway/internal/template"
)

type TemplateHandler struct {
	Store    *template.Store
	Selector *template.Selector
}

func NewTemplateHandler(store *template.Store, selector *template.Selector) *TemplateHandler {
	return &TemplateHandler{Store: store, Selector: selector}
}

// --- Categories ---

type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (h *TemplateHandler) GetCategories(c *gin.Context) {
	categories, err := h.Store.ListCategories()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if categories == nil {
		categories = []models.MessageCategory{}
	}
	c.JSON(http.StatusOK, categories)
}

func (h *TemplateHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category := models.MessageCategory{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	}
	if err := h.Store.CreateCategory(&category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *TemplateHandler) UpdateCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	category, err := h.Store.GetCategory(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category.Name = req.Name
	category.Description = req.Description
	if req.Color != "" {
		category.Color = req.Color
	}
	if err := h.Store.UpdateCategory(category); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *TemplateHandler) DeleteCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.Store.DeleteCategory(id); err != nil {
		if errors.Is(err, template.ErrCategoryInUse) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Category deleted"})
}

// --- Templates ---

type TemplateRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Kind        string          `json:"message_kind" binding:"required"`
	CategoryID  *uint           `json:"category_id"`
	Content     json.RawMessage `json:"content" binding:"required"`
	IsActive    *bool           `json:"is_active"`
	Priority    int             `json:"priority"`
	Tags        string          `json:"tags"`
}

func (h *TemplateHandler) GetTemplates(c *gin.Context) {
	filter := template.TemplateFilter{
		Kind:   c.Query("message_kind"),
		Search: c.Query("search"),
	}
	if raw := c.Query("category_id"); raw != "" {
		if id, err := parseID(raw); err == nil {
			filter.CategoryID = &id
		}
	}
	if raw := c.Query("is_active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}

	templates, err := h.Store.ListTemplates(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if templates == nil {
		templates = []models.MessageTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tpl, err := h.Store.GetTemplate(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !template.KnownKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message_kind: " + req.Kind})
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	tpl := models.MessageTemplate{
		Name:        req.Name,
		Description: req.Description,
		Kind:        req.Kind,
		CategoryID:  req.CategoryID,
		Content:     []byte(req.Content),
		IsActive:    active,
		Priority:    req.Priority,
		Tags:        req.Tags,
	}
	if err := h.Store.CreateTemplate(&tpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tpl, err := h.Store.GetTemplate(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !template.KnownKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown message_kind: " + req.Kind})
		return
	}

	// Usage counters are owned by the usage logger and cannot be edited.
	tpl.Name = req.Name
	tpl.Description = req.Description
	tpl.Kind = req.Kind
	tpl.CategoryID = req.CategoryID
	tpl.Content = []byte(req.Content)
	tpl.Priority = req.Priority
	tpl.Tags = req.Tags
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := h.Store.UpdateTemplate(tpl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template"})
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.Store.DeleteTemplate(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Template deleted"})
}

func (h *TemplateHandler) GetTemplateLogs(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	logs, err := h.Store.UsageLogs(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []models.TemplateUsageLog{}
	}
	c.JSON(http.StatusOK, logs)
}

// --- Selection test endpoint ---

type SelectRequest struct {
	Context     string   `json:"context"`
	UserMessage string   `json:"user_message"`
	CategoryID  *uint    `json:"category_id"`
	Kind        string   `json:"message_kind"`
	Tags        []string `json:"tags"`
}

// SelectTemplate runs the selector without logging usage, so operators can
// preview what the bot would answer.
func (h *TemplateHandler) SelectTemplate(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl, err := h.Selector.Select(template.SelectionRequest{
		Context:     req.Context,
		UserMessage: req.UserMessage,
		CategoryID:  req.CategoryID,
		Kind:        req.Kind,
		Tags:        req.Tags,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tpl == nil {
		c.JSON(http.StatusOK, gin.H{"template": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tpl})
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
