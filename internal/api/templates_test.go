package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"assistant-gateway/internal/config"
	"assistant-gateway/internal/models"
	"assistant-gateway/internal/template"
)

func setupRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *template.Store) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.MessageCategory{},
		&models.MessageTemplate{},
		&models.TemplateUsageLog{},
	))

	store := template.NewStore(db)
	handler := NewTemplateHandler(store, template.NewSelector(store))

	r := gin.New()
	group := r.Group("/api")
	group.Use(RequireToken(cfg))
	{
		group.GET("/categories", handler.GetCategories)
		group.POST("/categories", handler.CreateCategory)
		group.DELETE("/categories/:id", handler.DeleteCategory)
		group.GET("/templates", handler.GetTemplates)
		group.POST("/templates", handler.CreateTemplate)
		group.POST("/templates/select", handler.SelectTemplate)
		group.GET("/templates/:id", handler.GetTemplate)
		group.PUT("/templates/:id", handler.UpdateTemplate)
		group.DELETE("/templates/:id", handler.DeleteTemplate)
	}
	return r, store
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTemplateCRUDEndpoints(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{})

	w := doJSON(r, "POST", "/api/categories", gin.H{"name": "leave", "description": "Leave topics"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var category models.MessageCategory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &category))

	w = doJSON(r, "POST", "/api/templates", gin.H{
		"name":         "leave balance",
		"description":  "sick leave balance",
		"message_kind": "text",
		"category_id":  category.ID,
		"content":      gin.H{"text": "You have 30 days."},
		"priority":     5,
		"tags":         "leave,sick",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.MessageTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.IsActive)

	t.Run("unknown kind is rejected", func(t *testing.T) {
		w := doJSON(r, "POST", "/api/templates", gin.H{
			"name":         "bad",
			"message_kind": "carousel",
			"content":      gin.H{},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list filters by kind", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/templates?message_kind=text", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var templates []models.MessageTemplate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &templates))
		assert.Len(t, templates, 1)
	})

	t.Run("category delete conflicts while referenced", func(t *testing.T) {
		w := doJSON(r, "DELETE", fmt.Sprintf("/api/categories/%d", category.ID), nil, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("update keeps usage counters out of reach", func(t *testing.T) {
		w := doJSON(r, "PUT", fmt.Sprintf("/api/templates/%d", created.ID), gin.H{
			"name":         "leave balance v2",
			"message_kind": "text",
			"content":      gin.H{"text": "Updated."},
		}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var updated models.MessageTemplate
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
		assert.Equal(t, "leave balance v2", updated.Name)
		assert.Equal(t, 0, updated.UsageCount)
	})

	t.Run("delete template then category", func(t *testing.T) {
		w := doJSON(r, "DELETE", fmt.Sprintf("/api/templates/%d", created.ID), nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = doJSON(r, "DELETE", fmt.Sprintf("/api/categories/%d", category.ID), nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSelectEndpoint(t *testing.T) {
	r, store := setupRouter(t, &config.Config{})

	require.NoError(t, store.CreateTemplate(&models.MessageTemplate{
		Name:     "greeting",
		Kind:     template.KindText,
		IsActive: true,
		Priority: 3,
		Content:  []byte(`{"text":"Hello!"}`),
	}))

	w := doJSON(r, "POST", "/api/templates/select", gin.H{
		"context":      "greeting",
		"user_message": "hello",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Template *models.MessageTemplate `json:"template"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Template)
	assert.Equal(t, "greeting", resp.Template.Name)

	// Selection via the preview endpoint must not log usage.
	got, err := store.GetTemplate(resp.Template.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UsageCount)
}

func TestSelectEndpointEmptyPool(t *testing.T) {
	r, _ := setupRouter(t, &config.Config{})

	w := doJSON(r, "POST", "/api/templates/select", gin.H{"context": "", "user_message": ""}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"template":null}`, w.Body.String())
}

func TestRequireToken(t *testing.T) {
	cfg := &config.Config{APIToken: "sekret"}
	r, _ := setupRouter(t, cfg)

	t.Run("missing token", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/templates", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/templates", nil, map[string]string{"Authorization": "Bearer nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := doJSON(r, "GET", "/api/templates", nil, map[string]string{"Authorization": "Bearer sekret"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
