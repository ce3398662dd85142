package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"assistant-gateway/internal/ai"
	"assistant-gateway/internal/api"
	"assistant-gateway/internal/config"
	"assistant-gateway/internal/database"
	"assistant-gateway/internal/line"
	"assistant-gateway/internal/logging"
	"assistant-gateway/internal/notify"
	"assistant-gateway/internal/orchestrator"
	"assistant-gateway/internal/scheduler"
	"assistant-gateway/internal/template"
	"assistant-gateway/internal/webhook"
	"assistant-gateway/internal/ws"
)

func main() {
	cfg := config.LoadConfig()
	logging.Setup(cfg)

	db, err := database.Init(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	hub := ws.NewHub()
	go hub.Run()

	store := template.NewStore(db)
	selector := template.NewSelector(store)
	lineClient := line.NewClient(cfg)
	aiClient := ai.NewClient(cfg)
	telegram := notify.NewTelegram(cfg)

	orch := orchestrator.New(db, store, selector, lineClient, aiClient, telegram, hub)
	webhookHandler := webhook.NewHandler(cfg, orch)
	templateHandler := api.NewTemplateHandler(store, selector)
	dashboardHandler := api.NewDashboardHandler(db, lineClient, hub)
	broadcastHandler := api.NewBroadcastHandler(db)

	broadcastScheduler := scheduler.New(db, lineClient)
	broadcastScheduler.Start()
	defer broadcastScheduler.Stop()

	// Webhook Routes
	r.POST("/webhook", webhookHandler.HandleEvents)

	// Dashboard push + health + metrics
	r.GET("/ws", func(c *gin.Context) { hub.ServeWs(c.Writer, c.Request) })
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	apiGroup.Use(api.RequireToken(cfg))
	{
		apiGroup.GET("/users", dashboardHandler.GetUsers)
		apiGroup.GET("/messages/:userId", dashboardHandler.GetMessages)
		apiGroup.POST("/users/:userId/mode", dashboardHandler.SetMode)
		apiGroup.GET("/dashboard/stats", dashboardHandler.GetStats)
		apiGroup.POST("/send", dashboardHandler.SendMessage)

		// Category Routes
		apiGroup.GET("/categories", templateHandler.GetCategories)
		apiGroup.POST("/categories", templateHandler.CreateCategory)
		apiGroup.PUT("/categories/:id", templateHandler.UpdateCategory)
		apiGroup.DELETE("/categories/:id", templateHandler.DeleteCategory)

		// Template Routes
		apiGroup.GET("/templates", templateHandler.GetTemplates)
		apiGroup.POST("/templates", templateHandler.CreateTemplate)
		apiGroup.POST("/templates/select", templateHandler.SelectTemplate)
		apiGroup.GET("/templates/:id", templateHandler.GetTemplate)
		apiGroup.PUT("/templates/:id", templateHandler.UpdateTemplate)
		apiGroup.DELETE("/templates/:id", templateHandler.DeleteTemplate)
		apiGroup.GET("/templates/:id/logs", templateHandler.GetTemplateLogs)

		// Broadcast Routes
		apiGroup.GET("/broadcasts", broadcastHandler.GetBroadcasts)
		apiGroup.POST("/broadcasts", broadcastHandler.CreateBroadcast)
	}

	logrus.Infof("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to run server: %v", err)
	}
}
