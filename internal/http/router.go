package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/feedback-fusion/backend/internal/config"
	"github.com/feedback-fusion/backend/internal/http/handlers"
	"github.com/feedback-fusion/backend/internal/http/middleware"
	"github.com/feedback-fusion/backend/internal/models"
	"github.com/feedback-fusion/backend/internal/notify"
	"github.com/feedback-fusion/backend/internal/ratelimit"
	"github.com/feedback-fusion/backend/internal/service"
	"github.com/feedback-fusion/backend/internal/store"

	_ "github.com/feedback-fusion/backend/docs"
)

func Router(cfg config.Config, backend store.Backend, automation *service.Automation, notifier notify.Notifier, taxonomy models.Taxonomy, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      backend,
		Automation: automation,
		Notifier:   notifier,
		Taxonomy:   taxonomy,
		Validator:  validator.New(),
		Logger:     logger,
		JobTimeout: cfg.JobTimeout,
	}

	voteLimiter := ratelimit.New(5, time.Minute)
	submitLimiter := ratelimit.New(10, time.Hour)

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/feedback", h.FeedbackList)
		api.POST("/feedback", middleware.RateLimit(submitLimiter), h.FeedbackCreate)
		api.POST("/votes", middleware.RateLimit(voteLimiter), h.VoteToggle)
	}

	cron := api.Group("/cron")
	cron.Use(middleware.CronAuth(cfg.CronSecret))
	{
		cron.POST("/ai-tagging", h.CronTagging)
		cron.POST("/generate-insights", h.CronInsights)
		cron.POST("/export-sheets", h.CronExport)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.GET("/insights", h.InsightsList)
		admin.GET("/untagged", h.UntaggedCount)
		admin.GET("/automation/status", h.AutomationStatus)
		admin.POST("/automation/:task", h.AutomationTrigger)
		admin.PUT("/feedback/:id/status", h.UpdateStatus)
		admin.PUT("/feedback/:id/tags", h.UpdateTags)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
