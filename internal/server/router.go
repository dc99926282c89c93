package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/paperforge-backend/internal/handlers"
	"github.com/yungbote/paperforge-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	AllowOrigins      []string
	AuthMiddleware    *middleware.AuthMiddleware
	HealthHandler     *handlers.HealthHandler
	PaperHandler      *handlers.PaperHandler
	GenerationHandler *handlers.GenerationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", cfg.HealthHandler.Check)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Generation + blueprints
	api.POST("/papers/generate", cfg.GenerationHandler.Generate)
	api.POST("/blueprints", cfg.GenerationHandler.CreateBlueprint)
	api.GET("/blueprints", cfg.GenerationHandler.ListBlueprints)
	api.GET("/blueprints/:id", cfg.GenerationHandler.GetBlueprint)
	api.GET("/layouts", cfg.GenerationHandler.ListLayouts)

	// Papers
	api.POST("/papers", cfg.PaperHandler.Create)
	api.GET("/papers", cfg.PaperHandler.List)
	api.GET("/papers/:id", cfg.PaperHandler.Get)
	api.PATCH("/papers/:id", cfg.PaperHandler.Update)
	api.DELETE("/papers/:id", cfg.PaperHandler.Delete)
	api.POST("/papers/:id/questions", cfg.PaperHandler.AddQuestions)
	api.DELETE("/papers/:id/sections/:sec/questions/:num", cfg.PaperHandler.RemoveQuestion)
	api.PUT("/papers/:id/sections/:sec/order", cfg.PaperHandler.ReorderSection)
	api.POST("/papers/:id/sections/:sec/questions/:num/swap", cfg.PaperHandler.SwapQuestion)
	api.GET("/papers/:id/sections/:sec/questions/:num/suggestions", cfg.PaperHandler.SwapSuggestions)
	api.POST("/papers/:id/finalize", cfg.PaperHandler.Finalize)
	api.POST("/papers/:id/publish", cfg.PaperHandler.Publish)
	api.POST("/papers/:id/unfinalize", cfg.PaperHandler.Unfinalize)
	api.GET("/papers/:id/artifacts/:type/download", cfg.PaperHandler.ArtifactDownload)

	return router
}
