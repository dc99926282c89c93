package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yungbote/paperforge-backend/internal/chromium"
	"github.com/yungbote/paperforge-backend/internal/db"
	"github.com/yungbote/paperforge-backend/internal/handlers"
	"github.com/yungbote/paperforge-backend/internal/logger"
	"github.com/yungbote/paperforge-backend/internal/middleware"
	"github.com/yungbote/paperforge-backend/internal/observability"
	"github.com/yungbote/paperforge-backend/internal/repos"
	"github.com/yungbote/paperforge-backend/internal/server"
	"github.com/yungbote/paperforge-backend/internal/services"
	"github.com/yungbote/paperforge-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	signedURLTTL := utils.GetEnvAsInt("SIGNED_URL_TTL_SECONDS", 900, log)
	poolSize := utils.GetEnvAsInt("CHROMIUM_POOL_SIZE", 2, log)
	maxRenders := utils.GetEnvAsInt("CHROMIUM_MAX_RENDERS_PER_INSTANCE", 50, log)
	renderTimeout := utils.GetEnvAsInt("RENDER_TIMEOUT_SECONDS", 90, log)
	workerConcurrency := utils.GetEnvAsInt("RENDER_WORKER_CONCURRENCY", 3, log)
	workerMaxAttempts := utils.GetEnvAsInt("RENDER_MAX_ATTEMPTS", 5, log)
	workerRetryDelay := utils.GetEnvAsInt("RENDER_RETRY_DELAY_SECONDS", 30, log)
	workerStaleRunning := utils.GetEnvAsInt("RENDER_STALE_RUNNING_SECONDS", 120, log)
	allowOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "paperforge",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer shutdownOTel(context.Background())
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	paperRepo := repos.NewPaperRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	artifactRepo := repos.NewPaperArtifactRepo(thePG, log)
	blueprintRepo := repos.NewBlueprintRepo(thePG, log)
	layoutRepo := repos.NewPaperLayoutRepo(thePG, log)
	jobRepo := repos.NewRenderJobRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}
	jobEvents, err := services.NewRedisJobEvents(log)
	if err != nil {
		log.Warn("Could not init redis job events, using nop publisher", "error", err)
		jobEvents = services.NopJobEvents{}
	}
	defer jobEvents.Close()

	browserPool := chromium.NewPool(log, chromium.PoolConfig{
		Size:                  poolSize,
		MaxRendersPerInstance: maxRenders,
		RenderTimeout:         time.Duration(renderTimeout) * time.Second,
	})
	defer browserPool.Close()

	paperService := services.NewPaperService(thePG, log, paperRepo, questionRepo, artifactRepo, jobRepo, bucketService, time.Duration(signedURLTTL)*time.Second)
	generationService := services.NewPaperGenerationService(thePG, log, paperRepo, questionRepo, blueprintRepo)
	blueprintService := services.NewBlueprintService(thePG, log, blueprintRepo, layoutRepo)
	swapAdvisor := services.NewSwapAdvisorService(thePG, log, paperRepo, questionRepo)
	renderPipeline := services.NewRenderService(thePG, log, paperRepo, questionRepo, layoutRepo, artifactRepo, bucketService, browserPool)

	renderWorker := services.NewRenderWorker(thePG, log, jobRepo, paperRepo, renderPipeline, jobEvents, services.RenderWorkerConfig{
		Concurrency:  workerConcurrency,
		MaxAttempts:  workerMaxAttempts,
		RetryDelay:   time.Duration(workerRetryDelay) * time.Second,
		StaleRunning: time.Duration(workerStaleRunning) * time.Second,
	})
	renderWorker.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler()
	paperHandler := handlers.NewPaperHandler(log, paperService, swapAdvisor)
	generationHandler := handlers.NewGenerationHandler(log, generationService, blueprintService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:       "paperforge",
		AllowOrigins:      strings.Split(allowOrigins, ","),
		AuthMiddleware:    authMiddleware,
		HealthHandler:     healthHandler,
		PaperHandler:      paperHandler,
		GenerationHandler: generationHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
