package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/handlers"
	"github.com/voicepoll/voice-survey-service/internal/middlewares"
	"github.com/voicepoll/voice-survey-service/internal/repository"
	"github.com/voicepoll/voice-survey-service/internal/scheduler"
	"github.com/voicepoll/voice-survey-service/internal/service"
	"github.com/voicepoll/voice-survey-service/pkg/database"
	"github.com/voicepoll/voice-survey-service/pkg/llm"
	"github.com/voicepoll/voice-survey-service/pkg/logger"
	"github.com/voicepoll/voice-survey-service/pkg/redis"
	"github.com/voicepoll/voice-survey-service/pkg/telephony"
	"github.com/voicepoll/voice-survey-service/pkg/validator"
	"github.com/voicepoll/voice-survey-service/routes"

	_ "github.com/voicepoll/voice-survey-service/docs" // swagger docs
)

// @title VoicePoll Survey Service API
// @version 1.0
// @description Automated phone survey system: survey management, outbound Twilio calls, and answer analytics

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("JWT_SECRET is required but not set")
	}
	if cfg.Auth.AdminAPIKey == "" {
		logger.Fatalf("ADMIN_API_KEY is required but not set")
	}
	if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
		logger.Warnf("Twilio credentials not set, outbound calls will fail until configured")
	}

	logger.Infof("Starting VoicePoll Survey Service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed the default survey
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedDefaultSurvey(db); err != nil {
			logger.Warnf("Failed to seed default survey: %v", err)
		}
	}

	// Optional response columns are probed once; analytics reads the
	// descriptor instead of interpreting unknown-column errors.
	caps, err := database.ProbeCapabilities(db, cfg.Database.DBName)
	if err != nil {
		logger.Warnf("Failed to probe schema capabilities: %v", err)
	}

	// Init session store
	var redisClient *redis.Client
	redisClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Session store not available, sessions fall back to token claims: %v", err)
		redisClient = nil
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Outbound call and analysis clients
	twilioClient := telephony.NewClient(cfg.Twilio)
	logger.Infof("Telephony client ready (caller id %s)", twilioClient.FromNumber())

	var llmClient *llm.Client
	if cfg.LLM.APIKey != "" {
		llmClient, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			logger.Warnf("Answer analysis unavailable: %v", err)
			llmClient = nil
		}
	} else {
		logger.Warnf("LLM_API_KEY not set, answers are stored without analysis")
	}

	// Repositories
	contactRepo := repository.NewContactRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	responseRepo := repository.NewResponseRepository(db, caps)
	callQueueRepo := repository.NewCallQueueRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	contactService := service.NewContactService(contactRepo)
	questionService := service.NewQuestionService(questionRepo)
	surveyService := service.NewSurveyService(surveyRepo)
	analyticsService := service.NewAnalyticsService(responseRepo)

	var authService *service.AuthService
	if redisClient != nil {
		authService = service.NewAuthService(userRepo, redisClient, cfg.Auth)
	} else {
		authService = service.NewAuthService(userRepo, nil, cfg.Auth)
	}
	callService := service.NewCallService(callQueueRepo, contactRepo, twilioClient, cfg.Dialer, cfg.Server.PublicBaseURL)

	flowOpts := service.CallFlowOptions{
		Voice:    cfg.Twilio.Voice,
		Language: cfg.Twilio.Language,
		BaseURL:  cfg.Server.PublicBaseURL,
	}
	var flowService *service.CallFlowService
	if llmClient != nil {
		flowService = service.NewCallFlowService(callQueueRepo, questionRepo, responseRepo, llmClient, flowOpts)
	} else {
		flowService = service.NewCallFlowService(callQueueRepo, questionRepo, responseRepo, nil, flowOpts)
	}

	// Initialize dialer
	dialer := scheduler.NewDialer(callService, cfg.Dialer.DialInterval)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, redisClient)
	contactHandler := handlers.NewContactHandler(contactService, callService)
	questionHandler := handlers.NewQuestionHandler(questionService)
	surveyHandler := handlers.NewSurveyHandler(surveyService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	authHandler := handlers.NewAuthHandler(authService)
	voiceHandler := handlers.NewVoiceHandler(flowService, callService)
	dialerHandler := handlers.NewDialerHandler(dialer, ctx, cfg)
	diagHandler := handlers.NewDiagHandler(db, cfg)

	// Auto-start dialer
	if os.Getenv("AUTO_START_DIALER") != "false" {
		logger.Infof("Auto-starting dialer...")
		if err := dialer.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start dialer: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			middlewares.APIKeyHeader,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(
		e,
		healthHandler,
		contactHandler,
		questionHandler,
		surveyHandler,
		analyticsHandler,
		authHandler,
		voiceHandler,
		dialerHandler,
		diagHandler,
		authService,
		cfg,
	)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop dialer first (with timeout)
	if dialer.IsRunning() {
		logger.Infof("Stopping dialer...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- dialer.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping dialer: %v", err)
			} else {
				logger.Infof("Dialer stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Dialer stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close session store connection
	if redisClient != nil {
		logger.Infof("Closing session store connection...")
		if err := redisClient.Close(); err != nil {
			logger.Errorf("Error closing session store: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
