package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/voicepoll/voice-survey-service/environments"
	"github.com/voicepoll/voice-survey-service/handlers"
	"github.com/voicepoll/voice-survey-service/internal/middlewares"
	"github.com/voicepoll/voice-survey-service/internal/service"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	contactHandler *handlers.ContactHandler,
	questionHandler *handlers.QuestionHandler,
	surveyHandler *handlers.SurveyHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	authHandler *handlers.AuthHandler,
	voiceHandler *handlers.VoiceHandler,
	dialerHandler *handlers.DialerHandler,
	diagHandler *handlers.DiagHandler,
	authService *service.AuthService,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Phone contacts and call queueing
	api.GET("/phone", contactHandler.GetContacts)
	api.POST("/phone", contactHandler.CreateContact)
	api.PUT("/phone", contactHandler.UpdateContact)
	api.POST("/phone/batch", contactHandler.CreateBatch)
	api.POST("/phone/call", contactHandler.EnqueueCall)

	// Question bank
	api.GET("/questions", questionHandler.GetQuestions)
	api.POST("/questions", questionHandler.CreateQuestion)
	api.PUT("/questions", questionHandler.UpdateQuestion)

	// Surveys and reporting
	api.GET("/surveys", surveyHandler.GetSurveys)
	api.POST("/surveys", surveyHandler.CreateSurvey)
	api.POST("/surveys/attach", surveyHandler.AttachQuestion)
	api.GET("/surveys/:id", surveyHandler.GetSurvey)
	api.GET("/analytics", analyticsHandler.GetAnalytics)

	// Twilio webhooks. These must stay unauthenticated; Twilio has no
	// bearer token.
	twilio := api.Group("/twilio")
	twilio.POST("/greeting", voiceHandler.Greeting)
	twilio.POST("/continue-survey", voiceHandler.ContinueSurvey)
	twilio.POST("/response", voiceHandler.Response)
	twilio.GET("/test-interrupt", voiceHandler.TestInterrupt)
	twilio.POST("/retry-call", voiceHandler.RetryCall)

	// Auth: login/signup are open, the rest need a live session.
	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/signup", authHandler.SignUp)

	session := auth.Group("", middlewares.SessionAuth(authService))
	session.POST("/logout", authHandler.Logout)
	session.GET("/me", authHandler.Me)
	session.PUT("/profile", authHandler.UpdateProfile)

	// Dialer control behind the admin API key
	dialer := api.Group("/dialer", middlewares.APIKeyAuth(cfg.Auth.AdminAPIKey))
	dialer.POST("/start", dialerHandler.StartDialer)
	dialer.POST("/stop", dialerHandler.StopDialer)
	dialer.GET("/status", dialerHandler.GetDialerStatus)

	// Operational probes
	api.GET("/db-test", diagHandler.DBTest)
	api.GET("/check-mock", diagHandler.CheckMock)
	api.GET("/real-db", diagHandler.RealDB)
}
