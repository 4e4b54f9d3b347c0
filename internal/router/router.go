package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/codeclass/codeclass-backend/internal/config"
	"github.com/codeclass/codeclass-backend/internal/handler"
	"github.com/codeclass/codeclass-backend/internal/middleware"
	"github.com/codeclass/codeclass-backend/internal/response"
	"github.com/codeclass/codeclass-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	LearnerPortal *handler.LearnerPortalHandler
	Instructor    *handler.InstructorHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/learner/login", handlers.Auth.LearnerLogin)
		auth.POST("/instructor/login", handlers.Auth.InstructorLogin)

		// Authenticated profile routes
		auth.POST("/learner/logout", middleware.RequireLearnerJWT(authService), handlers.Auth.LearnerLogout)
		auth.GET("/learner/me", middleware.RequireLearnerJWT(authService), handlers.Auth.GetLearnerProfile)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	// Assessment content must never land in shared caches, so the whole
	// group is served with Cache-Control: no-store.
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
		middleware.NoStore(),
	)
	{
		learnerAPI.GET("/assessments", handlers.LearnerPortal.ListAssessments)
		learnerAPI.POST("/assessments/:assessment_id/attempt", handlers.LearnerPortal.StartAttempt)
		learnerAPI.GET("/assessments/:assessment_id/paper", handlers.LearnerPortal.GetPaper)
		learnerAPI.GET("/assessments/:assessment_id/state", handlers.LearnerPortal.GetState)
		learnerAPI.POST("/assessments/:assessment_id/submit", handlers.LearnerPortal.Submit)
		learnerAPI.GET("/assessments/:assessment_id/review", handlers.LearnerPortal.Review)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/learner/assessments/:assessment_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Instructor Group (JWT) ─────────────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(middleware.RequireInstructorJWT(authService))
	{
		instructorAPI.GET("/assessments", handlers.Instructor.ListAssessments)
		instructorAPI.POST("/assessments", handlers.Instructor.CreateAssessment)
		instructorAPI.POST("/assessments/:assessment_id/questions", handlers.Instructor.AddQuestion)
		instructorAPI.POST("/assessments/:assessment_id/publish", handlers.Instructor.PublishAssessment)
		instructorAPI.GET("/assessments/:assessment_id/results", handlers.Instructor.GetResults)
		instructorAPI.POST("/attempts/:attempt_id/extension", handlers.Instructor.GrantExtension)
	}

	return router
}
