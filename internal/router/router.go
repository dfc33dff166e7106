package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/handler"
	"github.com/stemsi/mcq-exam/internal/middleware"
	"github.com/stemsi/mcq-exam/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Submit    *handler.SubmitHandler
	Question  *handler.QuestionHandler
	Result    *handler.ResultHandler
	Dashboard *handler.DashboardHandler
	Monitor   *handler.MonitorHandler
	WS        *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService middleware.TokenValidator,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	submitLimiter := middleware.NewRateLimiter(cfg.SubmitRateLimit, time.Minute)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRateLimit, time.Minute)

	// ─── 0. Student Pages (No Auth) ────────────────────────────────────
	router.GET("/", handlers.Exam.Landing)
	exams := router.Group("/exams/:id")
	{
		exams.GET("", middleware.NoStore(), handlers.Exam.GetPaper)
		exams.POST("/submit", submitLimiter.Middleware(), handlers.Submit.Submit)
		exams.GET("/thankyou", handlers.Exam.ThankYou)
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(loginLimiter.Middleware())
	{
		auth.POST("/admin/login", handlers.Auth.AdminLogin)
	}

	// ─── 2. Integrity Stream (WebSocket) ───────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/exams/:id/stream", handlers.WS.IntegrityStream)
	}

	// ─── 3. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService), middleware.NoStore())
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboard)

		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.POST("/exams/:id/toggle", handlers.Exam.ToggleExam)
		adminAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		adminAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)

		adminAPI.GET("/exams/:id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/exams/:id/questions", handlers.Question.AddQuestion)
		adminAPI.DELETE("/questions/:qid", handlers.Question.DeleteQuestion)

		adminAPI.GET("/results", handlers.Result.ListResults)
		adminAPI.GET("/results/export", handlers.Result.ExportCSV)
		adminAPI.GET("/results/:rid", handlers.Result.GetResult)
		adminAPI.DELETE("/results/:rid", handlers.Result.DeleteResult)
	}

	return router
}
