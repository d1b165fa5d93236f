package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/domain"
	"alcyxob/gym-manager/internal/observability"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/service"
)

// Deps is everything the HTTP layer needs. Metrics and RateLimiter are optional.
type Deps struct {
	Tokens         *auth.TokenManager
	Cookie         CookieConfig
	AllowedOrigins []string

	AuthService     service.AuthService
	AdminService    service.AdminService
	MemberService   service.MemberService
	TrainerService  service.TrainerService
	WorkoutService  service.WorkoutService
	RoutineService  service.RoutineService
	ProgressService service.ProgressService
	ChatService     service.ChatService

	Hub         *realtime.Hub
	Metrics     *observability.Metrics
	RateLimiter *RateLimiter
	Log         logrus.FieldLogger
}

// NewRouter builds the engine with the global middleware chain and every route.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(deps.Log))
	if deps.Metrics != nil {
		router.Use(Metrics(deps.Metrics))
	}
	router.Use(CORS(deps.AllowedOrigins))
	SetupRoutes(router, deps)
	return router
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	log := deps.Log

	authHandler := NewAuthHandler(deps.AuthService, deps.Cookie, log)
	adminHandler := NewAdminHandler(deps.AdminService, log)
	memberHandler := NewMemberHandler(deps.MemberService, log)
	trainerHandler := NewTrainerHandler(deps.TrainerService, log)
	workoutHandler := NewWorkoutHandler(deps.WorkoutService, deps.ProgressService, log)
	routineHandler := NewRoutineHandler(deps.RoutineService, deps.ProgressService, log)
	progressHandler := NewProgressHandler(deps.ProgressService, log)
	chatHandler := NewChatHandler(deps.ChatService, log)
	wsHandler := NewWSHandler(deps.ChatService, deps.Hub, deps.AllowedOrigins, log)

	authMiddleware := AuthMiddleware(deps.Tokens, deps.Cookie.Name)
	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Middleware()
	}

	admins := RequireRoles(domain.RoleAdmin)
	members := RequireRoles(domain.RoleMember)
	trainers := RequireRoles(domain.RoleTrainer)
	staff := RequireRoles(domain.RoleTrainer, domain.RoleAdmin)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", limit, authHandler.Register)
		authGroup.POST("/login", limit, authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", authMiddleware, authHandler.Me)
	}

	adminGroup := router.Group("/admin", authMiddleware, admins)
	{
		adminGroup.GET("/trainers", adminHandler.ListTrainers)
		adminGroup.POST("/trainers", adminHandler.CreateTrainer)
		adminGroup.GET("/trainers/:id", adminHandler.GetTrainer)
		adminGroup.PUT("/trainers/:id", adminHandler.UpdateTrainer)
		adminGroup.DELETE("/trainers/:id", adminHandler.DeleteTrainer)

		adminGroup.GET("/members", adminHandler.ListMembers)
		adminGroup.POST("/members", adminHandler.CreateMember)
		adminGroup.GET("/members/:id", adminHandler.GetMember)
		adminGroup.PUT("/members/:id", adminHandler.UpdateMember)
		adminGroup.DELETE("/members/:id", adminHandler.DeleteMember)
		adminGroup.PUT("/members/:id/assign-trainer", adminHandler.AssignTrainer)

		adminGroup.GET("/profile", adminHandler.GetProfile)
		adminGroup.PUT("/profile", adminHandler.UpdateProfile)
		adminGroup.GET("/dashboard/stats", adminHandler.DashboardStats)
	}

	memberGroup := router.Group("/member", authMiddleware, members)
	{
		memberGroup.GET("/profile", memberHandler.GetProfile)
		memberGroup.PUT("/profile", memberHandler.UpdateProfile)
		memberGroup.GET("/trainer", memberHandler.GetTrainer)
		memberGroup.GET("/progress", memberHandler.Progress)
		memberGroup.GET("/workouts", memberHandler.Workouts)
		memberGroup.GET("/routines", memberHandler.Routines)
		memberGroup.GET("/dashboard-stats", memberHandler.DashboardStats)
	}

	trainerGroup := router.Group("/trainer", authMiddleware, trainers)
	{
		trainerGroup.GET("/profile", trainerHandler.GetProfile)
		trainerGroup.PUT("/profile", trainerHandler.UpdateProfile)
		trainerGroup.GET("/members", trainerHandler.Members)
		trainerGroup.GET("/members/:id", trainerHandler.Member)
		trainerGroup.GET("/members/:id/progress", trainerHandler.MemberProgress)
		trainerGroup.GET("/dashboard-stats", trainerHandler.DashboardStats)
	}

	workoutGroup := router.Group("/workout", authMiddleware)
	{
		workoutGroup.GET("", workoutHandler.List)
		workoutGroup.GET("/:id", workoutHandler.Get)
		workoutGroup.POST("", staff, workoutHandler.Create)
		workoutGroup.PUT("/:id", staff, workoutHandler.Update)
		workoutGroup.DELETE("/:id", staff, workoutHandler.Delete)

		workoutGroup.POST("/:id/save", members, workoutHandler.Save)
		workoutGroup.DELETE("/:id/save", members, workoutHandler.Unsave)
		workoutGroup.GET("/saved/me", members, workoutHandler.Saved)

		workoutGroup.POST("/progress", members, workoutHandler.RecordProgress)
		workoutGroup.GET("/progress/:routineId", members, workoutHandler.RoutineProgress)

		workoutGroup.POST("/:id/media/upload-url", staff, workoutHandler.RequestMediaUpload)
		workoutGroup.POST("/:id/media", staff, workoutHandler.ConfirmMedia)
	}

	routineGroup := router.Group("/routine", authMiddleware)
	{
		routineGroup.GET("", routineHandler.List)
		routineGroup.GET("/:id", routineHandler.Get)
		routineGroup.POST("", staff, routineHandler.Create)
		routineGroup.PUT("/:id", staff, routineHandler.Update)
		routineGroup.DELETE("/:id", staff, routineHandler.Delete)

		routineGroup.POST("/:id/save", members, routineHandler.Save)
		routineGroup.DELETE("/:id/save", members, routineHandler.Unsave)
		routineGroup.GET("/saved/me", members, routineHandler.Saved)
		routineGroup.POST("/:id/complete", members, routineHandler.Complete)
	}

	progressGroup := router.Group("/progress", authMiddleware)
	{
		progressGroup.GET("", members, progressHandler.Analytics)
		progressGroup.GET("/:routineId", members, progressHandler.RoutineProgress)
		progressGroup.POST("/:routineId/start", members, progressHandler.Start)
		progressGroup.POST("/:routineId/finish", members, progressHandler.Finish)
		progressGroup.GET("/member/:memberId", staff, progressHandler.MemberProgress)
	}

	chatGroup := router.Group("/chat", authMiddleware)
	{
		chatGroup.GET("/member/me", members, chatHandler.MemberChat)
		chatGroup.POST("/member/me/send", members, limit, chatHandler.MemberSend)
		chatGroup.GET("/trainer/:memberId", trainers, chatHandler.TrainerChat)
		chatGroup.POST("/trainer/:memberId/send", trainers, limit, chatHandler.TrainerSend)
		chatGroup.DELETE("/:chatId", RequireRoles(domain.RoleMember, domain.RoleTrainer), chatHandler.DeleteChat)
		chatGroup.DELETE("/messages/:messageId", trainers, chatHandler.DeleteMessage)
		chatGroup.GET("/ws", RequireRoles(domain.RoleMember, domain.RoleTrainer), wsHandler.Serve)
	}
}
