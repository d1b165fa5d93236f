package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"alcyxob/gym-manager/internal/api"
	"alcyxob/gym-manager/internal/auth"
	"alcyxob/gym-manager/internal/config"
	"alcyxob/gym-manager/internal/events"
	"alcyxob/gym-manager/internal/logging"
	"alcyxob/gym-manager/internal/observability"
	"alcyxob/gym-manager/internal/realtime"
	"alcyxob/gym-manager/internal/repository"
	"alcyxob/gym-manager/internal/repository/memory"
	"alcyxob/gym-manager/internal/repository/mongo"
	"alcyxob/gym-manager/internal/service"
	"alcyxob/gym-manager/internal/storage"
)

// repositories is the set of stores the services are built from.
type repositories struct {
	users    repository.UserRepository
	trainers repository.TrainerRepository
	members  repository.MemberRepository
	workouts repository.WorkoutRepository
	routines repository.RoutineRepository
	progress repository.ProgressRepository
	saved    repository.SavedRepository
	chats    repository.ChatRepository
	media    repository.MediaRepository
	tx       repository.TxManager
}

// @title Gym Manager API
// @version 1.0
// @description Members, trainers, workouts, routines, session progress and chat.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. The login cookie works too.
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.WithField("driver", cfg.Database.Driver).Info("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	repos, closeDB, err := openRepositories(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("could not open database")
	}
	defer closeDB()

	// --- Optional infrastructure ---
	var files storage.FileStorage
	if cfg.S3.Enabled() {
		s3Storage, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize S3 storage")
		}
		files = s3Storage
		log.WithField("bucket", cfg.S3.BucketName).Info("workout media storage enabled")
	} else {
		log.Info("s3.bucket_name not set, workout media disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.ProgressTopic, cfg.Kafka.PublishTimeout)
		log.WithField("topic", cfg.Kafka.ProgressTopic).Info("publishing session events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("closing event publisher failed")
		}
	}()

	metrics := observability.NewMetrics()
	hubOpts := []realtime.HubOption{realtime.WithSubscriberGauge(metrics.SetSubscribers)}
	if cfg.Redis.Addr != "" {
		relay := realtime.NewRedisRelay(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.Redis.ChannelPrefix, log)
		defer relay.Close()
		hubOpts = append(hubOpts, realtime.WithRelay(relay))
		log.WithField("addr", cfg.Redis.Addr).Info("chat broadcasts relayed through redis")
	}
	hub := realtime.NewHub(log, hubOpts...)
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("realtime relay stopped")
		}
	}()

	// --- Services ---
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	loc := cfg.Progress.Location()

	authService := service.NewAuthService(repos.tx, repos.users, repos.trainers, repos.members, tokens, log)
	adminService := service.NewAdminService(repos.tx, repos.users, repos.trainers, repos.members, repos.workouts, repos.routines, repos.progress, repos.saved, repos.chats, log)
	memberService := service.NewMemberService(repos.tx, repos.users, repos.members, repos.trainers, repos.workouts, repos.routines, repos.progress, repos.saved, loc)
	trainerService := service.NewTrainerService(repos.tx, repos.users, repos.trainers, repos.members, repos.progress, repos.chats, loc)
	workoutService := service.NewWorkoutService(repos.tx, repos.workouts, repos.routines, repos.saved, repos.members, repos.media, files, log)
	routineService := service.NewRoutineService(repos.tx, repos.routines, repos.workouts, repos.progress, repos.saved, repos.members, log)
	progressService := service.NewProgressService(repos.tx, repos.progress, repos.routines, repos.workouts, repos.members, repos.trainers, publisher, metrics, log,
		service.ProgressOptions{
			StrictSessions:     cfg.Progress.StrictSessions,
			ConcurrentSessions: cfg.Progress.ConcurrentSessions,
			Location:           loc,
		})
	chatService := service.NewChatService(repos.tx, repos.chats, repos.members, repos.trainers, hub, metrics, log)

	if cfg.Admin.Email != "" {
		created, err := authService.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.WithError(err).Fatal("could not bootstrap admin")
		}
		if created {
			log.WithField("email", cfg.Admin.Email).Info("bootstrap admin created")
		}
	}

	// --- HTTP ---
	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	janitor, err := limiter.StartJanitor(cfg.RateLimit.CleanupSchedule, cfg.RateLimit.IdleTTL)
	if err != nil {
		log.WithError(err).Fatal("invalid ratelimit.cleanup_schedule")
	}
	defer janitor.Stop()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Tokens:          tokens,
		Cookie:          api.CookieConfig{Name: cfg.Server.CookieName, Secure: cfg.Server.CookieSecure},
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		AuthService:     authService,
		AdminService:    adminService,
		MemberService:   memberService,
		TrainerService:  trainerService,
		WorkoutService:  workoutService,
		RoutineService:  routineService,
		ProgressService: progressService,
		ChatService:     chatService,
		Hub:             hub,
		Metrics:         metrics,
		RateLimiter:     limiter,
		Log:             log,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen failed")
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	log.Info("server exited")
}

// openRepositories connects the configured store. The returned func releases it.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, log logrus.FieldLogger) (*repositories, func(), error) {
	if cfg.Driver == "memory" {
		log.Warn("using the in-memory store, data is lost on restart")
		r := memory.NewRepositories(memory.NewStore())
		return &repositories{
			users: r.Users, trainers: r.Trainers, members: r.Members,
			workouts: r.Workouts, routines: r.Routines, progress: r.Progress,
			saved: r.Saved, chats: r.Chats, media: r.Media, tx: r.Tx,
		}, func() {}, nil
	}

	client, err := mongo.ConnectDB(cfg.URI)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := mongo.DisconnectDB(client); err != nil {
			log.WithError(err).Error("failed to disconnect MongoDB")
		}
	}
	db := client.Database(cfg.Name)
	log.WithField("database", cfg.Name).Info("database connection established")

	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, db, log); err != nil {
		closeFn()
		return nil, nil, err
	}

	return &repositories{
		users:    mongo.NewMongoUserRepository(db),
		trainers: mongo.NewMongoTrainerRepository(db),
		members:  mongo.NewMongoMemberRepository(db),
		workouts: mongo.NewMongoWorkoutRepository(db),
		routines: mongo.NewMongoRoutineRepository(db),
		progress: mongo.NewMongoProgressRepository(db),
		saved:    mongo.NewMongoSavedRepository(db),
		chats:    mongo.NewMongoChatRepository(db),
		media:    mongo.NewMongoMediaRepository(db),
		tx:       mongo.NewTxManager(client, cfg.Transactions),
	}, closeFn, nil
}
