package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridezon-backend/internal/config"
	"ridezon-backend/internal/handlers"
	"ridezon-backend/internal/middleware"
	"ridezon-backend/internal/repository"
	"ridezon-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	rideRepo := repository.NewRideRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	pollRepo := repository.NewPollRepository(db)

	// Optional cross-process fan-out relay
	var relay services.Relay
	if cfg.Relay.URL != "" {
		amqpRelay, err := services.NewAMQPRelay(cfg.Relay.URL, cfg.Relay.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to AMQP relay")
		}
		defer amqpRelay.Close()
		relay = amqpRelay
	}

	// Optional push notifications
	var push services.Notifier
	if cfg.APNS.CertFile != "" {
		pushService, err := services.NewPushService(userRepo,
			cfg.APNS.CertFile, cfg.APNS.CertPassword, cfg.APNS.Topic, cfg.APNS.Production)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
		push = pushService
	}

	// Optional avatar uploads
	var avatarService *services.AvatarService
	if cfg.AWS.S3Bucket != "" {
		avatarService, err = services.NewAvatarService(userRepo,
			cfg.AWS.Region, cfg.AWS.S3Bucket, cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Endpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create avatar service")
		}
	}

	// Initialize services
	userService := services.NewUserService(userRepo, cfg.JWT.Secret)
	rideService := services.NewRideService(rideRepo)
	wsHub := services.NewWSHub(relay)
	chatService := services.NewChatService(messageRepo, groupRepo, rideRepo, userRepo, wsHub, push)
	expenseService := services.NewExpenseService(expenseRepo, chatService)
	pollService := services.NewPollService(pollRepo, chatService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, avatarService)
	rideHandler := handlers.NewRideHandler(rideService)
	groupHandler := handlers.NewGroupHandler(chatService, expenseService, pollService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, chatService)

	// Setup router
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Ridezon API running..."))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/rides", rideHandler.List)
		r.Get("/rides/{id}", rideHandler.Get)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/profile", authHandler.Profile)
			r.Put("/auth/complete", authHandler.CompleteSignup)
			r.Post("/auth/device-token", authHandler.RegisterDeviceToken)
			r.Post("/auth/avatar/upload", authHandler.AvatarUploadURL)
			r.Put("/auth/avatar", authHandler.SetAvatar)

			r.Post("/rides", rideHandler.Create)
			r.Put("/rides/{id}", rideHandler.Update)
			r.Delete("/rides/{id}", rideHandler.Delete)
			r.Post("/rides/{id}/join", rideHandler.Join)
			r.Put("/rides/{id}/requests/{requestId}", rideHandler.Respond)
			r.Post("/rides/{id}/leave", rideHandler.Leave)

			r.Get("/groups/{groupId}/messages", groupHandler.ListMessages)
			r.Post("/groups/{groupId}/messages", groupHandler.SendMessage)
			r.Get("/groups/{groupId}/expenses", groupHandler.ListExpenses)
			r.Post("/groups/{groupId}/expenses", groupHandler.AddExpense)
			r.Post("/groups/{groupId}/expenses/{expenseId}/settle", groupHandler.SettleExpense)
			r.Get("/groups/{groupId}/polls", groupHandler.ListPolls)
			r.Post("/groups/{groupId}/polls", groupHandler.CreatePoll)
			r.Post("/polls/{pollId}/vote/{optionId}", groupHandler.VotePoll)
		})
	})

	// WebSocket route (token auth via query parameter)
	r.Get("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
