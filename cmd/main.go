package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"invitely/rsvphub/internal/broker"
	"invitely/rsvphub/internal/config"
	"invitely/rsvphub/internal/handler"
	"invitely/rsvphub/internal/model"
	"invitely/rsvphub/internal/repository"
	"invitely/rsvphub/internal/service"
	"invitely/rsvphub/pkg/crypto"
	jwtpkg "invitely/rsvphub/pkg/jwt"
)

func main() {
	// 1. Load configuration
	path := os.Getenv("RSVPHUB_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize session store (Redis or in-memory)
	var sessionStore repository.SessionStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		sessionStore = repository.NewRedisSessionStore(redisClient)
		logger.Info("using Redis session store")
	case "memory":
		sessionStore = repository.NewMemorySessionStore()
		logger.Info("using in-memory session store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Initialize lifecycle publisher
	publisher := broker.NewNoopPublisher()
	if cfg.Broker.Enabled {
		publisher, err = broker.NewRabbitPublisher(cfg.Broker.URL, cfg.Broker.Exchange, cfg.Broker.RoutingKey, logger)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		logger.Info("publishing lifecycle events", zap.String("exchange", cfg.Broker.Exchange))
	}
	defer publisher.Close()

	// 7. Initialize repositories
	tokens := crypto.NewCancelTokens(cfg.Token.Secret)
	eventRepo := repository.NewPGEventRepository(db)
	rsvpRepo := repository.NewPGRSVPRepository(db, tokens)

	// 8. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 9. Initialize services
	location, err := time.LoadLocation(cfg.Event.Timezone)
	if err != nil {
		logger.Fatal("invalid event timezone", zap.String("timezone", cfg.Event.Timezone), zap.Error(err))
	}
	eventService := service.NewEventService(eventRepo, location)
	if err := eventService.Seed(context.Background(), cfg.Event.Seed); err != nil {
		logger.Fatal("failed to seed events", zap.Error(err))
	}

	mailSender, err := service.NewMailSender(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mail sender", zap.Error(err))
	}
	notifier := service.NewNotifier(mailSender, tokens, service.NotifierConfig{
		PublicBaseURL: cfg.Mail.PublicBaseURL,
		ManagePath:    cfg.Mail.ManagePath,
		SendTimeout:   cfg.Mail.SendTimeout,
	})
	logger.Info("mail provider ready", zap.String("provider", cfg.Mail.Provider))

	rsvpService := service.NewRSVPService(rsvpRepo, eventService, notifier, tokens, publisher, logger, service.RSVPServiceConfig{
		DefaultEventSlug: cfg.Event.DefaultSlug,
		BulkDelay:        cfg.Mail.BulkDelay,
	})
	authService := service.NewAuthService(cfg.Admin.Accounts, sessionStore, jwtManager)

	// 10. Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	rsvpHandler := handler.NewRSVPHandler(rsvpService)
	adminHandler := handler.NewAdminHandler(eventService, rsvpService)

	// 11. Setup router
	router := handler.SetupRouter(cfg, logger, authService, authHandler, rsvpHandler, adminHandler)

	// 12. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 13. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if cfg.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
