package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"travel-marketplace/internal/config"
	"travel-marketplace/internal/db"
	"travel-marketplace/internal/logger"
	"travel-marketplace/internal/notify"
	"travel-marketplace/internal/repository"
	"travel-marketplace/internal/router"
	"travel-marketplace/internal/seed"
	"travel-marketplace/internal/services"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const defaultJWTSecret = "default-secret-key-change-in-production"

func main() {
	cfg := config.LoadConfig()

	log := logger.InitLogger(cfg.Env, cfg.LogLevel)
	log.Info().Str("env", cfg.Env).Msg("Starting travel marketplace")

	var (
		store  repository.Store
		inMemo bool
	)
	if cfg.DBUrl == "" {
		log.Warn().Msg("DB_URL not set, using in-memory store")
		store = repository.NewMemoryStore()
		inMemo = true
	} else {
		database, err := db.InitDB(cfg.DBUrl, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Database connection failed")
		}
		defer database.Close()

		if err := db.RunMigrations(database, log); err != nil {
			log.Fatal().Err(err).Msg("Migrations failed")
		}
		store = repository.NewMySQLStore(database)
	}

	dispatchers := notify.Multi{}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, push notifications disabled")
		} else {
			dispatchers = append(dispatchers, notify.NewRedisPublisher(client))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis notification publisher enabled")
		}
	}
	if cfg.SMTP.Enabled() {
		dispatchers = append(dispatchers, notify.NewEmailSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From, store.Users()))
		log.Info().Str("host", cfg.SMTP.Host).Msg("Email notifications enabled")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = defaultJWTSecret
		log.Warn().Msg("JWT_SECRET not set, using default key")
	}

	deliveries := notify.NewQueue(dispatchers, cfg.NotifyWorkers, cfg.NotifyQueueSize, 15*time.Second, log)

	svc := buildServices(store, deliveries, jwtSecret, cfg.DefaultCurrency, log)

	if cfg.SeedDemoData && inMemo {
		err := seed.Run(context.Background(), seed.Deps{
			Store:     store,
			Users:     svc.Users,
			Ledger:    svc.Ledger,
			Wallet:    svc.Wallet,
			Messaging: svc.Messaging,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Seeding demo data failed")
		}
	}

	handler := router.SetupRouter(svc, router.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	}, log)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Msgf("Server listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	if err := deliveries.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Pending notifications were not all delivered")
	}

	log.Info().Msg("Server stopped")
}

func buildServices(store repository.Store, dispatcher notify.Dispatcher, jwtSecret, currency string, log zerolog.Logger) router.Services {
	notifications := services.NewNotificationService(store, dispatcher, log)
	wallet := services.NewWalletService(store, log, currency)

	return router.Services{
		Auth:          services.NewAuthService(jwtSecret, log),
		Users:         services.NewUserService(store, log),
		Ledger:        services.NewLedgerService(store, wallet, notifications, log, currency),
		Wallet:        wallet,
		Notifications: notifications,
		Messaging:     services.NewMessagingService(store, log),
	}
}
