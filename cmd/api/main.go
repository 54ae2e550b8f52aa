package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Ali-Mohammed/openRadius-sub005/internal/config"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/activation"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/cashback"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/subscriber"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/domain/wallet"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/middleware"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/database"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/jwt"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/logger"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/realtime"
	"github.com/Ali-Mohammed/openRadius-sub005/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting openRadius billing API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	// ---------- WebSocket hub ----------
	ledgerHub := realtime.NewHub(redis, uuid.NewString())
	go ledgerHub.Run()
	defer ledgerHub.Shutdown()

	publisher := &ledgerFeedPublisher{hub: ledgerHub}

	// ---------- Repositories ----------
	walletRepo := wallet.NewRepository(db)
	subscriberRepo := subscriber.NewRepository(db)
	activationRepo := activation.NewRepository(db)
	cashbackRepo := cashback.NewRepository(db)

	// ---------- Services ----------
	defaultMode, err := cashback.ParseMode(cfg.CashbackMode)
	if err != nil {
		log.Fatal().Err(err).Str("mode", cfg.CashbackMode).Msg("Invalid cashback mode")
	}
	resolver := cashback.NewResolver(cashbackRepo, cashback.Policy{
		Mode:            defaultMode,
		RequireApproval: cfg.CashbackRequireApproval,
	})

	walletService := wallet.NewService(wallet.NewTxFactory(db), walletRepo, redis, publisher, cfg.StatsCacheTTL)
	activationService := activation.NewService(
		activation.NewDatastore(db),
		activation.NewEngine(),
		resolver,
		activationRepo,
		publisher,
	)

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	activationHandler := activation.NewHandler(activationService)
	subscriberHandler := subscriber.NewHandler(subscriberRepo)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws/ledger", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(ledgerHub.ServeWS)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "UNAVAILABLE", "database unreachable")
			return
		}
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/", walletHandler.Routes(authMiddleware))
		r.Mount("/activations", activationHandler.Routes(authMiddleware))
		r.Mount("/subscribers", subscriberHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// ledgerFeedPublisher bridges committed ledger transactions onto the
// realtime feed.
type ledgerFeedPublisher struct {
	hub *realtime.Hub
}

func (p *ledgerFeedPublisher) PublishTransaction(t *wallet.Transaction) {
	p.hub.Publish(t)
}
