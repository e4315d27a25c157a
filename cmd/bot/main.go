package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hwfbot/relay-server-go/internal/config"
	"github.com/hwfbot/relay-server-go/internal/database"
	"github.com/hwfbot/relay-server-go/internal/handler"
	"github.com/hwfbot/relay-server-go/internal/hwf"
	"github.com/hwfbot/relay-server-go/internal/jobs"
	"github.com/hwfbot/relay-server-go/internal/middleware"
	"github.com/hwfbot/relay-server-go/internal/redis"
	"github.com/hwfbot/relay-server-go/internal/repository"
	"github.com/hwfbot/relay-server-go/internal/service"
	"github.com/hwfbot/relay-server-go/internal/slack"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	// Redis only backs the delivery cache and event dedup; the bot stays up
	// without it and leans on the database alone.
	var redisClient *redis.Client
	if cfg.RedisURL == "" {
		log.Warn().Msg("REDIS_URL not set: delivery cache and event dedup disabled")
	} else if redisClient, err = redis.NewClient(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	userRepo := repository.NewUserRepository(db.DB)
	channelRepo := repository.NewChannelConfigRepository(db.DB)
	deliveryRepo := repository.NewDeliveryRepository(db.DB)

	session := hwf.NewSession(cfg.HWFWebAPIKey, cfg.HWFRefreshToken)
	hwfClient := hwf.NewClient(cfg.HWFProjectID, session)

	slackClient := slack.NewClient(cfg.SlackBotToken)

	ledger := service.NewLedger(deliveryRepo, redisClient)
	relayService := service.NewRelayService(hwfClient, channelRepo, ledger, slackClient)
	connectService := service.NewConnectService(
		hwfClient, userRepo, channelRepo, slackClient,
		cfg.PollMaxWait(), cfg.PollInterval(),
	)

	slackSignatureMiddleware := middleware.NewSlackSignatureMiddleware(cfg.SlackSigningSecret)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	slackHandler := handler.NewSlackHandler(
		userRepo, channelRepo, connectService, relayService, slackClient, redisClient,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/slack", func(r chi.Router) {
		r.Use(slackSignatureMiddleware.Handler)
		r.Post("/events", slackHandler.Events)
		r.Post("/interactive", slackHandler.Interactive)
	})

	relayJob := jobs.NewRelayJob(relayService, cfg.RelayInterval())
	relayJob.Start()
	defer relayJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
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
