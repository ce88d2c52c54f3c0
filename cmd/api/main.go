package main

import (
	"context"
	"expvar"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/roomdesk/roomdesk-api/internal/config"
	"github.com/roomdesk/roomdesk-api/internal/domain/availability"
	"github.com/roomdesk/roomdesk-api/internal/domain/booking"
	"github.com/roomdesk/roomdesk-api/internal/domain/inventory"
	"github.com/roomdesk/roomdesk-api/internal/middleware"
	"github.com/roomdesk/roomdesk-api/internal/pkg/database"
	"github.com/roomdesk/roomdesk-api/internal/pkg/gateway"
	"github.com/roomdesk/roomdesk-api/internal/pkg/logger"
	"github.com/roomdesk/roomdesk-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("gateway", cfg.Gateway).
		Msg("Starting RoomDesk API")

	// ---------- Remote table gateway ----------
	var gw gateway.Gateway
	var feed booking.Feed

	switch cfg.Gateway {
	case "rest":
		gw = gateway.NewREST(cfg.RestBaseURL, cfg.RestAPIKey, 10*time.Second)
	default:
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres(db)
		gw = gateway.NewPostgres(db)

		listenerFeed, err := booking.NewListenerFeed(cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("Booking listener unavailable, falling back to polling")
		} else {
			defer listenerFeed.Close()
			feed = listenerFeed
		}
	}

	// ---------- Redis change fan-out (optional) ----------
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	var pub booking.Publisher
	if redisClient != nil {
		redisFeed := booking.NewRedisFeed(redisClient)
		defer redisFeed.Close()
		pub = redisFeed
		if feed == nil {
			feed = redisFeed
		}
	}

	// ---------- Availability core ----------
	invRepo := inventory.NewRepository(gw)
	bookRepo := booking.NewRepository(gw)

	store := availability.NewStore(booking.Today(), true, cfg.AutoRefresh)
	engine := availability.NewEngine(store, invRepo, bookRepo, feed, pub, availability.Config{
		PollInterval:   cfg.PollInterval,
		ResumeDelay:    cfg.ResumeDelay,
		ReconcileDelay: cfg.ReconcileDelay,
	})
	hub := availability.NewHub(store)

	engineCtx, engineCancel := context.WithCancel(context.Background())
	defer engineCancel()

	go engine.Run(engineCtx)
	go engine.WatchConnectivity(engineCtx, gw)
	go hub.Run(engineCtx)

	// ---------- Nightly reference resync ----------
	if cfg.ReferenceResyncCron != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.ReferenceResyncCron, func() {
			log.Info().Msg("Running scheduled reference resync")
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := engine.Refresh(ctx); err != nil {
				log.Error().Err(err).Msg("Scheduled reference resync failed")
			}
		})
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.ReferenceResyncCron).Msg("Invalid resync cron spec")
		}
		c.Start()
		defer c.Stop()
	}

	// ---------- Router ----------
	handler := availability.NewHandler(engine, store, hub)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{"message": "pong"})
		})
		r.Mount("/", handler.Routes())
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
	engineCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
