package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booktable/internal/config"
	"github.com/iliyamo/booktable/internal/database"
	"github.com/iliyamo/booktable/internal/handler"
	"github.com/iliyamo/booktable/internal/logger"
	"github.com/iliyamo/booktable/internal/metrics"
	"github.com/iliyamo/booktable/internal/middleware"
	"github.com/iliyamo/booktable/internal/notify"
	"github.com/iliyamo/booktable/internal/queue"
	"github.com/iliyamo/booktable/internal/repository"
	"github.com/iliyamo/booktable/internal/router"
	"github.com/iliyamo/booktable/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New("booktable", cfg.Env, cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	db, err := database.Open(ctx, database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info().Str("host", cfg.DBHost).Str("database", cfg.DBName).Msg("database connected")

	if cfg.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			return err
		}
		log.Info().Msg("schema ensured")
	}

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	// Confirmation delivery.
	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.Notify.Backend == config.NotifyBackendAMQP {
		pub := queue.NewPublisher(cfg.Notify.AMQPURL, cfg.Notify.Queue)
		defer pub.Close()
		sender = pub
		if cfg.Notify.ConsumerEnabled {
			consumer := queue.NewConsumer(cfg.Notify.AMQPURL, cfg.Notify.Queue, cfg.Notify.OutboxPath, log)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("confirmation consumer stopped")
				}
			}()
		}
	}
	dispatcher := notify.NewDispatcher(sender, cfg.Notify.Timeout, log)

	store := repository.NewStore(db)
	bookings := service.NewBookingService(store, dispatcher, log, cfg.Location)
	reviews := service.NewReviewService(store, log)
	restaurants := service.NewRestaurantService(store, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
			return err
		},
	}))
	e.Use(requestLogger(log))
	e.Use(router.CORS(cfg.CORSOrigins))
	e.Use(middleware.NewTokenBucket(cfg.RateLimit, rdb, log))

	cache := middleware.NewResponseCache(cfg.Cache, rdb, log)
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		Restaurants: handler.NewRestaurantHandler(restaurants, log),
		Bookings:    handler.NewBookingHandler(bookings, log),
		Reviews:     handler.NewReviewHandler(reviews, log),
		Health:      handler.Health(db),
	}, cache, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	dispatcher.Wait()
	log.Info().Msg("server stopped")
	return nil
}

// requestLogger writes one access log line per request through zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
