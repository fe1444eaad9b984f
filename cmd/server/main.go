package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/22maksim/task-manager/internal/config"
	"github.com/22maksim/task-manager/internal/database"
	"github.com/22maksim/task-manager/internal/handler"
	"github.com/22maksim/task-manager/internal/metrics"
	"github.com/22maksim/task-manager/internal/middleware"
	"github.com/22maksim/task-manager/internal/model"
	"github.com/22maksim/task-manager/internal/queue"
	"github.com/22maksim/task-manager/internal/repository"
	"github.com/22maksim/task-manager/internal/router"
	"github.com/22maksim/task-manager/internal/security"
	"github.com/22maksim/task-manager/internal/service"
	"github.com/22maksim/task-manager/internal/utils"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	rdb, err := config.NewRedisClient(ctx, config.RedisOptions(os.LookupEnv))
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	codec, err := security.NewCodec(cfg.JWTSecret, cfg.AccessTTL)
	if err != nil {
		log.Fatalf("signing key: %v", err)
	}
	users := repository.NewUserRepo(db)
	gate := security.NewGate(
		codec,
		security.NewLedger(repository.NewRedisTTLStore(rdb), cfg.RevocationPrefix, logger),
		security.NewRefreshStore(repository.NewTokenRepo(db), cfg.RefreshTTL),
		users,
		utils.Bcrypt{Cost: cfg.BcryptCost},
		logger,
	)

	if cfg.AdminEmail != "" {
		created, err := gate.EnsureAccount(ctx, security.Account{Email: cfg.AdminEmail, Password: cfg.AdminPassword}, model.RoleAdmin)
		if err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
		if created {
			logger.Info("bootstrap admin created", "email", cfg.AdminEmail)
		}
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Fatalf("register metrics: %v", err)
	}

	var audit *service.Auditor
	if cfg.AuditEnabled {
		audit = service.NewAuditor(&service.AMQPPublisher{URL: cfg.AMQPURL}, logger)
		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: "logs", Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", "err", err)
			}
		}()
	}
	defer audit.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	e.Use(middleware.Authenticate(gate))

	router.RegisterRoutes(e, map[string]handler.Pinger{
		"mysql": db.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}, metrics.Handler())
	router.RegisterAuth(e,
		handler.NewAuthHandler(gate, audit, logger),
		middleware.NewTokenBucket(config.ParseRateLimit(os.LookupEnv), rdb, logger))

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "ip", v.RemoteIP}
			if v.Error != nil {
				logger.Error("request", append(attrs, "err", v.Error.Error())...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	})
}
