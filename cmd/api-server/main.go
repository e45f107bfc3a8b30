package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/api"
	"github.com/carebridge/appointment-scheduling/internal/appointment"
	"github.com/carebridge/appointment-scheduling/internal/availability"
	"github.com/carebridge/appointment-scheduling/internal/config"
	"github.com/carebridge/appointment-scheduling/internal/db"
	"github.com/carebridge/appointment-scheduling/internal/logging"
	"github.com/carebridge/appointment-scheduling/internal/notify"
	redisclient "github.com/carebridge/appointment-scheduling/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.NewLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if err := db.Migrate(rootCtx, pgPool); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	slots := availability.NewPgStore(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	reminders := notify.NewPgReminderStore(pgPool)
	notifications := notify.NewPgNotificationStore(pgPool)
	email := notify.NewLogEmailSender(logger)

	dispatcher := appointment.NewSideEffectDispatcher(reminders, notifications, email, repo, logger, cfg.SideEffectQueue)
	defer dispatcher.Close()

	recon := appointment.NewReconciler(slots, repo)
	svc := appointment.NewService(repo, recon, locker, dispatcher, logger)

	router := api.NewRouter(api.RouterConfig{
		Service:       svc,
		Slots:         slots,
		Notifications: notifications,
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        logger,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
}
