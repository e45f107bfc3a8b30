package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
	"github.com/carebridge/appointment-scheduling/internal/config"
	"github.com/carebridge/appointment-scheduling/internal/db"
	"github.com/carebridge/appointment-scheduling/internal/logging"
	"github.com/carebridge/appointment-scheduling/internal/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load error: " + err.Error())
	}

	logger := logging.NewLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("reminder-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
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

	reminders := notify.NewPgReminderStore(pgPool)
	patients := appointment.NewPgRepository(pgPool)
	email := notify.NewLogEmailSender(logger)

	mailer := notify.NewReminderMailer(reminders, patients, email, logger)

	// Run once at startup
	runOnce(rootCtx, mailer, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, mailer, logger)
		}
	}
}

func runOnce(ctx context.Context, mailer *notify.ReminderMailer, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	delivered, err := mailer.DeliverDue(runCtx, time.Now().UTC())
	if err != nil {
		logger.Error("reminder run error", zap.Error(err))
		return
	}

	logger.Info("reminder run complete",
		zap.Int("delivered", delivered),
		zap.Duration("took", time.Since(start)),
	)
}
