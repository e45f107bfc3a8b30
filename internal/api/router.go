package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
	"github.com/carebridge/appointment-scheduling/internal/availability"
	"github.com/carebridge/appointment-scheduling/internal/notify"
)

// NotificationStore is the notification surface the API exposes.
type NotificationStore interface {
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]notify.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type RouterConfig struct {
	Service       *appointment.Service
	Slots         availability.Store
	Notifications NotificationStore
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *zap.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability endpoints
	r.Post("/availability", declareSlotHandler(cfg.Slots))
	r.Delete("/availability/{id}", deleteSlotHandler(cfg.Slots))
	r.Get("/providers/{id}/availability", listProviderSlotsHandler(cfg.Slots))
	r.Get("/providers/{id}/free-slots", freeSlotsHandler(cfg.Service))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", updateStatusHandler(cfg.Service, appointment.StatusCancelled))
	r.Post("/appointments/{id}/complete", updateStatusHandler(cfg.Service, appointment.StatusCompleted))

	r.Get("/patients/{id}/appointments", listAppointmentsHandler(func(req *http.Request, id uuid.UUID) ([]appointment.Appointment, error) {
		return cfg.Service.ListByPatient(req.Context(), id)
	}))
	r.Get("/providers/{id}/appointments", listAppointmentsHandler(func(req *http.Request, id uuid.UUID) ([]appointment.Appointment, error) {
		return cfg.Service.ListByProvider(req.Context(), id)
	}))
	r.Get("/facilities/{id}/appointments", listAppointmentsHandler(func(req *http.Request, id uuid.UUID) ([]appointment.Appointment, error) {
		return cfg.Service.ListByFacility(req.Context(), id)
	}))

	// Notification endpoints
	r.Get("/patients/{id}/notifications", listNotificationsHandler(cfg.Notifications))
	r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))

	return r
}
