package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/availability"
	redisclient "github.com/carebridge/appointment-scheduling/internal/redis"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
)

var (
	ErrSlotUnavailable   = errors.New("slot is not bookable for this provider")
	ErrSlotContended     = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Service is the appointment lifecycle: booking, rescheduling and status
// transitions, each committed before its side effects are dispatched.
type Service struct {
	repo       Repository
	recon      *Reconciler
	locker     redisclient.Locker
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewService(repo Repository, recon *Reconciler, locker redisclient.Locker, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		recon:      recon,
		locker:     locker,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Book reserves a provider slot for a patient. The bookability check and the
// appointment insert run inside a per provider/day lock so concurrent
// requests for the same slot cannot both succeed.
func (s *Service) Book(ctx context.Context, patientID, providerID uuid.UUID, facilityID *uuid.UUID, startAt time.Time) (*Appointment, error) {
	startAt = startAt.UTC().Truncate(time.Minute)

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, providerID, availability.DateOf(startAt), func(lockCtx context.Context) error {
		ok, err := s.recon.Bookable(lockCtx, providerID, startAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotUnavailable
		}

		appt, err := s.repo.CreateBooked(lockCtx, patientID, providerID, facilityID, startAt)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id":  patientID.String(),
			"provider_id": providerID.String(),
			"start_at":    startAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("provider_id", providerID.String()),
		zap.Time("start_at", created.StartAt),
	)

	s.dispatcher.AppointmentBooked(created)

	return created, nil
}

// Reschedule moves a booked appointment to a new instant. Rescheduling to
// the appointment's current instant is an idempotent no-op success; the
// appointment's own slot never blocks its own reschedule.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStartAt time.Time) (*Appointment, error) {
	newStartAt = newStartAt.UTC().Truncate(time.Minute)

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	if appt.StartAt.Equal(newStartAt) {
		return appt, nil
	}

	var updated *Appointment

	err = s.locker.WithBookingLock(ctx, appt.ProviderID, availability.DateOf(newStartAt), func(lockCtx context.Context) error {
		// Re-read inside the critical section: the status may have
		// changed since the pre-check.
		current, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return ErrInvalidTransition
		}

		ok, err := s.recon.BookableExcluding(lockCtx, current.ProviderID, newStartAt, current.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSlotUnavailable
		}

		moved, err := s.repo.UpdateStartAt(lockCtx, id, newStartAt)
		if err != nil {
			return fmt.Errorf("update appointment time: %w", err)
		}

		updated = moved

		s.logEvent(lockCtx, moved.ID, EventAppointmentRescheduled, map[string]any{
			"from": appt.StartAt,
			"to":   newStartAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	s.logger.Info("appointment rescheduled",
		zap.String("appointment_id", updated.ID.String()),
		zap.Time("from", appt.StartAt),
		zap.Time("to", updated.StartAt),
	)

	s.dispatcher.AppointmentRescheduled(updated)

	return updated, nil
}

// UpdateStatus moves a booked appointment to Completed or Cancelled. Both
// targets are terminal; no transition leaves them. Leaving Booked frees the
// slot, which needs no re-validation, and plain status changes dispatch no
// side effects.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) (*Appointment, error) {
	if newStatus != StatusCompleted && newStatus != StatusCancelled {
		return nil, ErrInvalidTransition
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusBooked, newStatus)
	if err != nil {
		// The CAS matched no row: a concurrent transition won.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	eventType := EventAppointmentCancelled
	if newStatus == StatusCompleted {
		eventType = EventAppointmentCompleted
	}
	s.logEvent(ctx, updated.ID, eventType, map[string]any{})

	s.logger.Info("appointment status updated",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// IsBookable exposes the reconciler's decision for a provider and instant.
func (s *Service) IsBookable(ctx context.Context, providerID uuid.UUID, at time.Time) (bool, error) {
	return s.recon.Bookable(ctx, providerID, at.UTC().Truncate(time.Minute))
}

// FreeSlots lists a provider's declared-minus-booked times for a date.
func (s *Service) FreeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	return s.recon.FreeSlots(ctx, providerID, date)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

func (s *Service) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByFacility(ctx, facilityID)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload failed",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log failed",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
