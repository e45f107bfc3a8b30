package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/availability"
)

// Dispatcher receives committed lifecycle transitions. Implementations are
// best-effort: nothing they do may fail or block the transition that
// already committed.
type Dispatcher interface {
	AppointmentBooked(appt *Appointment)
	AppointmentRescheduled(appt *Appointment)
}

// Collaborator interfaces, owned here so the core never depends on a
// concrete notification implementation.

type ReminderCreator interface {
	Create(ctx context.Context, patientID uuid.UUID, kind, message string, dueOn time.Time) error
}

type NotificationCreator interface {
	Create(ctx context.Context, patientID uuid.UUID, kind, message string) error
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

const (
	eventKindBooked      = "booked"
	eventKindRescheduled = "rescheduled"

	NotificationConfirmed   = "appointment_confirmed"
	NotificationRescheduled = "appointment_rescheduled"
)

type sideEffect struct {
	kind string
	appt Appointment
}

// SideEffectDispatcher fans a committed transition out to the reminder,
// notification and email collaborators, in that order, off the caller's
// request path. Failures are logged and swallowed; a full queue drops the
// event rather than blocking the booking response.
type SideEffectDispatcher struct {
	reminders     ReminderCreator
	notifications NotificationCreator
	email         EmailSender
	patients      Repository
	logger        *zap.Logger

	events chan sideEffect
	done   chan struct{}
}

func NewSideEffectDispatcher(
	reminders ReminderCreator,
	notifications NotificationCreator,
	email EmailSender,
	patients Repository,
	logger *zap.Logger,
	queueSize int,
) *SideEffectDispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &SideEffectDispatcher{
		reminders:     reminders,
		notifications: notifications,
		email:         email,
		patients:      patients,
		logger:        logger,
		events:        make(chan sideEffect, queueSize),
		done:          make(chan struct{}),
	}

	go d.run()
	return d
}

func (d *SideEffectDispatcher) AppointmentBooked(appt *Appointment) {
	d.enqueue(sideEffect{kind: eventKindBooked, appt: *appt})
}

func (d *SideEffectDispatcher) AppointmentRescheduled(appt *Appointment) {
	d.enqueue(sideEffect{kind: eventKindRescheduled, appt: *appt})
}

func (d *SideEffectDispatcher) enqueue(ev sideEffect) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn("side effect queue full, dropping event",
			zap.String("kind", ev.kind),
			zap.String("appointment_id", ev.appt.ID.String()),
		)
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *SideEffectDispatcher) Close() {
	close(d.events)
	<-d.done
}

func (d *SideEffectDispatcher) run() {
	defer close(d.done)

	for ev := range d.events {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		d.process(ctx, ev)
		cancel()
	}
}

func (d *SideEffectDispatcher) process(ctx context.Context, ev sideEffect) {
	appt := ev.appt
	when := appt.StartAt.UTC().Format("Jan 02, 2006 at 03:04 PM")

	var reminderMsg, notifyMsg, notifyKind string
	switch ev.kind {
	case eventKindRescheduled:
		reminderMsg = "You have a rescheduled appointment for " + when
		notifyMsg = "Your appointment has been rescheduled to " + when
		notifyKind = NotificationRescheduled
	default:
		reminderMsg = "You have an appointment scheduled for " + when
		notifyMsg = "Your appointment has been confirmed for " + when
		notifyKind = NotificationConfirmed
	}

	dueOn := availability.DateOf(appt.StartAt).AddDate(0, 0, -1)
	if err := d.reminders.Create(ctx, appt.PatientID, "appointment", reminderMsg, dueOn); err != nil {
		d.logger.Warn("create reminder failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
	}

	if err := d.notifications.Create(ctx, appt.PatientID, notifyKind, notifyMsg); err != nil {
		d.logger.Warn("create notification failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
	}

	if err := d.sendConfirmationEmail(ctx, ev); err != nil {
		d.logger.Warn("send confirmation email failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err),
		)
	}
}

func (d *SideEffectDispatcher) sendConfirmationEmail(ctx context.Context, ev sideEffect) error {
	appt := ev.appt

	patient, err := d.patients.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}
	if patient.Email == nil || *patient.Email == "" {
		return nil
	}

	subject := "Appointment Confirmation - Carebridge"
	verb := "booked"
	if ev.kind == eventKindRescheduled {
		subject = "Appointment Rescheduled - Carebridge"
		verb = "rescheduled"
	}

	facility := "n/a"
	if appt.FacilityID != nil {
		facility = appt.FacilityID.String()
	}

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your appointment has been successfully %s!\n\n"+
			"Appointment Details:\n"+
			"Date & Time: %s\n"+
			"Provider ID: %s\n"+
			"Facility ID: %s\n\n"+
			"Please arrive 15 minutes early for your appointment.\n\n"+
			"If you need to reschedule or cancel, please contact us.\n\n"+
			"Best regards,\n"+
			"Carebridge Appointment System",
		patient.Name,
		verb,
		appt.StartAt.UTC().Format("January 02, 2006 at 03:04 PM"),
		appt.ProviderID,
		facility,
	)

	return d.email.Send(ctx, *patient.Email, subject, body)
}
