package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
)

// ReminderStore is the slice of the reminder store the mailer needs.
type ReminderStore interface {
	FindDue(ctx context.Context, onOrBefore time.Time) ([]Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
}

// PatientLookup resolves a patient's contact details.
type PatientLookup interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*appointment.Patient, error)
}

// EmailSender hands a message to the mail channel.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReminderMailer delivers due reminders. It is driven periodically by the
// reminder worker; each run is independent and failures on one reminder do
// not stop the rest.
type ReminderMailer struct {
	reminders ReminderStore
	patients  PatientLookup
	email     EmailSender
	logger    *zap.Logger
}

func NewReminderMailer(reminders ReminderStore, patients PatientLookup, email EmailSender, logger *zap.Logger) *ReminderMailer {
	return &ReminderMailer{
		reminders: reminders,
		patients:  patients,
		email:     email,
		logger:    logger,
	}
}

// DeliverDue sends every unsent reminder due on or before now's calendar day
// and marks it sent. Returns the number delivered.
func (m *ReminderMailer) DeliverDue(ctx context.Context, now time.Time) (int, error) {
	due, err := m.reminders.FindDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	delivered := 0
	for _, rem := range due {
		patient, err := m.patients.GetPatientByID(ctx, rem.PatientID)
		if err != nil {
			m.logger.Warn("reminder patient lookup failed",
				zap.String("reminder_id", rem.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if patient.Email != nil && *patient.Email != "" {
			subject := "Reminder - Carebridge"
			body := fmt.Sprintf("Reminder: %s on %s", rem.Message, rem.DueOn.Format("2006-01-02"))
			if err := m.email.Send(ctx, *patient.Email, subject, body); err != nil {
				m.logger.Warn("reminder email failed",
					zap.String("reminder_id", rem.ID.String()),
					zap.Error(err),
				)
				continue
			}
		}

		if err := m.reminders.MarkSent(ctx, rem.ID); err != nil {
			m.logger.Warn("mark reminder sent failed",
				zap.String("reminder_id", rem.ID.String()),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}

	return delivered, nil
}
