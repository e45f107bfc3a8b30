package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
)

type fakePatients struct {
	patients map[uuid.UUID]appointment.Patient
}

func (f *fakePatients) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	return &p, nil
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []string // recipient addresses
	fail bool
}

func (r *recordingEmail) Send(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, to)
	return nil
}

func TestDeliverDue_SendsAndMarks(t *testing.T) {
	store := NewMemoryReminderStore()
	email := &recordingEmail{}
	ctx := context.Background()

	patientID := uuid.New()
	addr := "pat@example.com"
	patients := &fakePatients{patients: map[uuid.UUID]appointment.Patient{
		patientID: {ID: patientID, Name: "Pat Doe", Email: &addr},
	}}

	today := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Create(ctx, patientID, "appointment", "checkup tomorrow", today))
	require.NoError(t, store.Create(ctx, patientID, "appointment", "next week", today.AddDate(0, 0, 7)))

	mailer := NewReminderMailer(store, patients, email, zap.NewNop())

	delivered, err := mailer.DeliverDue(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []string{addr}, email.sent)

	// A second run finds nothing left to send.
	delivered, err = mailer.DeliverDue(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
}

func TestDeliverDue_UnknownPatientSkipped(t *testing.T) {
	store := NewMemoryReminderStore()
	email := &recordingEmail{}
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, uuid.New(), "appointment", "orphan", time.Now().UTC()))

	mailer := NewReminderMailer(store, &fakePatients{patients: map[uuid.UUID]appointment.Patient{}}, email, zap.NewNop())

	delivered, err := mailer.DeliverDue(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, email.sent)
}

func TestDeliverDue_SendFailureLeavesReminderUnsent(t *testing.T) {
	store := NewMemoryReminderStore()
	email := &recordingEmail{fail: true}
	ctx := context.Background()

	patientID := uuid.New()
	addr := "pat@example.com"
	patients := &fakePatients{patients: map[uuid.UUID]appointment.Patient{
		patientID: {ID: patientID, Name: "Pat Doe", Email: &addr},
	}}

	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, patientID, "appointment", "checkup", now))

	mailer := NewReminderMailer(store, patients, email, zap.NewNop())

	delivered, err := mailer.DeliverDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)

	// Still due for the next run.
	email.fail = false
	delivered, err = mailer.DeliverDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestDeliverDue_NoEmailAddressStillMarksSent(t *testing.T) {
	store := NewMemoryReminderStore()
	email := &recordingEmail{}
	ctx := context.Background()

	patientID := uuid.New()
	patients := &fakePatients{patients: map[uuid.UUID]appointment.Patient{
		patientID: {ID: patientID, Name: "Pat Doe"},
	}}

	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, patientID, "appointment", "checkup", now))

	mailer := NewReminderMailer(store, patients, email, zap.NewNop())

	delivered, err := mailer.DeliverDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Empty(t, email.sent)
}
