package appointment

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

	"github.com/carebridge/appointment-scheduling/internal/availability"
)

type call struct {
	collaborator string
	patientID    uuid.UUID
	kind         string
	message      string
	dueOn        time.Time
	to           string
	subject      string
}

// fakeCollaborators records reminder/notification/email calls in arrival
// order and can be told to fail any of the three.
type fakeCollaborators struct {
	mu           sync.Mutex
	calls        []call
	failReminder bool
	failNotify   bool
	failEmail    bool
}

func (f *fakeCollaborators) Create(ctx context.Context, patientID uuid.UUID, kind, message string, dueOn time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{collaborator: "reminder", patientID: patientID, kind: kind, message: message, dueOn: dueOn})
	if f.failReminder {
		return errors.New("reminder store down")
	}
	return nil
}

type fakeNotifications struct{ parent *fakeCollaborators }

func (f fakeNotifications) Create(ctx context.Context, patientID uuid.UUID, kind, message string) error {
	f.parent.mu.Lock()
	defer f.parent.mu.Unlock()
	f.parent.calls = append(f.parent.calls, call{collaborator: "notification", patientID: patientID, kind: kind, message: message})
	if f.parent.failNotify {
		return errors.New("notification store down")
	}
	return nil
}

type fakeEmail struct{ parent *fakeCollaborators }

func (f fakeEmail) Send(ctx context.Context, to, subject, body string) error {
	f.parent.mu.Lock()
	defer f.parent.mu.Unlock()
	f.parent.calls = append(f.parent.calls, call{collaborator: "email", to: to, subject: subject, message: body})
	if f.parent.failEmail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeCollaborators) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func newDispatcherFixture(failReminder, failNotify, failEmail bool) (*SideEffectDispatcher, *fakeCollaborators, *MemoryRepository) {
	collab := &fakeCollaborators{
		failReminder: failReminder,
		failNotify:   failNotify,
		failEmail:    failEmail,
	}
	repo := NewMemoryRepository()
	d := NewSideEffectDispatcher(collab, fakeNotifications{collab}, fakeEmail{collab}, repo, zap.NewNop(), 8)
	return d, collab, repo
}

func testAppointment(repo *MemoryRepository, withEmail bool) Appointment {
	patientID := uuid.New()
	p := Patient{ID: patientID, Name: "Pat Doe"}
	if withEmail {
		email := "pat@example.com"
		p.Email = &email
	}
	repo.AddPatient(p)

	return Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: uuid.New(),
		StartAt:    time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		Status:     StatusBooked,
	}
}

func TestDispatcher_BookedFansOutInOrder(t *testing.T) {
	d, collab, repo := newDispatcherFixture(false, false, false)
	appt := testAppointment(repo, true)

	d.AppointmentBooked(&appt)
	d.Close()

	calls := collab.snapshot()
	require.Len(t, calls, 3)
	assert.Equal(t, "reminder", calls[0].collaborator)
	assert.Equal(t, "notification", calls[1].collaborator)
	assert.Equal(t, "email", calls[2].collaborator)

	assert.Equal(t, appt.PatientID, calls[0].patientID)
	assert.Equal(t, "appointment", calls[0].kind)
	assert.Contains(t, calls[0].message, "Jun 10, 2024 at 09:00 AM")
	// Due one day before the appointment date.
	assert.True(t, calls[0].dueOn.Equal(availability.DateOf(appt.StartAt).AddDate(0, 0, -1)))

	assert.Equal(t, NotificationConfirmed, calls[1].kind)
	assert.Contains(t, calls[1].message, "confirmed")

	assert.Equal(t, "pat@example.com", calls[2].to)
	assert.Equal(t, "Appointment Confirmation - Carebridge", calls[2].subject)
	assert.Contains(t, calls[2].message, "Dear Pat Doe")
}

func TestDispatcher_RescheduledUsesRescheduleWording(t *testing.T) {
	d, collab, repo := newDispatcherFixture(false, false, false)
	appt := testAppointment(repo, true)

	d.AppointmentRescheduled(&appt)
	d.Close()

	calls := collab.snapshot()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].message, "rescheduled")
	assert.Equal(t, NotificationRescheduled, calls[1].kind)
	assert.Equal(t, "Appointment Rescheduled - Carebridge", calls[2].subject)
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	d, collab, repo := newDispatcherFixture(true, true, true)
	appt := testAppointment(repo, true)

	// Must not panic or surface anything; later collaborators still run.
	d.AppointmentBooked(&appt)
	d.Close()

	calls := collab.snapshot()
	require.Len(t, calls, 3)
}

func TestDispatcher_NoEmailForPatientWithoutAddress(t *testing.T) {
	d, collab, repo := newDispatcherFixture(false, false, false)
	appt := testAppointment(repo, false)

	d.AppointmentBooked(&appt)
	d.Close()

	calls := collab.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "reminder", calls[0].collaborator)
	assert.Equal(t, "notification", calls[1].collaborator)
}

func TestDispatcher_QueueFullDropsInsteadOfBlocking(t *testing.T) {
	collab := &fakeCollaborators{}
	repo := NewMemoryRepository()
	appt := testAppointment(repo, false)

	d := &SideEffectDispatcher{
		reminders:     collab,
		notifications: fakeNotifications{collab},
		email:         fakeEmail{collab},
		patients:      repo,
		logger:        zap.NewNop(),
		events:        make(chan sideEffect, 1),
		done:          make(chan struct{}),
	}
	// No consumer goroutine: the first enqueue fills the queue, the
	// second must return immediately instead of blocking.
	d.AppointmentBooked(&appt)

	finished := make(chan struct{})
	go func() {
		d.AppointmentBooked(&appt)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}
}
