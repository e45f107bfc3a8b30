package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/appointment-scheduling/internal/appointment"
	"github.com/carebridge/appointment-scheduling/internal/availability"
	"github.com/carebridge/appointment-scheduling/internal/notify"
	redisclient "github.com/carebridge/appointment-scheduling/internal/redis"
)

type noopDispatcher struct{}

func (noopDispatcher) AppointmentBooked(*appointment.Appointment)      {}
func (noopDispatcher) AppointmentRescheduled(*appointment.Appointment) {}

type testEnv struct {
	router     http.Handler
	repo       *appointment.MemoryRepository
	slots      *availability.MemoryStore
	notifs     *notify.MemoryNotificationStore
	patientID  uuid.UUID
	providerID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := appointment.NewMemoryRepository()
	slots := availability.NewMemoryStore()
	notifs := notify.NewMemoryNotificationStore()

	recon := appointment.NewReconciler(slots, repo)
	svc := appointment.NewService(repo, recon, redisclient.NewMemoryBookingLocker(), noopDispatcher{}, zap.NewNop())

	env := &testEnv{
		repo:       repo,
		slots:      slots,
		notifs:     notifs,
		patientID:  uuid.New(),
		providerID: uuid.New(),
	}
	repo.AddPatient(appointment.Patient{ID: env.patientID, Name: "Pat Doe"})
	repo.AddProvider(appointment.Provider{ID: env.providerID, Name: "Dr. Reyes"})

	env.router = NewRouter(RouterConfig{
		Service:       svc,
		Slots:         slots,
		Notifications: notifs,
		Logger:        zap.NewNop(),
		Env:           "test",
		Version:       "test",
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) declareSlot(t *testing.T, date, tod string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/availability", DeclareSlotRequest{
		ProviderID: e.providerID.String(),
		Date:       date,
		Time:       tod,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (e *testEnv) book(t *testing.T, startAt string) AppointmentResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID:  e.patientID.String(),
		ProviderID: e.providerID.String(),
		StartAt:    startAt,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestBookEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")

	resp := env.book(t, "2024-06-10T09:00:00Z")
	assert.Equal(t, "booked", resp.Status)
	assert.Equal(t, env.patientID, resp.PatientID)
}

func TestBookEndpoint_DoubleBookingConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")
	env.book(t, "2024-06-10T09:00:00Z")

	other := uuid.New()
	env.repo.AddPatient(appointment.Patient{ID: other, Name: "Sam Lee"})

	rec := env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID:  other.String(),
		ProviderID: env.providerID.String(),
		StartAt:    "2024-06-10T09:00:00Z",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "slot_unavailable", errResp.Error)
}

func TestBookEndpoint_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID:  "not-a-uuid",
		ProviderID: env.providerID.String(),
		StartAt:    "2024-06-10T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID:  env.patientID.String(),
		ProviderID: env.providerID.String(),
		StartAt:    "tomorrow",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookEndpoint_UnknownPatientIs404(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")

	rec := env.do(t, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID:  uuid.NewString(),
		ProviderID: env.providerID.String(),
		StartAt:    "2024-06-10T09:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRescheduleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")
	env.declareSlot(t, "2024-06-11", "10:00")

	appt := env.book(t, "2024-06-10T09:00:00Z")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/reschedule", appt.ID),
		RescheduleAppointmentRequest{StartAt: "2024-06-11T10:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, time.Date(2024, 6, 11, 10, 0, 0, 0, time.UTC), resp.StartAt.UTC())

	// The freed slot shows up again.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/providers/%s/free-slots?date=2024-06-10", env.providerID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var free FreeSlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &free))
	assert.Equal(t, []string{"09:00"}, free.Times)
}

func TestRescheduleEndpoint_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/reschedule", uuid.New()),
		RescheduleAppointmentRequest{StartAt: "2024-06-11T10:00:00Z"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelThenCompleteConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")
	appt := env.book(t, "2024-06-10T09:00:00Z")

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/cancel", appt.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/complete", appt.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "invalid_status_transition", errResp.Error)
}

func TestListAppointmentsByPatient(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")
	appt := env.book(t, "2024-06-10T09:00:00Z")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/appointments", env.patientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, appt.ID, resp[0].ID)
}

func TestNotificationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.notifs.Create(ctx, env.patientID, "appointment_confirmed", "see you soon"))

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/patients/%s/notifications", env.patientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ns []NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ns))
	require.Len(t, ns, 1)
	assert.False(t, ns[0].Read)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/notifications/%s/read", ns[0].ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/notifications/%s/read", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeclareSlotEndpoint_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/availability", DeclareSlotRequest{
		ProviderID: env.providerID.String(),
		Date:       "June 10",
		Time:       "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/availability", DeclareSlotRequest{
		ProviderID: env.providerID.String(),
		Date:       "2024-06-10",
		Time:       "morning",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSlotEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.declareSlot(t, "2024-06-10", "09:00")

	slots, err := env.slots.ListByProvider(context.Background(), env.providerID)
	require.NoError(t, err)
	require.Len(t, slots, 1)

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/availability/%s", slots[0].ID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/availability/%s", slots[0].ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLivenessEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
