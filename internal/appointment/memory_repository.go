package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/appointment-scheduling/internal/availability"
)

// MemoryRepository is an in-process Repository used by unit tests. All
// methods are safe for concurrent use.
type MemoryRepository struct {
	mu           sync.RWMutex
	patients     map[uuid.UUID]Patient
	providers    map[uuid.UUID]Provider
	appointments map[uuid.UUID]Appointment
	events       []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[uuid.UUID]Patient),
		providers:    make(map[uuid.UUID]Provider),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func (m *MemoryRepository) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) AddProvider(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.ID] = p
}

// Events returns a copy of the event log in insertion order.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) FindBookedByProviderAndDate(_ context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error) {
	day := availability.DateOf(date)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if a.ProviderID == providerID && a.Status == StatusBooked && availability.DateOf(a.StartAt).Equal(day) {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *MemoryRepository) list(match func(Appointment) bool) []Appointment {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Appointment
	for _, a := range m.appointments {
		if match(a) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartAt.Before(result[j].StartAt) })
	return result
}

func (m *MemoryRepository) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return m.list(func(a Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *MemoryRepository) ListByProvider(_ context.Context, providerID uuid.UUID) ([]Appointment, error) {
	return m.list(func(a Appointment) bool { return a.ProviderID == providerID }), nil
}

func (m *MemoryRepository) ListByFacility(_ context.Context, facilityID uuid.UUID) ([]Appointment, error) {
	return m.list(func(a Appointment) bool {
		return a.FacilityID != nil && *a.FacilityID == facilityID
	}), nil
}

func (m *MemoryRepository) CreateBooked(_ context.Context, patientID, providerID uuid.UUID, facilityID *uuid.UUID, startAt time.Time) (*Appointment, error) {
	now := time.Now().UTC()
	a := Appointment{
		ID:         uuid.New(),
		PatientID:  patientID,
		ProviderID: providerID,
		FacilityID: facilityID,
		StartAt:    startAt.UTC(),
		Status:     StatusBooked,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.appointments[a.ID] = a
	return &a, nil
}

func (m *MemoryRepository) UpdateStartAt(_ context.Context, id uuid.UUID, startAt time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != StatusBooked {
		return nil, ErrAppointmentNotFound
	}

	a.StartAt = startAt.UTC()
	a.UpdatedAt = time.Now().UTC()
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}

	a.Status = to
	a.UpdatedAt = time.Now().UTC()
	m.appointments[id] = a
	return &a, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}
