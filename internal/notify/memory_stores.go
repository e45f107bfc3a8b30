package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// In-process store variants used by unit tests.

type MemoryReminderStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]Reminder
}

func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{reminders: make(map[uuid.UUID]Reminder)}
}

func (m *MemoryReminderStore) Create(_ context.Context, patientID uuid.UUID, kind, message string, dueOn time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Reminder{
		ID:        uuid.New(),
		PatientID: patientID,
		Kind:      kind,
		Message:   message,
		DueOn:     dueOn,
		CreatedAt: time.Now().UTC(),
	}
	m.reminders[r.ID] = r
	return nil
}

func (m *MemoryReminderStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Reminder
	for _, r := range m.reminders {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueOn.Before(result[j].DueOn) })
	return result, nil
}

func (m *MemoryReminderStore) FindDue(_ context.Context, onOrBefore time.Time) ([]Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Reminder
	for _, r := range m.reminders {
		if r.SentAt == nil && !r.DueOn.After(onOrBefore) {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueOn.Before(result[j].DueOn) })
	return result, nil
}

func (m *MemoryReminderStore) MarkSent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if ok && r.SentAt == nil {
		now := time.Now().UTC()
		r.SentAt = &now
		m.reminders[id] = r
	}
	return nil
}

type MemoryNotificationStore struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]Notification
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{notifications: make(map[uuid.UUID]Notification)}
}

func (m *MemoryNotificationStore) Create(_ context.Context, patientID uuid.UUID, kind, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := Notification{
		ID:        uuid.New(),
		PatientID: patientID,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	m.notifications[n.ID] = n
	return nil
}

func (m *MemoryNotificationStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Notification
	for _, n := range m.notifications {
		if n.PatientID == patientID {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *MemoryNotificationStore) MarkRead(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Read = true
	m.notifications[id] = n
	return nil
}
