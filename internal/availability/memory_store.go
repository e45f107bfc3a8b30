package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-guarded in-process Store used by unit tests.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[uuid.UUID]Slot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[uuid.UUID]Slot)}
}

func (m *MemoryStore) Declare(_ context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (*Slot, error) {
	timeOfDay, err := CanonicalTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	date = DateOf(date)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.slots {
		if s.ProviderID == providerID && s.Date.Equal(date) && s.TimeOfDay == timeOfDay {
			existing := s
			return &existing, nil
		}
	}

	s := Slot{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       date,
		TimeOfDay:  timeOfDay,
		CreatedAt:  time.Now().UTC(),
	}
	m.slots[s.ID] = s
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(m.slots, id)
	return nil
}

func (m *MemoryStore) ListByProvider(_ context.Context, providerID uuid.UUID) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Slot
	for _, s := range m.slots {
		if s.ProviderID == providerID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].TimeOfDay < result[j].TimeOfDay
	})
	return result, nil
}

func (m *MemoryStore) ListSlots(_ context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	date = DateOf(date)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []string
	for _, s := range m.slots {
		if s.ProviderID == providerID && s.Date.Equal(date) {
			result = append(result, s.TimeOfDay)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (m *MemoryStore) HasSlot(_ context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (bool, error) {
	date = DateOf(date)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.slots {
		if s.ProviderID == providerID && s.Date.Equal(date) && s.TimeOfDay == timeOfDay {
			return true, nil
		}
	}
	return false, nil
}
