package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound     = errors.New("availability slot not found")
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM")
)

// Store holds the slots each provider has declared open.
type Store interface {
	// Declare records a slot. Declaring the same (provider, date, time)
	// twice is idempotent, not an error.
	Declare(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (*Slot, error)

	// Delete removes a declared slot by id.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByProvider returns every slot the provider has declared.
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Slot, error)

	// ListSlots returns the declared time-of-day set for a provider and date.
	ListSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error)

	// HasSlot reports exact membership of (provider, date, timeOfDay).
	HasSlot(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (bool, error)
}
