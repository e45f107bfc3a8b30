package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/appointment-scheduling/internal/availability"
)

// AvailabilityStore is the slice of the availability store the reconciler
// needs: exact slot membership for a provider, date and time of day.
type AvailabilityStore interface {
	HasSlot(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (bool, error)
	ListSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error)
}

// Reconciler decides whether a provider's slot is currently bookable: the
// slot must be declared open and must not be held by a booked appointment.
// Slots are exact (date, time-of-day) points; there is no interval or
// overlap logic.
type Reconciler struct {
	slots AvailabilityStore
	repo  Repository
}

func NewReconciler(slots AvailabilityStore, repo Repository) *Reconciler {
	return &Reconciler{slots: slots, repo: repo}
}

// Bookable reports whether (providerID, at) can take a new booking.
func (r *Reconciler) Bookable(ctx context.Context, providerID uuid.UUID, at time.Time) (bool, error) {
	return r.BookableExcluding(ctx, providerID, at, uuid.Nil)
}

// BookableExcluding is Bookable with one appointment exempted from the
// collision check. Rescheduling uses it so an appointment's own current
// slot never counts as occupying the target.
func (r *Reconciler) BookableExcluding(ctx context.Context, providerID uuid.UUID, at time.Time, exclude uuid.UUID) (bool, error) {
	at = at.UTC()

	declared, err := r.slots.HasSlot(ctx, providerID, availability.DateOf(at), availability.TimeOf(at))
	if err != nil {
		return false, fmt.Errorf("check declared availability: %w", err)
	}
	if !declared {
		return false, nil
	}

	booked, err := r.repo.FindBookedByProviderAndDate(ctx, providerID, availability.DateOf(at))
	if err != nil {
		return false, fmt.Errorf("check booked collisions: %w", err)
	}
	for _, a := range booked {
		if a.ID == exclude {
			continue
		}
		if a.StartAt.Equal(at) {
			return false, nil
		}
	}

	return true, nil
}

// FreeSlots returns the provider's declared time-of-day set for a date minus
// the points already held by booked appointments.
func (r *Reconciler) FreeSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	declared, err := r.slots.ListSlots(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list declared slots: %w", err)
	}

	booked, err := r.repo.FindBookedByProviderAndDate(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("list booked appointments: %w", err)
	}

	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		taken[availability.TimeOf(a.StartAt)] = true
	}

	free := make([]string, 0, len(declared))
	for _, t := range declared {
		if !taken[t] {
			free = append(free, t)
		}
	}
	return free, nil
}
