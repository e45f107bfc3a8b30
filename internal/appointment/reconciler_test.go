package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/appointment-scheduling/internal/availability"
)

func TestReconciler_Bookable(t *testing.T) {
	repo := NewMemoryRepository()
	slots := availability.NewMemoryStore()
	recon := NewReconciler(slots, repo)

	providerID := uuid.New()
	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	// Nothing declared yet.
	ok, err := recon.Bookable(ctx, providerID, at)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = slots.Declare(ctx, providerID, availability.DateOf(at), "09:00")
	require.NoError(t, err)

	ok, err = recon.Bookable(ctx, providerID, at)
	require.NoError(t, err)
	assert.True(t, ok)

	// A declared slot at a different time does not make 09:30 bookable:
	// matching is exact, not interval-based.
	ok, err = recon.Bookable(ctx, providerID, at.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReconciler_BookedCollisionBlocks(t *testing.T) {
	repo := NewMemoryRepository()
	slots := availability.NewMemoryStore()
	recon := NewReconciler(slots, repo)

	providerID := uuid.New()
	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	_, err := slots.Declare(ctx, providerID, availability.DateOf(at), "09:00")
	require.NoError(t, err)

	appt, err := repo.CreateBooked(ctx, uuid.New(), providerID, nil, at)
	require.NoError(t, err)

	ok, err := recon.Bookable(ctx, providerID, at)
	require.NoError(t, err)
	assert.False(t, ok)

	// The excluded appointment does not count against itself.
	ok, err = recon.BookableExcluding(ctx, providerID, at, appt.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Cancelled appointments release the point.
	_, err = repo.UpdateStatus(ctx, appt.ID, StatusBooked, StatusCancelled)
	require.NoError(t, err)

	ok, err = recon.Bookable(ctx, providerID, at)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconciler_CollisionIsPerProvider(t *testing.T) {
	repo := NewMemoryRepository()
	slots := availability.NewMemoryStore()
	recon := NewReconciler(slots, repo)

	providerA := uuid.New()
	providerB := uuid.New()
	at := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, p := range []uuid.UUID{providerA, providerB} {
		_, err := slots.Declare(ctx, p, availability.DateOf(at), "09:00")
		require.NoError(t, err)
	}

	_, err := repo.CreateBooked(ctx, uuid.New(), providerA, nil, at)
	require.NoError(t, err)

	ok, err := recon.Bookable(ctx, providerB, at)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReconciler_FreeSlots(t *testing.T) {
	repo := NewMemoryRepository()
	slots := availability.NewMemoryStore()
	recon := NewReconciler(slots, repo)

	providerID := uuid.New()
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, tod := range []string{"09:00", "10:00", "11:00"} {
		_, err := slots.Declare(ctx, providerID, date, tod)
		require.NoError(t, err)
	}

	_, err := repo.CreateBooked(ctx, uuid.New(), providerID, nil, date.Add(10*time.Hour))
	require.NoError(t, err)

	free, err := recon.FreeSlots(ctx, providerID, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "11:00"}, free)
}
