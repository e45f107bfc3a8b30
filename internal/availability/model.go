package availability

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a single (date, time-of-day) point a provider has declared open.
// Slots are discrete points, not ranges; two slots never overlap.
type Slot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time // UTC midnight
	TimeOfDay  string    // "15:04"
	CreatedAt  time.Time
}

// DateOf normalizes an instant to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// TimeOf extracts the "HH:MM" slot key of an instant in UTC.
func TimeOf(t time.Time) string {
	return t.UTC().Format("15:04")
}

// ValidTimeOfDay reports whether s is a well-formed "HH:MM" slot key.
func ValidTimeOfDay(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// CanonicalTimeOfDay parses a slot key and reformats it as zero-padded
// "HH:MM" so "9:00" and "09:00" address the same slot.
func CanonicalTimeOfDay(s string) (string, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", ErrInvalidTimeOfDay
	}
	return t.Format("15:04"), nil
}
