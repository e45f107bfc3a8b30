package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// For conflict checks: booked appointments of a provider on a UTC calendar day.
	FindBookedByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error)

	// Read accessors
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error)
	ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]Appointment, error)

	// Creation and transitions
	CreateBooked(ctx context.Context, patientID, providerID uuid.UUID, facilityID *uuid.UUID, startAt time.Time) (*Appointment, error)
	// UpdateStartAt moves a still-booked appointment to a new instant.
	UpdateStartAt(ctx context.Context, id uuid.UUID, startAt time.Time) (*Appointment, error)
	// UpdateStatus performs a compare-and-swap from one status to another,
	// returning ErrAppointmentNotFound when no row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
