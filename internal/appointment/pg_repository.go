package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	p.Phone = phone
	return &p, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var facilityID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProviderID,
		&facilityID,
		&a.StartAt,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.FacilityID = facilityID
	a.StartAt = a.StartAt.UTC()
	return &a, nil
}

func (r *PgRepository) scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	return result, rows.Err()
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindBookedByProviderAndDate(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Appointment, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		  AND status = 'booked'
		  AND start_at >= $2
		  AND start_at < $3
	`, providerID, day, day.Add(24*time.Hour))
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_at
	`, patientID)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1
		ORDER BY start_at
	`, providerID)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE facility_id = $1
		ORDER BY start_at
	`, facilityID)
	if err != nil {
		return nil, err
	}
	return r.scanAppointments(rows)
}

func (r *PgRepository) CreateBooked(ctx context.Context, patientID, providerID uuid.UUID, facilityID *uuid.UUID, startAt time.Time) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'booked', now(), now())
		RETURNING id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
	`, id, patientID, providerID, facilityID, startAt.UTC())

	return scanAppointment(row)
}

func (r *PgRepository) UpdateStartAt(ctx context.Context, id uuid.UUID, startAt time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'booked'
		RETURNING id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
	`, id, startAt.UTC())

	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, provider_id, facility_id, start_at, status, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
