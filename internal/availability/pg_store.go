package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Date,
		&s.TimeOfDay,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = DateOf(s.Date)
	return &s, nil
}

func (r *PgStore) Declare(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (*Slot, error) {
	timeOfDay, err := CanonicalTimeOfDay(timeOfDay)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	date = DateOf(date)

	// ON CONFLICT DO NOTHING returns no row for a duplicate declaration,
	// in which case the existing slot is fetched instead.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, provider_id, slot_date, slot_time, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (provider_id, slot_date, slot_time) DO NOTHING
		RETURNING id, provider_id, slot_date, slot_time, created_at
	`, id, providerID, date, timeOfDay)

	slot, err := scanSlot(row)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, ErrSlotNotFound) {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT id, provider_id, slot_date, slot_time, created_at
		FROM availability_slots
		WHERE provider_id = $1 AND slot_date = $2 AND slot_time = $3
	`, providerID, date, timeOfDay)
	return scanSlot(row)
}

func (r *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgStore) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, slot_date, slot_time, created_at
		FROM availability_slots
		WHERE provider_id = $1
		ORDER BY slot_date, slot_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	return result, rows.Err()
}

func (r *PgStore) ListSlots(ctx context.Context, providerID uuid.UUID, date time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_time
		FROM availability_slots
		WHERE provider_id = $1 AND slot_date = $2
		ORDER BY slot_time
	`, providerID, DateOf(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	return result, rows.Err()
}

func (r *PgStore) HasSlot(ctx context.Context, providerID uuid.UUID, date time.Time, timeOfDay string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE provider_id = $1 AND slot_date = $2 AND slot_time = $3
		)
	`, providerID, DateOf(date), timeOfDay).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
