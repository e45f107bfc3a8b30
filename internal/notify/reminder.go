package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Reminder struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Kind      string
	Message   string
	DueOn     time.Time
	SentAt    *time.Time
	CreatedAt time.Time
}

type PgReminderStore struct {
	pool *pgxpool.Pool
}

func NewPgReminderStore(pool *pgxpool.Pool) *PgReminderStore {
	return &PgReminderStore{pool: pool}
}

func (r *PgReminderStore) Create(ctx context.Context, patientID uuid.UUID, kind, message string, dueOn time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminders (id, patient_id, kind, message, due_on, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, uuid.New(), patientID, kind, message, dueOn)
	return err
}

func (r *PgReminderStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, kind, message, due_on, sent_at, created_at
		FROM reminders
		WHERE patient_id = $1
		ORDER BY due_on
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.PatientID, &rem.Kind, &rem.Message, &rem.DueOn, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rem)
	}
	return result, rows.Err()
}

// FindDue returns unsent reminders due on or before the given day.
func (r *PgReminderStore) FindDue(ctx context.Context, onOrBefore time.Time) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, kind, message, due_on, sent_at, created_at
		FROM reminders
		WHERE sent_at IS NULL AND due_on <= $1
		ORDER BY due_on
	`, onOrBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.PatientID, &rem.Kind, &rem.Message, &rem.DueOn, &rem.SentAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, rem)
	}
	return result, rows.Err()
}

func (r *PgReminderStore) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminders SET sent_at = now() WHERE id = $1 AND sent_at IS NULL
	`, id)
	return err
}
