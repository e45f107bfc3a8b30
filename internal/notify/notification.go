package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotificationNotFound = errors.New("notification not found")

type Notification struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Kind      string
	Message   string
	Read      bool
	CreatedAt time.Time
}

type PgNotificationStore struct {
	pool *pgxpool.Pool
}

func NewPgNotificationStore(pool *pgxpool.Pool) *PgNotificationStore {
	return &PgNotificationStore{pool: pool}
}

func (r *PgNotificationStore) Create(ctx context.Context, patientID uuid.UUID, kind, message string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, patient_id, kind, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, false, now())
	`, uuid.New(), patientID, kind, message)
	return err
}

func (r *PgNotificationStore) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, kind, message, is_read, created_at
		FROM notifications
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.PatientID, &n.Kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *PgNotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
