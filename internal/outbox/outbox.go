package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queue is a small durable outbox for inventory compensations the saga
// could not deliver inline. Rows stay until a worker delivers them.
type Queue struct{ DB *pgxpool.Pool }

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS compensations (
		id             BIGSERIAL PRIMARY KEY,
		action         TEXT NOT NULL,
		reservation_id TEXT NOT NULL,
		order_id       TEXT NOT NULL,
		attempts       INT NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		sent_at        TIMESTAMPTZ
	)`,
}

type Record struct {
	ID            int64      `json:"id"`
	Action        string     `json:"action"` // release | commit
	ReservationID string     `json:"reservation_id"`
	OrderID       string     `json:"order_id"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	SentAt        *time.Time `json:"sent_at"`
}

func (q *Queue) Enqueue(ctx context.Context, action, reservationID, orderID string) error {
	_, err := q.DB.Exec(ctx, `INSERT INTO compensations(action, reservation_id, order_id) VALUES ($1, $2, $3)`,
		action, reservationID, orderID)
	return err
}

func (q *Queue) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	rows, err := q.DB.Query(ctx, `
		SELECT id, action, reservation_id, order_id, attempts, created_at, sent_at
		FROM compensations WHERE sent_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.ReservationID, &rec.OrderID, &rec.Attempts, &rec.CreatedAt, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (q *Queue) MarkSent(ctx context.Context, id int64) error {
	_, err := q.DB.Exec(ctx, `UPDATE compensations SET sent_at=now() WHERE id=$1`, id)
	return err
}

func (q *Queue) Bump(ctx context.Context, id int64) error {
	_, err := q.DB.Exec(ctx, `UPDATE compensations SET attempts=attempts+1 WHERE id=$1`, id)
	return err
}
