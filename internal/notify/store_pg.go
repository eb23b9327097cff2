package notify

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS notifications (
		id           TEXT PRIMARY KEY,
		type         TEXT NOT NULL,
		recipient    TEXT NOT NULL DEFAULT '',
		payload      JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		delivered_at TIMESTAMPTZ
	)`,
}

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Insert(ctx context.Context, n Notification) (Notification, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO notifications(id, type, recipient, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, type, recipient, payload, created_at, delivered_at`,
		n.ID, n.Type, n.Recipient, n.Payload)
	return scanNotification(row)
}

func (s *PGStore) MarkDelivered(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `UPDATE notifications SET delivered_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) ListByRecipient(ctx context.Context, to string) ([]Notification, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, type, recipient, payload, created_at, delivered_at
		FROM notifications WHERE recipient=$1 ORDER BY created_at`, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Type, &n.Recipient, &n.Payload, &n.CreatedAt, &n.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}
