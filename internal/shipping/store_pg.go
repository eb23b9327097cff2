package shipping

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS shipments (
		tracking_id TEXT PRIMARY KEY,
		order_id    TEXT UNIQUE NOT NULL,
		user_id     TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS shipment_stages (
		id          BIGSERIAL PRIMARY KEY,
		tracking_id TEXT NOT NULL,
		name        TEXT NOT NULL,
		at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) CreateOrGet(ctx context.Context, sh Shipment) (Shipment, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Shipment{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT tracking_id, order_id, user_id, status, created_at, updated_at
		FROM shipments WHERE order_id=$1`, sh.OrderID)
	existing, err := scanShipment(row)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Shipment{}, err
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO shipments(tracking_id, order_id, user_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING tracking_id, order_id, user_id, status, created_at, updated_at`,
		sh.TrackingID, sh.OrderID, sh.UserID, sh.Status)
	created, err := scanShipment(row)
	if err != nil {
		return Shipment{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO shipment_stages(tracking_id, name) VALUES ($1, $2)`,
		created.TrackingID, created.Status); err != nil {
		return Shipment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Shipment{}, err
	}
	return created, nil
}

// Advance locks the shipment row so two concurrent advances cannot both
// append the same next stage.
func (s *PGStore) Advance(ctx context.Context, trackingID string) (Shipment, bool, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Shipment{}, false, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT tracking_id, order_id, user_id, status, created_at, updated_at
		FROM shipments WHERE tracking_id=$1 FOR UPDATE`, trackingID)
	sh, err := scanShipment(row)
	if err != nil {
		return Shipment{}, false, err
	}

	next, ok := NextStage(sh.Status)
	if !ok {
		return sh, true, tx.Commit(ctx) // terminal: no write
	}

	row = tx.QueryRow(ctx, `
		UPDATE shipments SET status=$2, updated_at=now()
		WHERE tracking_id=$1
		RETURNING tracking_id, order_id, user_id, status, created_at, updated_at`, trackingID, next)
	sh, err = scanShipment(row)
	if err != nil {
		return Shipment{}, false, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO shipment_stages(tracking_id, name) VALUES ($1, $2)`, trackingID, next); err != nil {
		return Shipment{}, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Shipment{}, false, err
	}
	return sh, false, nil
}

func (s *PGStore) Get(ctx context.Context, trackingID string) (Shipment, error) {
	row := s.DB.QueryRow(ctx, `
		SELECT tracking_id, order_id, user_id, status, created_at, updated_at
		FROM shipments WHERE tracking_id=$1`, trackingID)
	sh, err := scanShipment(row)
	if err != nil {
		return Shipment{}, err
	}

	rows, err := s.DB.Query(ctx, `SELECT name, at FROM shipment_stages WHERE tracking_id=$1 ORDER BY id`, trackingID)
	if err != nil {
		return Shipment{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var st Stage
		if err := rows.Scan(&st.Name, &st.At); err != nil {
			return Shipment{}, err
		}
		sh.Stages = append(sh.Stages, st)
	}
	return sh, rows.Err()
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var sh Shipment
	err := row.Scan(&sh.TrackingID, &sh.OrderID, &sh.UserID, &sh.Status, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, ErrNotFound
	}
	return sh, err
}
