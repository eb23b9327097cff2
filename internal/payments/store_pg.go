package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id           TEXT PRIMARY KEY,
		order_id     TEXT NOT NULL DEFAULT '',
		amount_cents INT NOT NULL,
		currency     TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type PGStore struct{ DB *pgxpool.Pool }

const paymentCols = `id, order_id, amount_cents, currency, status, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.AmountCents, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrNotFound
	}
	return p, err
}

func (s *PGStore) Insert(ctx context.Context, p Payment) (Payment, error) {
	row := s.DB.QueryRow(ctx, `
		INSERT INTO payments(id, order_id, amount_cents, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET updated_at=now()
		RETURNING `+paymentCols, p.ID, p.OrderID, p.AmountCents, p.Currency, p.Status)
	return scanPayment(row)
}

func (s *PGStore) Refund(ctx context.Context, paymentID string) (Payment, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE payments SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+paymentCols, paymentID, StatusRefunded, StatusCaptured)
	p, err := scanPayment(row)
	if errors.Is(err, ErrNotFound) {
		if _, gerr := s.GetByID(ctx, paymentID); gerr != nil {
			return Payment{}, gerr
		}
		return Payment{}, ErrConflict
	}
	return p, err
}

func (s *PGStore) GetByID(ctx context.Context, paymentID string) (Payment, error) {
	return scanPayment(s.DB.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, paymentID))
}

func (s *PGStore) GetByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
