package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS stock (
		product_id TEXT PRIMARY KEY,
		qty        INT NOT NULL CHECK (qty >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id         TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		qty        INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type PGStore struct{ DB *pgxpool.Pool }

// Reserve: lock the stock row (FOR UPDATE) -> check -> decrement -> insert
// reservation. Two concurrent reservations on the same product serialize on
// the row lock, so they can never both observe sufficient stock.
func (s *PGStore) Reserve(ctx context.Context, reservationID, productID string, qty int) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var stock int
	err = tx.QueryRow(ctx, `SELECT qty FROM stock WHERE product_id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrInsufficientStock
	}
	if err != nil {
		return err
	}
	if stock < qty {
		return ErrInsufficientStock // rollback via defer, no side effect
	}

	if _, err := tx.Exec(ctx, `UPDATE stock SET qty = qty - $2, updated_at=now() WHERE product_id=$1`, productID, qty); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO reservations(id, product_id, qty) VALUES ($1, $2, $3)`, reservationID, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Commit deletes the reservation row; stock was already deducted at reserve
// time.
func (s *PGStore) Commit(ctx context.Context, reservationID string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, reservationID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// Release deletes the reservation row and adds its qty back to stock, in
// one transaction.
func (s *PGStore) Release(ctx context.Context, reservationID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var productID string
	var qty int
	err = tx.QueryRow(ctx, `DELETE FROM reservations WHERE id=$1 RETURNING product_id, qty`, reservationID).Scan(&productID, &qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE stock SET qty = qty + $2, updated_at=now() WHERE product_id=$1`, productID, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PGStore) SetStock(ctx context.Context, productID string, qty int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO stock(product_id, qty) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=now()`, productID, qty)
	return err
}

func (s *PGStore) GetStock(ctx context.Context, productID string) (int, error) {
	var qty int
	err := s.DB.QueryRow(ctx, `SELECT qty FROM stock WHERE product_id=$1`, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return qty, err
}
