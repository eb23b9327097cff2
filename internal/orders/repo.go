package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		sku         TEXT UNIQUE NOT NULL,
		name        TEXT NOT NULL,
		price_cents INT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          TEXT PRIMARY KEY,
		external_id TEXT UNIQUE,
		user_id     TEXT NOT NULL,
		product_id  TEXT NOT NULL,
		qty         INT NOT NULL,
		status      TEXT NOT NULL,
		total_cents INT NOT NULL,
		tracking_id TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, COALESCE(external_id, ''), user_id, product_id, qty, status, total_cents, tracking_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.ProductID, &o.Qty, &o.Status, &o.TotalCents, &o.TrackingID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// CreateOrder inserts an unpaid order priced from the products table.
// Idempotent via external_id: a repeated external_id returns the existing
// order instead of creating a second one.
func (r *Repo) CreateOrder(ctx context.Context, externalID, userID, productID string, qty int) (Order, bool, error) {
	if externalID != "" {
		o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE external_id=$1`, externalID))
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Order{}, false, err
		}
	}

	var price int
	err := r.DB.QueryRow(ctx, `SELECT price_cents FROM products WHERE id=$1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, false, fmt.Errorf("product not found: %s", productID)
	}
	if err != nil {
		return Order{}, false, err
	}

	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, user_id, product_id, qty, status, total_cents)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		RETURNING `+orderCols, id, externalID, userID, productID, qty, StatusCreatedUnpaid, price*qty)
	o, err := scanOrder(row)
	return o, false, err
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	return scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (r *Repo) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders ORDER BY created_at DESC`
	args := []any{}
	if userID != "" {
		q = `SELECT ` + orderCols + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`
		args = append(args, userID)
	}
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MarkPaying is the saga's admission gate: a conditional update from a
// payable status into the in-flight 'paying' status. Only one of N
// concurrent pay attempts can win the update; the rest see zero rows.
// A 'paying' row older than any possible saga run belongs to a run that
// died mid-flight (crash, or the terminal status write kept failing), so
// it is re-admitted instead of staying stuck forever.
func (r *Repo) MarkPaying(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND (status IN ($3, $4)
			OR (status=$2 AND updated_at < now() - interval '5 minutes'))
		RETURNING `+orderCols, id, StatusPaying, StatusCreatedUnpaid, StatusFailed)
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		// distinguish a missing order from one in a non-payable status
		if _, gerr := r.GetOrder(ctx, id); gerr != nil {
			return Order{}, gerr
		}
		return Order{}, ErrNotPayable
	}
	return o, err
}

// PushStatus applies a shipment-stage write-back, refusing transitions the
// status machine does not allow (a received order cannot go back to
// processing). The conditional update pins the observed status so a
// concurrent writer cannot slip a transition in between check and write.
func (r *Repo) PushStatus(ctx context.Context, id string, st Status) error {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, st) {
		return ErrInvalidTransition
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3`, id, st, o.Status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *Repo) SetStatus(ctx context.Context, id string, st Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, st)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetPaid(ctx context.Context, id, trackingID string) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, tracking_id=$3, updated_at=now()
		WHERE id=$1
		RETURNING `+orderCols, id, StatusCreatedPaid, trackingID)
	return scanOrder(row)
}

// Cancel transitions created_unpaid -> failed. Never a delete.
func (r *Repo) Cancel(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+orderCols, id, StatusFailed, StatusCreatedUnpaid)
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		if _, gerr := r.GetOrder(ctx, id); gerr != nil {
			return Order{}, gerr
		}
		return Order{}, ErrNotCancelable
	}
	return o, err
}

// Received finalizes an order the user picked up. Valid only from
// delivered_to_pickup.
func (r *Repo) Received(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+orderCols, id, StatusReceived, StatusDeliveredToPickup)
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		if _, gerr := r.GetOrder(ctx, id); gerr != nil {
			return Order{}, gerr
		}
		return Order{}, ErrNotDelivered
	}
	return o, err
}

func (r *Repo) ProductPriceCents(ctx context.Context, productID string) (int, error) {
	var price int
	err := r.DB.QueryRow(ctx, `SELECT price_cents FROM products WHERE id=$1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return price, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, sku, name, price_cents, created_at, updated_at FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
