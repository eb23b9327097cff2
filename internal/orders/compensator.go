package orders

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-saga.git/internal/outbox"
)

type pendingQueue interface {
	FetchPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkSent(ctx context.Context, id int64) error
	Bump(ctx context.Context, id int64) error
}

// Compensator drains the compensation outbox: release/commit calls the saga
// could not deliver are retried here until the inventory service accepts
// them. This bounds how long a failed compensation can leak stock.
type Compensator struct {
	Queue     pendingQueue
	Inventory InventoryClient
	Log       *zap.Logger
	Interval  time.Duration
	Batch     int
}

func (c *Compensator) Run(ctx context.Context) {
	interval := c.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.drain(ctx)
		}
	}
}

func (c *Compensator) drain(ctx context.Context) {
	batch := c.Batch
	if batch <= 0 {
		batch = 50
	}
	recs, err := c.Queue.FetchPending(ctx, batch)
	if err != nil {
		c.Log.Warn("fetch pending compensations", zap.Error(err))
		return
	}
	for _, rec := range recs {
		c.apply(ctx, rec)
	}
}

func (c *Compensator) apply(ctx context.Context, rec outbox.Record) {
	var err error
	switch rec.Action {
	case "release":
		err = c.Inventory.Release(ctx, rec.ReservationID)
	case "commit":
		err = c.Inventory.Commit(ctx, rec.ReservationID)
	default:
		c.Log.Error("unknown compensation action", zap.String("action", rec.Action), zap.Int64("id", rec.ID))
		_ = c.Queue.MarkSent(ctx, rec.ID)
		return
	}

	// NotFound means the reservation is already gone: someone else (or a
	// previous attempt) finished the job.
	if err == nil || errors.Is(err, ErrNotFound) {
		if merr := c.Queue.MarkSent(ctx, rec.ID); merr != nil {
			c.Log.Warn("mark compensation sent", zap.Int64("id", rec.ID), zap.Error(merr))
		}
		c.Log.Info("compensation applied",
			zap.String("action", rec.Action),
			zap.String("reservation_id", rec.ReservationID),
			zap.String("order_id", rec.OrderID))
		return
	}

	if berr := c.Queue.Bump(ctx, rec.ID); berr != nil {
		c.Log.Warn("bump compensation attempts", zap.Int64("id", rec.ID), zap.Error(berr))
	}
	c.Log.Warn("compensation retry failed",
		zap.String("action", rec.Action),
		zap.String("reservation_id", rec.ReservationID),
		zap.Int("attempts", rec.Attempts+1),
		zap.Error(err))
}
