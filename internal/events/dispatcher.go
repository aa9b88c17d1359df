// Package events announces committed check changes to caches, live
// subscribers and downstream consumers.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kirinyoku/tabgo/internal/domain"
)

type BoardCache interface {
	InvalidateTableBoard(ctx context.Context) error
}

type ChangeFeed interface {
	PublishCheckChanged(ctx context.Context, ev domain.CheckChanged) error
}

type SettlementPublisher interface {
	PublishCheckSettled(ctx context.Context, ev domain.CheckSettled) error
}

// Dispatcher runs after commit. Failures are logged and never reach the
// caller: the write is already durable.
type Dispatcher struct {
	cache   BoardCache
	feed    ChangeFeed
	broker  SettlementPublisher
	logger  *zap.Logger
	timeout time.Duration
}

// NewDispatcher accepts nil for any collaborator that is not configured.
func NewDispatcher(cache BoardCache, feed ChangeFeed, broker SettlementPublisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		cache:   cache,
		feed:    feed,
		broker:  broker,
		logger:  logger.Named("events"),
		timeout: 3 * time.Second,
	}
}

// TablesChanged drops the cached table board.
func (d *Dispatcher) TablesChanged(ctx context.Context) {
	if d == nil || d.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.cache.InvalidateTableBoard(ctx); err != nil {
		d.logger.Warn("invalidate table board", zap.Error(err))
	}
}

// CheckChanged publishes a change notification for c.
func (d *Dispatcher) CheckChanged(ctx context.Context, c domain.Check) {
	if d == nil || d.feed == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ev := domain.CheckChanged{
		CheckID:  c.ID,
		Revision: c.Revision,
		TableIDs: c.TableIDs,
		TsUnix:   time.Now().Unix(),
	}

	if err := d.feed.PublishCheckChanged(ctx, ev); err != nil {
		d.logger.Warn("publish check change",
			zap.Stringer("check_id", c.ID),
			zap.Int64("revision", c.Revision),
			zap.Error(err))
	}
}

// CheckSettled emits the final state of a closed or voided check.
func (d *Dispatcher) CheckSettled(ctx context.Context, c domain.Check) {
	if d == nil || d.broker == nil || !c.Status.Terminal() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	closedAt := c.UpdatedAt
	if c.ClosedAt != nil {
		closedAt = *c.ClosedAt
	}

	ev := domain.CheckSettled{
		CheckID:  c.ID,
		Status:   c.Status,
		TableIDs: c.TableIDs,
		Totals:   c.Totals,
		Revision: c.Revision,
		OpenedBy: c.OpenedBy,
		ClosedAt: closedAt,
	}

	if err := d.broker.PublishCheckSettled(ctx, ev); err != nil {
		d.logger.Error("publish settled check",
			zap.Stringer("check_id", c.ID),
			zap.String("status", string(c.Status)),
			zap.Error(err))
	}
}
