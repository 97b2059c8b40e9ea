package handlers

import (
	"errors"
	"log/slog"

	"github.com/AIAI/extension/internal/commander"
	"github.com/AIAI/extension/internal/storage"
	"github.com/AIAI/extension/pkg/core"
)

// recordingSink forwards orders to the host and records the delivered ones
type recordingSink struct {
	next  commander.OrderSink
	store storage.Backend
	log   *slog.Logger
}

func (r *recordingSink) Dispatch(side core.Side, orders []core.Order) error {
	err := r.next.Dispatch(side, orders)
	if r.store == nil {
		return err
	}

	delivered := orders
	var partial interface{ SquadIDs() []int }
	if errors.As(err, &partial) {
		failed := make(map[int]bool)
		for _, id := range partial.SquadIDs() {
			failed[id] = true
		}
		delivered = make([]core.Order, 0, len(orders))
		for _, o := range orders {
			if !failed[o.SquadID] {
				delivered = append(delivered, o)
			}
		}
	} else if err != nil {
		return err
	}

	if len(delivered) > 0 {
		if serr := r.store.SaveOrders(side, latestIssue(delivered), delivered); serr != nil {
			r.log.Error("Failed to record dispatched orders", "side", side, "error", serr)
		}
	}
	return err
}

func latestIssue(orders []core.Order) uint64 {
	var tick uint64
	for _, o := range orders {
		if o.IssuedAt > tick {
			tick = o.IssuedAt
		}
	}
	return tick
}
