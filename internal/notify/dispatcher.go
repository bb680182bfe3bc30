// Package notify delivers advisory orders to external channels, at most
// once per signal. Delivery state is persisted so a restarted process
// never re-sends an alert its predecessor already delivered.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/beatitudeps-blip/fx-alert/internal/domain"
	"github.com/beatitudeps-blip/fx-alert/internal/storage"
)

// Dispatcher sends advisory orders through a Sender with persistent dedup.
type Dispatcher struct {
	sender Sender
	state  storage.NotifyStateStore
	logger *log.Logger
}

// NewDispatcher creates a dispatcher. logger may be nil.
func NewDispatcher(sender Sender, state storage.NotifyStateStore, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		sender: sender,
		state:  state,
		logger: logger,
	}
}

// DedupKey identifies one advisory: same instrument, direction and
// signal bar always map to the same key, across process restarts.
func DedupKey(order *domain.AdvisoryOrder) string {
	return fmt.Sprintf("%s|%s|%d", order.Instrument, order.Direction, order.SignalTime.Unix())
}

// Dispatch sends the order unless an alert for its key was already
// delivered. Returns true when a send actually happened. The dedup
// marker is written only after a successful send, so a failed delivery
// is retried on the next cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, order *domain.AdvisoryOrder) (bool, error) {
	key := DedupKey(order)

	_, err := d.state.Get(ctx, key)
	if err == nil {
		d.logger.Printf("[notify] %s already delivered, skipping", key)
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("check delivery state: %w", err)
	}

	if err := d.sender.Send(ctx, order); err != nil {
		return false, fmt.Errorf("send advisory: %w", err)
	}

	err = d.state.Put(ctx, key, time.Now().UTC().Format(time.RFC3339))
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		// Delivered but not recorded. Surface the error; the caller may
		// retry and the receiver sees a duplicate rather than a gap.
		return true, fmt.Errorf("record delivery state: %w", err)
	}

	d.logger.Printf("[notify] delivered %s %s signal at %s",
		order.Instrument, order.Direction, order.SignalTime.Format(time.RFC3339))
	return true, nil
}
