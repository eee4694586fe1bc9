package rangeorders

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Tracker recomputes order details on every input change and publishes only
// results computed from the newest inputs.
type Tracker struct {
	source   EconomicsSource
	onUpdate func(*OrderDetails)
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	latest     *OrderDetails
	pending    *OrderDetails
	publishing bool
}

// NewTracker creates a tracker over source. onUpdate may be nil. It runs without
// the tracker's lock held, one call at a time, and may call Latest or Update.
func NewTracker(source EconomicsSource, onUpdate func(*OrderDetails), logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		source:   source,
		onUpdate: onUpdate,
		logger:   logger.Named("tracker"),
	}
}

// Update computes the details of order. The bool is false when a later Update
// started before this one finished; its result is then dropped.
func (t *Tracker) Update(ctx context.Context, order OrderState) (*OrderDetails, bool, error) {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	details, err := t.source.OrderEconomics(ctx, order)
	if err != nil {
		return nil, false, err
	}

	t.mu.Lock()
	if gen != t.generation {
		current := t.generation
		t.mu.Unlock()
		t.logger.Debug("Dropping superseded order details", zap.Uint64("generation", gen), zap.Uint64("current", current))
		return details, false, nil
	}
	t.latest = details
	if t.onUpdate == nil {
		t.mu.Unlock()
		return details, true, nil
	}
	t.pending = details
	if t.publishing {
		// the running publisher delivers it
		t.mu.Unlock()
		return details, true, nil
	}
	t.publishing = true
	t.mu.Unlock()

	t.drain()
	return details, true, nil
}

// drain calls onUpdate outside the lock until nothing is pending. Details
// queued during a call replace each other, so only the newest is delivered.
func (t *Tracker) drain() {
	done := false
	defer func() {
		if !done {
			// onUpdate panicked
			t.mu.Lock()
			t.publishing = false
			t.mu.Unlock()
		}
	}()

	t.mu.Lock()
	for t.pending != nil {
		next := t.pending
		t.pending = nil
		t.mu.Unlock()
		t.onUpdate(next)
		t.mu.Lock()
	}
	t.publishing = false
	done = true
	t.mu.Unlock()
}

// Latest returns the last published details, or nil before the first one
func (t *Tracker) Latest() *OrderDetails {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}
