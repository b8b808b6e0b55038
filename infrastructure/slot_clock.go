package infrastructure

import (
	"context"
	"time"
)

// SlotClock derives logical ticks from wall-clock time: tick n covers
// [genesis + n*slot, genesis + (n+1)*slot).
type SlotClock struct {
	genesis time.Time
	slot    time.Duration
	now     func() time.Time
}

// NewSlotClock creates a clock counting slots of the given duration since genesis
func NewSlotClock(genesis time.Time, slot time.Duration) *SlotClock {
	return &SlotClock{
		genesis: genesis,
		slot:    slot,
		now:     time.Now,
	}
}

// CurrentTick returns the current slot number, zero before genesis
func (c *SlotClock) CurrentTick(ctx context.Context) (int64, error) {
	return c.TickAt(c.now()), nil
}

// TickAt returns the slot containing t
func (c *SlotClock) TickAt(t time.Time) int64 {
	elapsed := t.Sub(c.genesis)
	if elapsed <= 0 || c.slot <= 0 {
		return 0
	}
	return int64(elapsed / c.slot)
}

// StartOf returns the wall-clock time at which tick begins
func (c *SlotClock) StartOf(tick int64) time.Time {
	return c.genesis.Add(time.Duration(tick) * c.slot)
}
