package timer

import (
	"sync"
	"time"
)

// tickUnit is the wheel's bucket-math resolution: one Tick call advances
// the clock by this much, matching the original's centisecond buckets.
const tickUnit = 10 * time.Millisecond

// pollPeriod is how often the driver wakes up to check whether a tickUnit
// has elapsed, matching the original's timer thread (usleep(2500) between
// timer_update calls). Polling four times faster than the tick unit keeps
// worst-case recognition latency for a completed tick at pollPeriod rather
// than tickUnit.
const pollPeriod = 2500 * time.Microsecond

// Driver reads a monotonic clock at pollPeriod resolution and calls Tick
// on a Wheel once per elapsed tickUnit. A backwards jump in the monotonic
// clock (seen on some platforms after suspend) is absorbed without firing
// extra ticks; forward jumps fire one tick per elapsed tickUnit, same as
// the original's catch-up loop.
type Driver struct {
	wheel *Wheel
	now   func() time.Time
	stop  chan struct{}
	wg    sync.WaitGroup

	pollPeriod time.Duration
	tickUnit   time.Duration
}

// NewDriver creates a driver for wheel. now defaults to time.Now.
func NewDriver(wheel *Wheel, now func() time.Time) *Driver {
	if now == nil {
		now = time.Now
	}
	return &Driver{
		wheel:      wheel,
		now:        now,
		stop:       make(chan struct{}),
		pollPeriod: pollPeriod,
		tickUnit:   tickUnit,
	}
}

// Run drives the wheel until Stop is called. Call it from its own
// goroutine.
func (d *Driver) Run() {
	d.wg.Add(1)
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollPeriod)
	defer ticker.Stop()

	last := d.now()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			now := d.now()
			if now.Before(last) {
				last = now
				continue
			}
			elapsed := now.Sub(last)
			ticks := int(elapsed / d.tickUnit)
			for i := 0; i < ticks; i++ {
				d.wheel.Tick()
			}
			last = last.Add(time.Duration(ticks) * d.tickUnit)
		}
	}
}

// Stop halts the driver and waits for Run to return.
func (d *Driver) Stop() {
	close(d.stop)
	d.wg.Wait()
}
