package session

import (
	"sync"
	"time"
)

// ClockPhase is the session clock's state. The only transitions are
// not started -> running and running -> expired.
type ClockPhase int

const (
	ClockNotStarted ClockPhase = iota
	ClockRunning
	ClockExpired
)

// RemainingSeconds derives the time left on an attempt from the server-issued
// open timestamp. Pure function of its inputs, clamped at zero, non-increasing
// in now. Never computed from a client-local load time.
func RemainingSeconds(openedAt time.Time, baseMinutes, extensionMinutes int, now time.Time) int64 {
	total := int64(baseMinutes+extensionMinutes) * 60
	elapsed := int64(now.Sub(openedAt) / time.Second)
	remaining := total - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Clock counts down an attempt from its server-recorded open timestamp.
// Each tick recomputes remaining time from absolute timestamps, never by
// decrementing a counter, so drift cannot accumulate. The expiry action
// fires exactly once through a one-shot latch.
type Clock struct {
	openedAt    time.Time
	baseMinutes int

	mu               sync.Mutex
	extensionMinutes int
	phase            ClockPhase

	now      func() time.Time
	onExpire func()
	latch    sync.Once
	stop     chan struct{}
	stopOnce sync.Once
}

// NewClock creates a clock for an attempt. now is injectable for tests;
// pass nil for time.Now.
func NewClock(openedAt time.Time, baseMinutes, extensionMinutes int, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{
		openedAt:         openedAt,
		baseMinutes:      baseMinutes,
		extensionMinutes: extensionMinutes,
		now:              now,
		stop:             make(chan struct{}),
	}
}

// Remaining returns the seconds left, clamped at zero.
func (c *Clock) Remaining() int64 {
	c.mu.Lock()
	ext := c.extensionMinutes
	c.mu.Unlock()
	return RemainingSeconds(c.openedAt, c.baseMinutes, ext, c.now())
}

func (c *Clock) Phase() ClockPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Extend adds instructor-granted minutes. Extending an already expired clock
// has no effect on the latch; the expiry has happened.
func (c *Clock) Extend(minutes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extensionMinutes += minutes
}

// Start begins ticking once per second and invokes onExpire through the
// one-shot latch when remaining time reaches zero. Must not be called for
// an already submitted attempt.
func (c *Clock) Start(onExpire func()) {
	c.mu.Lock()
	if c.phase != ClockNotStarted {
		c.mu.Unlock()
		return
	}
	c.phase = ClockRunning
	c.onExpire = onExpire
	c.mu.Unlock()

	go c.run()
}

func (c *Clock) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if c.ExpireIfDue() {
				return
			}
		}
	}
}

// ExpireIfDue checks the deadline and fires the expiry action at most once.
// Returns true once the clock is expired. Safe to call repeatedly; the tick
// frequency only affects how promptly expiry is noticed, not whether the
// action fires once.
func (c *Clock) ExpireIfDue() bool {
	if c.Remaining() > 0 {
		return false
	}
	c.latch.Do(func() {
		c.mu.Lock()
		c.phase = ClockExpired
		fire := c.onExpire
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
	})
	return true
}

// Stop halts the ticker goroutine. Idempotent.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
