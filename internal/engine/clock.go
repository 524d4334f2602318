package engine

import "sync"

// ClockState enumerates the countdown states.
type ClockState string

const (
	ClockIdle    ClockState = "IDLE"
	ClockRunning ClockState = "RUNNING"
	ClockExpired ClockState = "EXPIRED"
	ClockStopped ClockState = "STOPPED"
)

// Clock counts down a budget of whole seconds. Tick is expected to be called once per
// interval by a scheduler (see Drive); the clock itself never reads wall time.
type Clock struct {
	mu        sync.Mutex
	state     ClockState
	total     int
	remaining int
	onExpire  func()
}

// NewClock returns an idle clock. onExpire, if non-nil, is called exactly once when the
// remaining time reaches zero, without any clock lock held.
func NewClock(onExpire func()) *Clock {
	return &Clock{state: ClockIdle, onExpire: onExpire}
}

// Start sets the budget and begins running.
func (c *Clock) Start(budgetSeconds int) error {
	if budgetSeconds <= 0 {
		return ErrInvalidBudget
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != ClockIdle {
		return ErrClockStarted
	}
	c.total = budgetSeconds
	c.remaining = budgetSeconds
	c.state = ClockRunning
	return nil
}

// Tick decrements the remaining time by one second. It reports whether this call
// expired the clock. Ticks on a clock that is not running are ignored.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	if c.state != ClockRunning {
		c.mu.Unlock()
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		c.mu.Unlock()
		return false
	}
	c.remaining = 0
	c.state = ClockExpired
	onExpire := c.onExpire
	c.mu.Unlock()

	if onExpire != nil {
		onExpire()
	}
	return true
}

// Stop freezes a running clock. The remaining time is kept for elapsed-time reporting.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ClockRunning {
		c.state = ClockStopped
	}
}

// State returns the current clock state.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the seconds left.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the budget given to Start.
func (c *Clock) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Elapsed returns total minus remaining.
func (c *Clock) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total - c.remaining
}
