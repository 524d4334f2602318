package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestClockStart(t *testing.T) {
	tests := []struct {
		name    string
		budget  int
		wantErr error
	}{
		{"positive budget", 60, nil},
		{"zero budget", 0, ErrInvalidBudget},
		{"negative budget", -5, ErrInvalidBudget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock(nil)
			err := c.Start(tt.budget)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && c.State() != ClockRunning {
				t.Fatalf("state = %s, want RUNNING", c.State())
			}
			if tt.wantErr != nil && c.State() != ClockIdle {
				t.Fatalf("state = %s, want IDLE", c.State())
			}
		})
	}
}

func TestClockStartTwice(t *testing.T) {
	c := NewClock(nil)
	if err := c.Start(10); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Start(20); !errors.Is(err, ErrClockStarted) {
		t.Fatalf("second Start err = %v, want ErrClockStarted", err)
	}
	if got := c.Total(); got != 10 {
		t.Fatalf("total = %d, want 10", got)
	}
}

func TestClockIdleIgnoresTick(t *testing.T) {
	c := NewClock(func() { t.Fatal("idle clock expired") })
	if c.Tick() {
		t.Fatal("idle Tick reported expiry")
	}
	if c.Remaining() != 0 || c.State() != ClockIdle {
		t.Fatalf("idle clock changed: state=%s remaining=%d", c.State(), c.Remaining())
	}
}

func TestClockExpiresExactlyOnce(t *testing.T) {
	var fired int
	c := NewClock(func() { fired++ })
	if err := c.Start(3); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if c.Tick() || c.Tick() {
		t.Fatal("expired early")
	}
	if got := c.Remaining(); got != 1 {
		t.Fatalf("remaining = %d, want 1", got)
	}
	if !c.Tick() {
		t.Fatal("third Tick did not report expiry")
	}
	for i := 0; i < 10; i++ {
		if c.Tick() {
			t.Fatal("expired clock re-raised expiry")
		}
	}

	if fired != 1 {
		t.Fatalf("onExpire fired %d times, want 1", fired)
	}
	if c.State() != ClockExpired || c.Remaining() != 0 || c.Elapsed() != 3 {
		t.Fatalf("state=%s remaining=%d elapsed=%d", c.State(), c.Remaining(), c.Elapsed())
	}
}

func TestClockStopFreezesRemaining(t *testing.T) {
	c := NewClock(func() { t.Fatal("stopped clock expired") })
	if err := c.Start(5); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Tick()
	c.Tick()
	c.Stop()
	for i := 0; i < 10; i++ {
		c.Tick()
	}
	if c.State() != ClockStopped || c.Remaining() != 3 || c.Elapsed() != 2 {
		t.Fatalf("state=%s remaining=%d elapsed=%d", c.State(), c.Remaining(), c.Elapsed())
	}
}

func TestClockStopAfterExpiryKeepsExpired(t *testing.T) {
	c := NewClock(nil)
	_ = c.Start(1)
	c.Tick()
	c.Stop()
	if c.State() != ClockExpired {
		t.Fatalf("state = %s, want EXPIRED", c.State())
	}
}

func TestClockConcurrentTicks(t *testing.T) {
	var fired atomic.Int32
	c := NewClock(func() { fired.Add(1) })
	_ = c.Start(100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Tick()
			}
		}()
	}
	wg.Wait()

	if got := fired.Load(); got != 1 {
		t.Fatalf("onExpire fired %d times, want 1", got)
	}
	if c.Remaining() != 0 {
		t.Fatalf("remaining = %d, want 0", c.Remaining())
	}
}
