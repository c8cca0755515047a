package clock

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so TTLs, pauses and periodic ticks can be driven
// deterministically in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until Stop is called.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// System is the production clock backed by package time.
type System struct{}

var _ Clock = System{}

func (System) Now() time.Time {
	return time.Now()
}

func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (System) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// Periodic runs fn on every tick of a ticker until stopped.
// Stop is idempotent and waits for the loop goroutine to exit, so fn is
// never called after Stop returns.
type Periodic struct {
	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// StartPeriodic begins ticking every interval and calls fn with the tick time.
func StartPeriodic(c Clock, interval time.Duration, fn func(time.Time)) *Periodic {
	p := &Periodic{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	ticker := c.NewTicker(interval)
	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C():
				select {
				case <-p.stop:
					return
				default:
				}
				fn(t)
			case <-p.stop:
				return
			}
		}
	}()
	return p
}

// Stop halts the loop. Safe to call on a nil receiver and more than once;
// must not be called from inside fn.
func (p *Periodic) Stop() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.stop) })
	<-p.done
}
