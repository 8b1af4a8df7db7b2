package tracking

import (
	"sync"
	"time"
)

// Cancel stops a timer or frame request. Calling it more than once is safe.
type Cancel func()

// Scheduler provides the timers used for polling and reconnects.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Cancel
	Every(d time.Duration, fn func()) Cancel
}

// FrameSource delivers animation frames, one callback per request.
type FrameSource interface {
	RequestFrame(fn func(now time.Time)) Cancel
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// Every runs fn on a ticker. A slow fn delays the next tick instead of
// queueing ticks behind it.
func (realScheduler) Every(d time.Duration, fn func()) Cancel {
	ticker := time.NewTicker(d)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(stop)
		})
	}
}

// frameInterval approximates a 60Hz display refresh.
const frameInterval = 16 * time.Millisecond

type tickerFrames struct{}

func (tickerFrames) RequestFrame(fn func(now time.Time)) Cancel {
	t := time.AfterFunc(frameInterval, func() { fn(time.Now()) })
	return func() { t.Stop() }
}
