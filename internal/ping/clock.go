package ping

import "time"

// Clock abstracts the monotonic time source so timeout behavior is
// deterministic under test. The system clock is used unless an
// alternative is injected with WithClock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock returns the real time source.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }
