// Package monitor drives continuous pings against a set of targets using
// the non-blocking engine API. One engine (and one transport) is dedicated
// to each target; the monitor interleaves their sessions in a single
// cooperative loop.
package monitor

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"golang.org/x/time/rate"

	"github.com/teivovo/EthernetICMP/internal/logging"
	"github.com/teivovo/EthernetICMP/internal/ping"
)

// Options configures a Monitor.
type Options struct {
	// Interval is how often each target is pinged.
	Interval time.Duration

	// Retries is the attempt count per ping.
	Retries int

	// RateLimit caps total ping starts per second across all targets.
	// 0 disables the cap.
	RateLimit float64

	// PollInterval paces the cooperative loop.
	PollInterval time.Duration

	// Logger is the structured logger; nil discards output.
	Logger *slog.Logger

	// Clock overrides the time source for tests.
	Clock ping.Clock
}

type entry struct {
	name   string
	addr   netip.Addr
	engine *ping.Engine

	pending bool
	nextDue time.Time
	last    ping.Status
	seen    bool
}

// Monitor interleaves async ping sessions across targets.
type Monitor struct {
	entries      []*entry
	interval     time.Duration
	retries      int
	pollInterval time.Duration
	limiter      *rate.Limiter
	logger       *slog.Logger
	clock        ping.Clock
}

// New creates a Monitor. Targets are attached with Add before Run.
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = ping.DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = ping.SystemClock()
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Monitor{
		interval:     opts.Interval,
		retries:      opts.Retries,
		pollInterval: opts.PollInterval,
		limiter:      limiter,
		logger:       opts.Logger.With(slog.String(logging.KeyComponent, "monitor")),
		clock:        opts.Clock,
	}
}

// Add registers a target with its dedicated engine. Engines must use
// distinct identifiers when their transports share a link.
func (m *Monitor) Add(name string, addr netip.Addr, engine *ping.Engine) {
	m.entries = append(m.entries, &entry{
		name:   name,
		addr:   addr,
		engine: engine,
	})
}

// Targets returns the number of registered targets.
func (m *Monitor) Targets() int {
	return len(m.entries)
}

// Run pings every target on its interval until ctx is cancelled. The loop
// is single-threaded: each iteration advances every in-flight session by
// one non-blocking step and starts sessions that have come due.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		logging.KeyCount, len(m.entries),
		"interval", m.interval.String())

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return ctx.Err()
		default:
		}

		m.Step()
		m.clock.Sleep(m.pollInterval)
	}
}

// Step runs one iteration of the cooperative loop. Exposed so tests can
// drive the monitor without real time passing.
func (m *Monitor) Step() {
	now := m.clock.Now()

	for _, e := range m.entries {
		if e.pending {
			rep := e.engine.AsyncComplete()
			if rep.Status.Terminal() {
				e.pending = false
				e.nextDue = now.Add(m.interval)
				m.report(e, rep, now)
			}
			continue
		}

		if now.Before(e.nextDue) {
			continue
		}
		if m.limiter != nil && !m.limiter.Allow() {
			continue
		}

		rep := e.engine.AsyncStart(e.addr, m.retries)
		if rep.Status == ping.StatusSendTimeout {
			e.nextDue = now.Add(m.interval)
			m.report(e, rep, now)
			continue
		}
		e.pending = true
	}
}

// report logs the outcome, promoting status transitions to Info so target
// up/down changes stand out at the default level.
func (m *Monitor) report(e *entry, rep ping.EchoReply, now time.Time) {
	attrs := []any{
		logging.KeyTarget, e.name,
		logging.KeyAddress, e.addr.String(),
		logging.KeyStatus, rep.Status.String(),
		logging.KeySeq, rep.Seq,
	}
	if rep.Status == ping.StatusSuccess {
		attrs = append(attrs, logging.KeyRTT, rep.RTT(now), logging.KeyTTL, rep.TTL)
	}

	if !e.seen || e.last != rep.Status {
		m.logger.Info("target status changed", attrs...)
	} else {
		m.logger.Debug("ping completed", attrs...)
	}

	e.last = rep.Status
	e.seen = true
}
