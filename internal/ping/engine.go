package ping

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/teivovo/EthernetICMP/internal/logging"
	"github.com/teivovo/EthernetICMP/internal/metrics"
)

const (
	// DefaultAttemptTimeout is the reply window for a single attempt.
	DefaultAttemptTimeout = time.Second

	// DefaultPollInterval paces the poll loop of the blocking Ping call.
	DefaultPollInterval = 10 * time.Millisecond
)

// Engine is the public ping surface. It holds the fixed ICMP identifier,
// the sequence counter, and at most one active session at a time.
//
// Engine is single-threaded by design: Ping blocks the caller until a
// terminal result, while AsyncStart/AsyncComplete never block and rely on
// the caller's cooperative loop. An Engine must not be shared between
// goroutines.
type Engine struct {
	transport Transport
	clock     Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics

	id             uint16
	seq            uint16 // sequence in effect before the next session
	attemptTimeout time.Duration
	pollInterval   time.Duration
	payloadLen     int

	sess      *session
	lastReply EchoReply
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects an alternative time source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAttemptTimeout sets the per-attempt reply window.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.attemptTimeout = d
		}
	}
}

// WithPollInterval sets the sleep between poll steps of the blocking Ping.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithPayloadLen sets the echo request payload size in bytes. Values below
// MinPayloadLen are raised to it.
func WithPayloadLen(n int) Option {
	return func(e *Engine) {
		if n > e.payloadLen {
			e.payloadLen = n
		}
	}
}

// NewEngine creates a ping engine over the given transport. The identifier
// tags all echo traffic from this engine and is immutable for its lifetime;
// two engines sharing a link must use distinct identifiers.
func NewEngine(t Transport, id uint16, opts ...Option) *Engine {
	e := &Engine{
		transport:      t,
		clock:          systemClock{},
		logger:         logging.NopLogger(),
		id:             id,
		attemptTimeout: DefaultAttemptTimeout,
		pollInterval:   DefaultPollInterval,
		payloadLen:     MinPayloadLen,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String(logging.KeyComponent, "ping"))
	e.lastReply = EchoReply{Status: StatusPending}
	return e
}

// Identifier returns the engine's fixed ICMP identifier.
func (e *Engine) Identifier() uint16 {
	return e.id
}

// Ping sends echo requests to target until a reply arrives or nRetries
// attempts have timed out, blocking the caller. The returned reply always
// carries a terminal status; the error is non-nil only when ctx is
// cancelled first, in which case the pending session is abandoned.
func (e *Engine) Ping(ctx context.Context, target netip.Addr, nRetries int) (EchoReply, error) {
	rep := e.AsyncStart(target, nRetries)
	if rep.Status.Terminal() && rep.Status != StatusSuccess {
		return rep, nil
	}

	// Equivalent to calling AsyncComplete in a tight loop until terminal;
	// the sleep only paces transport polling.
	for {
		rep = e.AsyncComplete()
		if rep.Status.Terminal() {
			return rep, nil
		}

		select {
		case <-ctx.Done():
			e.abandon()
			return rep, ctx.Err()
		default:
		}

		e.clock.Sleep(e.pollInterval)
	}
}

// AsyncStart begins a new session and performs the first transmit,
// returning immediately. The status is StatusSuccess when the transmit was
// accepted and StatusSendTimeout when it was not; the session then advances
// only through AsyncComplete calls.
//
// Starting a new session while one is pending replaces it: any late reply
// for the abandoned sequence is rejected as a sequence mismatch.
func (e *Engine) AsyncStart(target netip.Addr, nRetries int) EchoReply {
	if nRetries < 1 {
		nRetries = 1
	}
	e.abandon()

	s := &session{
		transport:   e.transport,
		clock:       e.clock,
		logger:      e.logger,
		id:          e.id,
		seq:         e.seq,
		target:      target,
		maxAttempts: nRetries,
		timeout:     e.attemptTimeout,
		payloadLen:  e.payloadLen,
	}
	e.sess = s
	if e.metrics != nil {
		e.metrics.SessionsActive.Inc()
		e.metrics.PingsTotal.Inc()
	}

	s.start()
	if s.done() {
		return e.complete(s)
	}
	return EchoReply{Status: StatusSuccess, Seq: s.seq, SentAt: s.sentAt}
}

// AsyncComplete advances the current session by one non-blocking poll step.
// It returns a reply with StatusPending while the session is still in
// flight and the terminal reply once it is done. With no session active it
// returns the previous terminal reply.
func (e *Engine) AsyncComplete() EchoReply {
	s := e.sess
	if s == nil {
		return e.lastReply
	}

	s.step()
	if s.done() {
		return e.complete(s)
	}
	return s.result()
}

// complete consumes a finished session: the sequence counter is carried
// forward, the outcome is logged and recorded, and the engine returns to
// idle so the session slot can be reused.
func (e *Engine) complete(s *session) EchoReply {
	rep := s.result()
	e.seq = s.seq
	e.sess = nil
	e.lastReply = rep

	if e.metrics != nil {
		e.metrics.SessionsActive.Dec()
		e.metrics.RecordSession(rep.Status.String(), s.attempts, s.foreign)
	}

	switch rep.Status {
	case StatusSuccess:
		rtt := rep.RTT(e.clock.Now())
		if e.metrics != nil {
			e.metrics.RTTSeconds.Observe(rtt.Seconds())
		}
		e.logger.Debug("ping succeeded",
			logging.KeyTarget, s.target.String(),
			logging.KeySeq, rep.Seq,
			logging.KeyRTT, rtt,
			logging.KeyAttempt, s.attempts)
	default:
		e.logger.Debug("ping failed",
			logging.KeyTarget, s.target.String(),
			logging.KeySeq, rep.Seq,
			logging.KeyStatus, rep.Status.String(),
			logging.KeyAttempt, s.attempts)
	}

	return rep
}

// abandon discards a pending session without a terminal result, keeping
// the sequence counter so the abandoned attempt can never match later.
func (e *Engine) abandon() {
	s := e.sess
	if s == nil {
		return
	}
	e.seq = s.seq
	e.sess = nil
	if e.metrics != nil && !s.done() {
		e.metrics.SessionsActive.Dec()
	}
}
