package ping

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/teivovo/EthernetICMP/internal/logging"
)

// State is the phase of a ping session's state machine. A session owns its
// state exclusively; it only changes inside start and step.
type State int

const (
	// StateIdle means no attempt has been made yet.
	StateIdle State = iota
	// StateAttemptPending means an echo request is being handed to the
	// transport.
	StateAttemptPending
	// StateAwaitingReply means an attempt is in flight and its deadline
	// has not elapsed.
	StateAwaitingReply
	// StateDone means a terminal status has been reached.
	StateDone
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAttemptPending:
		return "ATTEMPT_PENDING"
	case StateAwaitingReply:
		return "AWAITING_REPLY"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// session is the retry/timeout state machine for a single logical ping:
// one identifier, one target address, a bounded number of attempts. At most
// one echo request is in flight per session at any time.
type session struct {
	transport Transport
	clock     Clock
	logger    *slog.Logger

	id          uint16
	seq         uint16 // sequence of the most recently transmitted attempt
	target      netip.Addr
	maxAttempts int
	timeout     time.Duration
	payloadLen  int

	state    State
	attempts int       // attempts transmitted so far
	foreign  int       // foreign/stale datagrams discarded
	sentAt   time.Time // send time of the current attempt
	deadline time.Time // current attempt deadline
	reply    EchoReply
}

// start transmits the first attempt. The caller seeds seq with the engine's
// counter value in effect before the session; attempt k transmits seq+k.
func (s *session) start() {
	s.transmit()
}

// transmit sends the next attempt: advances the sequence, encodes the
// request, and hands it to the transport. A transport refusal is terminal.
func (s *session) transmit() {
	s.state = StateAttemptPending
	s.seq++
	s.attempts++
	s.sentAt = s.clock.Now()

	pkt := EncodeEchoRequest(s.id, s.seq, s.sentAt, s.payloadLen)
	if err := s.transport.Send(s.target, pkt); err != nil {
		s.logger.Debug("echo request transmit failed",
			logging.KeyTarget, s.target.String(),
			logging.KeySeq, s.seq,
			logging.KeyError, err)
		s.finish(StatusSendTimeout, EchoReply{})
		return
	}

	s.state = StateAwaitingReply
	s.deadline = s.sentAt.Add(s.timeout)

	s.logger.Debug("echo request sent",
		logging.KeyTarget, s.target.String(),
		logging.KeySeq, s.seq,
		logging.KeyAttempt, s.attempts)
}

// step advances the session by one non-blocking poll: check the transport
// for an arrived datagram, otherwise check the attempt deadline. It never
// blocks and does nothing once the session is done.
func (s *session) step() {
	if s.state != StateAwaitingReply {
		return
	}

	dg, err := s.transport.Recv()
	if err != nil {
		// Treated like an empty poll; the deadline still applies.
		s.logger.Debug("transport receive error",
			logging.KeyTarget, s.target.String(),
			logging.KeyError, err)
		dg = nil
	}

	if dg != nil {
		sentAt, derr := DecodeEchoReply(dg.Data, s.id, s.seq)
		switch {
		case derr == nil:
			s.finish(StatusSuccess, EchoReply{
				Responder: dg.From,
				TTL:       dg.TTL,
				SentAt:    sentAt,
			})
			return
		case IsForeign(derr):
			// Other ICMP traffic may share the link. Discard, but still
			// check the deadline below: a steady stream of foreign
			// datagrams must not keep a timed-out attempt alive.
			s.foreign++
			s.logger.Debug("foreign datagram discarded",
				logging.KeyTarget, s.target.String(),
				logging.KeyError, derr)
		default:
			s.logger.Debug("malformed reply",
				logging.KeyTarget, s.target.String(),
				logging.KeySeq, s.seq,
				logging.KeyError, derr)
			s.retryOr(StatusBadResponse)
			return
		}
	}

	if !s.clock.Now().Before(s.deadline) {
		s.retryOr(StatusNoResponse)
	}
}

// retryOr transmits the next attempt if any remain, otherwise finishes
// with the given status. Retries are back-to-back; each attempt gets its
// own full timeout window.
func (s *session) retryOr(status Status) {
	if s.attempts < s.maxAttempts {
		s.transmit()
		return
	}
	s.finish(status, EchoReply{})
}

// finish records the terminal reply. The reply always carries the sequence
// of the last attempt; SentAt is the echoed timestamp on success and the
// local send time otherwise.
func (s *session) finish(status Status, r EchoReply) {
	s.state = StateDone
	r.Status = status
	r.Seq = s.seq
	if r.SentAt.IsZero() {
		r.SentAt = s.sentAt
	}
	s.reply = r
}

func (s *session) done() bool {
	return s.state == StateDone
}

// result returns the terminal reply, or a pending reply for the current
// attempt while the session is still in flight.
func (s *session) result() EchoReply {
	if s.state != StateDone {
		return EchoReply{Status: StatusPending, Seq: s.seq, SentAt: s.sentAt}
	}
	return s.reply
}
