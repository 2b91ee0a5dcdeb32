package ping

import (
	"net/netip"
	"time"
)

// Status is the outcome of a ping session. Exactly one terminal status is
// set per session; StatusPending is the non-terminal marker returned by
// AsyncComplete while a reply is still outstanding.
type Status int

const (
	// StatusPending means the session is still awaiting a reply.
	StatusPending Status = iota
	// StatusSuccess means a valid matching echo reply arrived.
	StatusSuccess
	// StatusSendTimeout means the transport could not transmit the request.
	StatusSendTimeout
	// StatusNoResponse means every allowed attempt timed out.
	StatusNoResponse
	// StatusBadResponse means the final attempt received a reply that
	// failed validation (checksum, type, or length).
	StatusBadResponse
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSuccess:
		return "SUCCESS"
	case StatusSendTimeout:
		return "SEND_TIMEOUT"
	case StatusNoResponse:
		return "NO_RESPONSE"
	case StatusBadResponse:
		return "BAD_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status ends a session.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// EchoReply is the structured result of a ping session.
type EchoReply struct {
	// Status is the session outcome.
	Status Status

	// Responder is the source address of the reply datagram. Only set on
	// success.
	Responder netip.Addr

	// TTL is the remaining hop budget reported by the reply's IP header.
	// Only set on success.
	TTL int

	// Seq is the sequence number of the attempt this reply resolves.
	Seq uint16

	// SentAt is the send timestamp of that attempt, echoed back by the
	// responder on success.
	SentAt time.Time
}

// RTT returns the round-trip time of the reply relative to now.
func (r EchoReply) RTT(now time.Time) time.Duration {
	if r.SentAt.IsZero() {
		return 0
	}
	return now.Sub(r.SentAt)
}
