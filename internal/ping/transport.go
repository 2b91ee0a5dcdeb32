package ping

import "net/netip"

// Datagram is one inbound ICMP message together with the link metadata
// the session reports back to callers.
type Datagram struct {
	// Data holds the ICMP message bytes (no IP header).
	Data []byte

	// From is the source address of the datagram.
	From netip.Addr

	// TTL is the remaining hop budget from the enclosing IP header,
	// or 0 when the transport cannot report it.
	TTL int
}

// Transport moves raw ICMP datagrams for an Engine. Implementations are
// exclusively owned by a single Engine; sharing one transport between two
// engines is unsupported.
type Transport interface {
	// Send transmits an ICMP message to the destination address.
	// A returned error means the message could not be handed off, which
	// the session reports as a send timeout.
	Send(dst netip.Addr, pkt []byte) error

	// Recv polls for one inbound datagram without blocking.
	// It returns (nil, nil) when nothing is pending. A non-nil error
	// indicates a transport fault; the session treats it like an empty
	// poll and keeps waiting for the attempt deadline.
	Recv() (*Datagram, error)
}
