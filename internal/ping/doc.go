// Package ping implements an ICMP echo (RFC 792) protocol engine.
//
// The package separates three concerns:
//
//  1. The packet codec builds echo request bytes and classifies inbound
//     buffers (codec.go).
//  2. A session is the retry/timeout state machine for one logical ping:
//     one identifier, one target, a bounded number of attempts (session.go).
//  3. The Engine is the public surface: a blocking Ping call and a
//     non-blocking AsyncStart/AsyncComplete pair driving the same session
//     logic (engine.go).
//
// Bytes move through an injected Transport, so the engine can be driven
// entirely in-memory for tests. SocketTransport (socket.go) is the real
// implementation over golang.org/x/net/icmp.
//
// # Reply matching
//
// Replies are correlated strictly by (identifier, sequence). The identifier
// is fixed per Engine; the sequence advances once per transmitted attempt.
// Datagrams that fail to match are discarded silently, since other ICMP
// users may share the socket. A reply that matches but is malformed
// (bad checksum, wrong type, truncated) consumes the attempt as a bad
// response.
//
// # Unprivileged sockets
//
// On Linux, unprivileged ICMP requires the ping_group_range sysctl:
//
//	sysctl -w net.ipv4.ping_group_range="0 65535"
package ping
