package ping

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// ICMPv4ProtocolNumber is the IANA protocol number for ICMP.
const ICMPv4ProtocolNumber = 1

// defaultPollBudget bounds how long a single Recv may wait for the kernel.
// It keeps Recv effectively non-blocking while still draining packets that
// are already queued.
const defaultPollBudget = time.Millisecond

// SocketTransport is the real Transport over an ICMP socket.
//
// In privileged mode it uses a raw "ip4:icmp" socket and requires
// super-user rights. In unprivileged mode it uses a "udp4" datagram ICMP
// socket (Linux ping_group_range); the kernel then assigns the echo
// identifier, which is the socket's local port. Callers should construct
// the Engine with LocalIdentifier so replies match.
type SocketTransport struct {
	conn       *icmp.PacketConn
	p4         *ipv4.PacketConn
	privileged bool
	localID    uint16
	pollBudget time.Duration
	buf        []byte
}

// NewSocketTransport opens an ICMP socket and enables TTL reporting on
// inbound datagrams.
func NewSocketTransport(privileged bool) (*SocketTransport, error) {
	network := "udp4"
	if privileged {
		network = "ip4:icmp"
	}

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return nil, fmt.Errorf("create ICMP socket: %w", err)
	}

	p4 := conn.IPv4PacketConn()
	if err := p4.SetControlMessage(ipv4.FlagTTL, true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable TTL reporting: %w", err)
	}

	t := &SocketTransport{
		conn:       conn,
		p4:         p4,
		privileged: privileged,
		pollBudget: defaultPollBudget,
		buf:        make([]byte, 1500),
	}

	if !privileged {
		if ua, ok := conn.LocalAddr().(*net.UDPAddr); ok {
			t.localID = uint16(ua.Port)
		}
	}

	return t, nil
}

// LocalIdentifier returns the echo identifier to construct the Engine
// with: the kernel-assigned identifier for unprivileged sockets, or the
// process ID for raw sockets.
func (t *SocketTransport) LocalIdentifier() uint16 {
	if !t.privileged {
		return t.localID
	}
	return uint16(os.Getpid() & 0xffff)
}

// Send transmits an ICMP message to the destination.
func (t *SocketTransport) Send(dst netip.Addr, pkt []byte) error {
	if !dst.Is4() && !dst.Is4In6() {
		return fmt.Errorf("send ICMP: %s is not an IPv4 address", dst)
	}

	ip := net.IP(dst.Unmap().AsSlice())
	var addr net.Addr
	if t.privileged {
		addr = &net.IPAddr{IP: ip}
	} else {
		addr = &net.UDPAddr{IP: ip}
	}

	if _, err := t.conn.WriteTo(pkt, addr); err != nil {
		return fmt.Errorf("send ICMP: %w", err)
	}
	return nil
}

// Recv polls the socket for one inbound datagram, waiting at most the
// poll budget. It returns (nil, nil) when nothing arrived in time.
func (t *SocketTransport) Recv() (*Datagram, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.pollBudget)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	n, cm, peer, err := t.p4.ReadFrom(t.buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("receive ICMP: %w", err)
	}

	ttl := 0
	if cm != nil {
		ttl = cm.TTL
	}

	data := make([]byte, n)
	copy(data, t.buf[:n])

	return &Datagram{
		Data: data,
		From: peerAddr(peer),
		TTL:  ttl,
	}, nil
}

// Close releases the socket.
func (t *SocketTransport) Close() error {
	return t.conn.Close()
}

// peerAddr extracts the source address from the socket-level peer.
func peerAddr(peer net.Addr) netip.Addr {
	var ip net.IP
	switch a := peer.(type) {
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return netip.Addr{}
	}

	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}
	}
	return addr.Unmap()
}
