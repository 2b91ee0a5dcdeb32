package ping

import (
	"encoding/binary"
	"errors"
	"time"
)

// ICMP echo message layout (RFC 792):
//
//	byte 0    : type      (8 = echo request, 0 = echo reply)
//	byte 1    : code      (0)
//	bytes 2-3 : checksum  (one's-complement sum, big-endian)
//	bytes 4-5 : identifier
//	bytes 6-7 : sequence number
//	bytes 8-  : payload (send timestamp + padding)
const (
	headerLen    = 8
	timestampLen = 8

	// MinPayloadLen is the smallest payload that still carries the
	// send timestamp used for round-trip measurement.
	MinPayloadLen = timestampLen

	// DefaultPayloadLen matches the classic ping payload size.
	DefaultPayloadLen = 56

	typeEchoRequest = 8
	typeEchoReply   = 0
)

var (
	// ErrTruncated is returned when a buffer is too short to hold an
	// ICMP echo header.
	ErrTruncated = errors.New("icmp message truncated")

	// ErrChecksumMismatch is returned when the checksum over the received
	// bytes does not verify.
	ErrChecksumMismatch = errors.New("icmp checksum mismatch")

	// ErrWrongType is returned when a message is not an echo reply with
	// code zero.
	ErrWrongType = errors.New("not an icmp echo reply")

	// ErrIdentifierMismatch is returned when the echoed identifier belongs
	// to another ICMP user sharing the transport.
	ErrIdentifierMismatch = errors.New("icmp identifier mismatch")

	// ErrSequenceMismatch is returned when the echoed sequence is stale,
	// i.e. not the sequence of the most recent attempt.
	ErrSequenceMismatch = errors.New("icmp sequence mismatch")
)

// EncodeEchoRequest builds the wire bytes for one echo request attempt.
// The payload starts with the nanosecond send timestamp, zero-padded to
// payloadLen bytes (at least MinPayloadLen).
func EncodeEchoRequest(id, seq uint16, sentAt time.Time, payloadLen int) []byte {
	if payloadLen < MinPayloadLen {
		payloadLen = MinPayloadLen
	}

	buf := make([]byte, headerLen+payloadLen)
	buf[0] = typeEchoRequest
	buf[1] = 0
	// bytes 2-3 stay zero for checksum computation
	binary.BigEndian.PutUint16(buf[4:6], id)
	binary.BigEndian.PutUint16(buf[6:8], seq)
	binary.BigEndian.PutUint64(buf[8:16], uint64(sentAt.UnixNano()))

	binary.BigEndian.PutUint16(buf[2:4], checksum(buf))

	return buf
}

// DecodeEchoReply validates buf as an echo reply for the given identifier
// and sequence, returning the echoed send timestamp on success.
//
// Failures are classification signals for the session, not fatal errors:
// ErrIdentifierMismatch and ErrSequenceMismatch mark foreign or stale
// traffic to be discarded; every other failure marks a bad response.
func DecodeEchoReply(buf []byte, wantID, wantSeq uint16) (time.Time, error) {
	if len(buf) < headerLen {
		return time.Time{}, ErrTruncated
	}

	// Summing the received bytes including the transmitted checksum must
	// yield zero (the one's-complement sum of a valid message and its own
	// checksum cancels out).
	if checksum(buf) != 0 {
		return time.Time{}, ErrChecksumMismatch
	}

	if buf[0] != typeEchoReply || buf[1] != 0 {
		return time.Time{}, ErrWrongType
	}

	if binary.BigEndian.Uint16(buf[4:6]) != wantID {
		return time.Time{}, ErrIdentifierMismatch
	}
	if binary.BigEndian.Uint16(buf[6:8]) != wantSeq {
		return time.Time{}, ErrSequenceMismatch
	}

	if len(buf) < headerLen+timestampLen {
		return time.Time{}, ErrTruncated
	}

	ns := int64(binary.BigEndian.Uint64(buf[8:16]))
	return time.Unix(0, ns), nil
}

// IsForeign reports whether a decode failure identifies traffic belonging
// to another ICMP user or a superseded attempt. Foreign datagrams are
// discarded without consuming the pending attempt.
func IsForeign(err error) bool {
	return errors.Is(err, ErrIdentifierMismatch) || errors.Is(err, ErrSequenceMismatch)
}

// checksum computes the RFC 1071 internet checksum: the one's-complement
// of the one's-complement sum of all 16-bit words, end-around carry folded
// back into the low 16 bits. An odd trailing byte is zero-padded.
func checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 != 0 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
