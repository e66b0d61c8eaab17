//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SocketType is the SO_TYPE of a socket.
type SocketType int

const (
	// TypeUnknown is returned when the type cannot be queried. It never
	// collides with a type the OS reports.
	TypeUnknown   SocketType = -1
	TypeStream    SocketType = unix.SOCK_STREAM
	TypeDatagram  SocketType = unix.SOCK_DGRAM
	TypeRaw       SocketType = unix.SOCK_RAW
	TypeSeqPacket SocketType = unix.SOCK_SEQPACKET
)

func (s SocketType) String() string {
	switch s {
	case TypeStream:
		return "stream"
	case TypeDatagram:
		return "datagram"
	case TypeRaw:
		return "raw"
	case TypeSeqPacket:
		return "seqpacket"
	case TypeUnknown:
		return "unknown"
	}
	return fmt.Sprintf("SocketType(%d)", int(s))
}

// SocketType queries the type of the socket fd. On failure it logs a warning
// and returns TypeUnknown with an error wrapping ErrQuery.
func (t *Transport) SocketType(fd int) (SocketType, error) {
	v, err := t.sys.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	if err != nil {
		t.logger.Warnf("evsocket: getsockopt SO_TYPE on fd %d: %v", fd, err)
		return TypeUnknown, fmt.Errorf("%w: fd %d: %w", ErrQuery, fd, err)
	}
	return SocketType(v), nil
}
