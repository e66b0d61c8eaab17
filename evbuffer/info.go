package evbuffer

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"
)

// PeerInfo is the source or destination address of the datagram most recently
// moved through a buffer.
type PeerInfo struct {
	Addr unix.Sockaddr
	Len  int // Length of the address in its raw sockaddr form.
}

// NewPeerInfo returns a record holding a private copy of sa, or nil when sa is
// nil or of an unsupported family.
func NewPeerInfo(sa unix.Sockaddr) *PeerInfo {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		c := *a
		return &PeerInfo{Addr: &c, Len: unix.SizeofSockaddrInet4}
	case *unix.SockaddrInet6:
		c := *a
		return &PeerInfo{Addr: &c, Len: unix.SizeofSockaddrInet6}
	case *unix.SockaddrUnix:
		c := *a
		return &PeerInfo{Addr: &c, Len: unix.SizeofSockaddrUnix}
	}
	return nil
}

// Clone returns a deep copy.
func (p *PeerInfo) Clone() *PeerInfo {
	if p == nil {
		return nil
	}
	return NewPeerInfo(p.Addr)
}

// Equal reports whether both records name the same address.
func (p *PeerInfo) Equal(o *PeerInfo) bool {
	if p == nil || o == nil {
		return p == o
	}
	switch a := p.Addr.(type) {
	case *unix.SockaddrInet4:
		b, ok := o.Addr.(*unix.SockaddrInet4)
		return ok && a.Port == b.Port && a.Addr == b.Addr
	case *unix.SockaddrInet6:
		b, ok := o.Addr.(*unix.SockaddrInet6)
		return ok && a.Port == b.Port && a.ZoneId == b.ZoneId && bytes.Equal(a.Addr[:], b.Addr[:])
	case *unix.SockaddrUnix:
		b, ok := o.Addr.(*unix.SockaddrUnix)
		return ok && a.Name == b.Name
	}
	return false
}

func (p *PeerInfo) String() string {
	if p == nil {
		return "<nil>"
	}
	switch a := p.Addr.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", a.Addr[0], a.Addr[1], a.Addr[2], a.Addr[3], a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", a.Addr[:], a.Port)
	case *unix.SockaddrUnix:
		return a.Name
	}
	return "<unknown>"
}

// SetPeer attaches info to the buffer, replacing the previous record.
// Attaching the record that is already attached does nothing.
func (b *Buffer) SetPeer(info *PeerInfo) {
	b.mu.Lock()
	b.setPeer(info)
	b.mu.Unlock()
}

// Peer returns the attached record without transferring ownership, or nil.
func (b *Buffer) Peer() *PeerInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peer
}

func (b *Buffer) setPeer(info *PeerInfo) {
	if info == b.peer {
		return
	}
	old := b.peer
	if old != nil && info != nil && !old.Equal(info) {
		if b.cfg.PeerReplaced != nil {
			b.cfg.PeerReplaced(old, info)
		}
		assertSinglePeer(old, info)
	}
	b.peer = info
}
