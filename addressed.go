//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"github.com/y001j/evsocket/evbuffer"
)

// Recvmsg receives one datagram into up to ReadIOVecs segments of b and
// attaches its source address to b. On failure neither the data nor the
// attached address change.
func (t *Transport) Recvmsg(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	n, err := b.ReadVecs(t.clampRead(howmuch), t.opts.ReadIOVecs, func(vecs [][]byte) (int, *evbuffer.PeerInfo, error) {
		n, from, err := t.sys.Recvmsg(fd, vecs, 0)
		if err != nil {
			return 0, nil, err
		}
		return n, evbuffer.NewPeerInfo(from), nil
	})
	if err != nil && !IsRetriable(err) {
		t.logger.Errorf("evsocket: recvmsg on fd %d: %v", fd, err)
	}
	return n, err
}

// Sendmsg sends at most howmuch bytes from the head of b as one datagram to
// the address attached to b. Without an attached address nothing is sent and
// ErrNoPeerAddress is returned. The walk over b stops at file segments as in
// Writev.
func (t *Transport) Sendmsg(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	if howmuch < 0 {
		return 0, ErrNegativeBudget
	}
	return b.WriteVecs(howmuch, t.opts.WriteIOVecs, func(vecs [][]byte, to *evbuffer.PeerInfo) (int, error) {
		if to == nil {
			return 0, ErrNoPeerAddress
		}
		return result(t.sys.Sendmsg(fd, vecs, to.Addr, 0))
	})
}

// Recvfrom is the single-region form of Recvmsg.
func (t *Transport) Recvfrom(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	n, err := b.ReadSingle(t.clampRead(howmuch), func(p []byte) (int, *evbuffer.PeerInfo, error) {
		n, from, err := t.sys.Recvfrom(fd, p, 0)
		if err != nil {
			return 0, nil, err
		}
		return n, evbuffer.NewPeerInfo(from), nil
	})
	if err != nil && !IsRetriable(err) {
		t.logger.Errorf("evsocket: recvfrom on fd %d: %v", fd, err)
	}
	return n, err
}

// Sendto is not supported; use Sendmsg.
func (t *Transport) Sendto(_ *evbuffer.Buffer, _ int, _ int) (int, error) {
	return 0, ErrSendtoUnsupported
}
