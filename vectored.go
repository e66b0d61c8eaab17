//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import "github.com/y001j/evsocket/evbuffer"

// Readv reads at most howmuch bytes from fd into up to ReadIOVecs segments of
// b with one readv call. A negative or oversized howmuch reads MaxRead bytes.
// The buffer is unchanged when the call fails or returns zero.
func (t *Transport) Readv(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	return b.ReadVecs(t.clampRead(howmuch), t.opts.ReadIOVecs, func(vecs [][]byte) (int, *evbuffer.PeerInfo, error) {
		n, err := t.sys.Readv(fd, vecs)
		return n, nil, err
	})
}

// Writev sends at most howmuch bytes from the head of b with one writev call
// covering up to WriteIOVecs segments. It stops before a file segment. When
// the head itself is a file segment no writev is issued and
// evbuffer.ErrFileSegment is returned; Sendfile transmits that segment. Sent
// bytes are not drained.
func (t *Transport) Writev(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	if howmuch < 0 {
		return 0, ErrNegativeBudget
	}
	return b.WriteVecs(howmuch, t.opts.WriteIOVecs, func(vecs [][]byte, _ *evbuffer.PeerInfo) (int, error) {
		return result(t.sys.Writev(fd, vecs))
	})
}
