//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import "github.com/y001j/evsocket/evbuffer"

// Send pulls the first howmuch bytes of b into one contiguous region and
// sends them with one send call. A negative or oversized howmuch sends
// everything. An empty buffer returns (0, nil) without a call.
func (t *Transport) Send(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	return b.WriteLinear(howmuch, func(p []byte, _ *evbuffer.PeerInfo) (int, error) {
		return result(t.sys.Send(fd, p, 0))
	})
}

// Write is Send using write instead of send, so it also works on pipes and
// files.
func (t *Transport) Write(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	return b.WriteLinear(howmuch, func(p []byte, _ *evbuffer.PeerInfo) (int, error) {
		return result(t.sys.Write(fd, p))
	})
}

// Recv receives at most howmuch bytes into one contiguous region at the tail
// of b with one recv call.
func (t *Transport) Recv(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	return b.ReadSingle(t.clampRead(howmuch), func(p []byte) (int, *evbuffer.PeerInfo, error) {
		n, err := t.sys.Recv(fd, p, 0)
		return n, nil, err
	})
}

// Read is Recv using read.
func (t *Transport) Read(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	return b.ReadSingle(t.clampRead(howmuch), func(p []byte) (int, *evbuffer.PeerInfo, error) {
		n, err := t.sys.Read(fd, p)
		return n, nil, err
	})
}
