//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import "github.com/y001j/evsocket/evbuffer"

// Strategy pairs the receive and send primitives used for one kind of
// descriptor. Its methods have the evbuffer.TransferFunc shape.
type Strategy interface {
	Readable(b *evbuffer.Buffer, fd int, howmuch int) (int, error)
	Writable(b *evbuffer.Buffer, fd int, howmuch int) (int, error)
}

// LinearStrategy uses read and write. It works on any descriptor.
type LinearStrategy struct{ T *Transport }

func (s LinearStrategy) Readable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Read(b, fd, howmuch)
}

func (s LinearStrategy) Writable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Write(b, fd, howmuch)
}

// VectoredStrategy uses readv and writev on stream sockets. A file segment at
// the head of the buffer is sent with sendfile where the platform has it.
type VectoredStrategy struct{ T *Transport }

func (s VectoredStrategy) Readable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Readv(b, fd, howmuch)
}

func (s VectoredStrategy) Writable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	if s.T.caps.Sendfile && b.HeadIsFile() {
		return s.T.Sendfile(b, fd, howmuch)
	}
	return s.T.Writev(b, fd, howmuch)
}

// DatagramStrategy uses recvmsg and sendmsg, replying to the last sender.
type DatagramStrategy struct{ T *Transport }

func (s DatagramStrategy) Readable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Recvmsg(b, fd, howmuch)
}

func (s DatagramStrategy) Writable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Sendmsg(b, fd, howmuch)
}

// FromStrategy receives into a single region with recvfrom and sends with
// sendmsg.
type FromStrategy struct{ T *Transport }

func (s FromStrategy) Readable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Recvfrom(b, fd, howmuch)
}

func (s FromStrategy) Writable(b *evbuffer.Buffer, fd, howmuch int) (int, error) {
	return s.T.Sendmsg(b, fd, howmuch)
}

// Bind installs s as the transfer hooks of b.
func Bind(b *evbuffer.Buffer, s Strategy) {
	b.SetTransferFuncs(s.Readable, s.Writable)
}

// StrategyFor picks a strategy from the type of the socket fd. When the type
// cannot be queried it returns LinearStrategy together with the query error.
func (t *Transport) StrategyFor(fd int) (Strategy, error) {
	typ, err := t.SocketType(fd)
	if err != nil {
		return LinearStrategy{T: t}, err
	}
	switch typ {
	case TypeStream:
		if t.caps.Vectored {
			return VectoredStrategy{T: t}, nil
		}
	case TypeDatagram, TypeSeqPacket:
		return DatagramStrategy{T: t}, nil
	case TypeRaw:
		return FromStrategy{T: t}, nil
	}
	return LinearStrategy{T: t}, nil
}
