//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"net"

	"github.com/panjf2000/gnet/v2/pkg/netpoll"

	"github.com/y001j/evsocket/evbuffer"
	socket "github.com/y001j/evsocket/sockets"
)

// Conn is a socket driven by a Loop together with its inbound and outbound
// buffers. A datagram Conn carries one logical peer stream at a time: the
// sender of the datagram being handled.
type Conn struct {
	fd         int              // file descriptor
	ctx        interface{}      // user-defined context
	loop       *Loop            // connected event-loop
	in         *evbuffer.Buffer // bytes received from the peer
	out        *evbuffer.Buffer // bytes waiting to be sent to the peer
	localAddr  net.Addr         // local addr
	remoteAddr net.Addr         // remote addr, nil for datagram sockets
	isDatagram bool             // UDP protocol
	writing    bool             // write readiness is being watched
	pa         *netpoll.PollAttachment
}

func newConn(l *Loop, fd int, local, remote net.Addr, s Strategy, datagram bool) *Conn {
	c := &Conn{
		fd:         fd,
		loop:       l,
		in:         l.t.NewBuffer(),
		out:        l.t.NewBuffer(),
		localAddr:  local,
		remoteAddr: remote,
		isDatagram: datagram,
	}
	Bind(c.in, s)
	Bind(c.out, s)
	c.pa = &netpoll.PollAttachment{FD: fd, Callback: l.handleEvent}
	return c
}

// Fd returns the underlying file descriptor.
func (c *Conn) Fd() int { return c.fd }

// Inbound returns the buffer holding the received bytes.
func (c *Conn) Inbound() *evbuffer.Buffer { return c.in }

// Outbound returns the buffer holding the bytes to send. Flush sends them.
func (c *Conn) Outbound() *evbuffer.Buffer { return c.out }

// Context returns a user-defined context.
func (c *Conn) Context() interface{} { return c.ctx }

// SetContext sets a user-defined context.
func (c *Conn) SetContext(ctx interface{}) { c.ctx = ctx }

// LocalAddr is the connection's local socket address.
func (c *Conn) LocalAddr() net.Addr { return c.localAddr }

// RemoteAddr is the peer address. For a datagram socket it is the sender of
// the datagram being handled.
func (c *Conn) RemoteAddr() net.Addr {
	if !c.isDatagram {
		return c.remoteAddr
	}
	if p := c.in.Peer(); p != nil {
		return socket.SockaddrToUDPAddr(p.Addr)
	}
	return nil
}

// Flush sends the outbound buffer. Bytes the socket cannot take now stay
// buffered for stream sockets and are sent when it becomes writable again;
// a datagram that cannot be sent is dropped.
func (c *Conn) Flush() error {
	return c.loop.flush(c)
}
