//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"errors"
	"fmt"
	"net"

	gerrors "github.com/panjf2000/gnet/v2/pkg/errors"
	"github.com/panjf2000/gnet/v2/pkg/logging"
	"github.com/panjf2000/gnet/v2/pkg/netpoll"
	"github.com/panjf2000/gnet/v2/pkg/queue"
	"golang.org/x/sys/unix"

	socket "github.com/y001j/evsocket/sockets"
)

// Loop drives the buffers of one listening or bound socket from readiness
// events. It runs on the goroutine calling Run.
type Loop struct {
	t        *Transport
	logger   logging.Logger
	poller   *netpoll.Poller
	handler  EventHandler
	socketFd int           // listener
	stream   bool          // listener accepts connections
	readCap  int           // receive budget per readable event
	conns    map[int]*Conn // fd -> conn, the bound socket itself for datagrams
	listenPA *netpoll.PollAttachment
}

// NewLoop prepares a loop over the socket fd. A stream socket must already
// be listening; each accepted connection gets its own Conn. A datagram socket
// is served by a single Conn. Once NewLoop succeeds the loop owns fd.
func NewLoop(t *Transport, fd int, handler EventHandler) (*Loop, error) {
	typ, err := t.SocketType(fd)
	if err != nil {
		return nil, err
	}
	poller, err := netpoll.OpenPoller()
	if err != nil {
		return nil, fmt.Errorf("evsocket: open poller: %w", err)
	}
	l := &Loop{
		t:        t,
		logger:   t.logger,
		poller:   poller,
		handler:  handler,
		socketFd: fd,
		stream:   typ == TypeStream,
		readCap:  t.opts.MaxRead,
		conns:    make(map[int]*Conn),
	}

	switch typ {
	case TypeStream:
		l.listenPA = &netpoll.PollAttachment{FD: fd, Callback: l.handleEvent}
		err = poller.AddRead(l.listenPA, false)
	case TypeDatagram:
		local, _ := socket.Addr(fd, socket.Udp)
		c := newConn(l, fd, local, nil, FromStrategy{T: t}, true)
		l.conns[fd] = c
		err = poller.AddRead(c.pa, false)
	default:
		err = fmt.Errorf("evsocket: cannot serve %s socket", typ)
	}
	if err != nil {
		_ = poller.Close()
		return nil, err
	}
	return l, nil
}

// Transport returns the transport the loop transfers with.
func (l *Loop) Transport() *Transport { return l.t }

// Run fires OnBoot and processes events until a handler asks for Shutdown,
// Stop is called or the poller fails. Every socket is closed on return.
func (l *Loop) Run() error {
	defer l.shutdown()
	if l.handler.OnBoot(l) == Shutdown {
		return nil
	}
	for _, c := range l.conns {
		if l.handler.OnOpen(c) == Shutdown {
			return nil
		}
	}
	err := l.poller.Polling(l.handleEvent)
	if errors.Is(err, gerrors.ErrEngineShutdown) {
		return nil
	}
	return err
}

// Stop asks a running loop to return. It is safe to call from any goroutine.
func (l *Loop) Stop() error {
	return l.poller.Trigger(queue.HighPriority, func(_ interface{}) error {
		return gerrors.ErrEngineShutdown
	}, nil)
}

func (l *Loop) handleEvent(fd int, ev netpoll.IOEvent, flags netpoll.IOFlags) error {
	if l.stream && fd == l.socketFd {
		return l.accept()
	}
	c, ok := l.conns[fd]
	if !ok {
		return nil
	}
	if netpoll.IsWriteEvent(ev) && c.writing {
		if err := l.flush(c); err != nil || !l.alive(c) {
			return err
		}
	}
	if netpoll.IsReadEvent(ev) {
		if err := l.read(c); err != nil || !l.alive(c) {
			return err
		}
	}
	if netpoll.IsErrorEvent(ev, flags) {
		return l.close(c, unix.ECONNRESET)
	}
	return nil
}

func (l *Loop) alive(c *Conn) bool {
	_, ok := l.conns[c.fd]
	return ok
}

func (l *Loop) accept() error {
	for {
		nfd, remote, err := socket.Accept(l.socketFd)
		if err != nil {
			if IsRetriable(err) || errors.Is(err, unix.ECONNABORTED) {
				return nil
			}
			l.logger.Errorf("evsocket: accept on fd %d: %v", l.socketFd, err)
			return nil
		}
		if _, ok := remote.(*net.TCPAddr); ok {
			_ = socket.SetNoDelay(nfd, 1)
			_ = socket.SetKeepAlive(nfd, 1)
		}
		local, _ := socket.Addr(nfd, socket.Tcp)
		s, err := l.t.StrategyFor(nfd)
		if err != nil {
			_ = unix.Close(nfd)
			continue
		}
		c := newConn(l, nfd, local, remote, s, false)
		if err = l.poller.AddRead(c.pa, false); err != nil {
			l.logger.Errorf("evsocket: register fd %d: %v", nfd, err)
			_ = unix.Close(nfd)
			continue
		}
		l.conns[nfd] = c
		l.logger.Debugf("evsocket: accepted fd %d from %v", nfd, remote)
		switch l.handler.OnOpen(c) {
		case Close:
			if err = l.close(c, nil); err != nil {
				return err
			}
		case Shutdown:
			return gerrors.ErrEngineShutdown
		}
	}
}

func (l *Loop) read(c *Conn) error {
	n, err := c.in.FillFrom(c.fd, l.readCap)
	switch {
	case err != nil && IsRetriable(err):
		return nil
	case err != nil:
		return l.close(c, err)
	case n == 0 && !c.isDatagram:
		return l.close(c, nil)
	}

	action := l.handler.OnTraffic(c)
	if c.isDatagram {
		defer l.endDatagram(c)
	}
	switch action {
	case Echo:
		if _, err = c.in.MoveTo(c.out); err != nil {
			return l.close(c, err)
		}
		return l.flush(c)
	case Close:
		return l.close(c, nil)
	case Shutdown:
		return gerrors.ErrEngineShutdown
	}
	return nil
}

// endDatagram forgets the sender once its datagram has been handled, so the
// next datagram starts a new peer stream.
func (l *Loop) endDatagram(c *Conn) {
	c.in.Reset()
	c.in.SetPeer(nil)
	c.out.Reset()
	c.out.SetPeer(nil)
}

func (l *Loop) flush(c *Conn) error {
	for c.out.Len() > 0 {
		n, err := c.out.FlushTo(c.fd, c.out.Len())
		if err != nil && !IsRetriable(err) {
			return l.close(c, err)
		}
		if err != nil || n == 0 {
			if c.isDatagram {
				l.logger.Warnf("evsocket: dropping %d byte datagram on fd %d: %v", c.out.Len(), c.fd, err)
				c.out.Reset()
				return nil
			}
			return l.watchWrite(c, true)
		}
	}
	return l.watchWrite(c, false)
}

func (l *Loop) watchWrite(c *Conn, on bool) error {
	if c.writing == on {
		return nil
	}
	var err error
	if on {
		err = l.poller.ModReadWrite(c.pa, false)
	} else {
		err = l.poller.ModRead(c.pa, false)
	}
	if err != nil {
		return l.close(c, err)
	}
	c.writing = on
	return nil
}

func (l *Loop) close(c *Conn, cause error) error {
	if !l.alive(c) {
		return nil
	}
	delete(l.conns, c.fd)
	_ = l.poller.Delete(c.fd)
	if err := unix.Close(c.fd); err != nil {
		l.logger.Warnf("evsocket: close fd %d: %v", c.fd, err)
	}
	_ = c.in.Close()
	_ = c.out.Close()
	if cause != nil {
		l.logger.Debugf("evsocket: fd %d closed: %v", c.fd, cause)
	}
	if l.handler.OnClose(c, cause) == Shutdown || c.fd == l.socketFd {
		return gerrors.ErrEngineShutdown
	}
	return nil
}

func (l *Loop) shutdown() {
	for _, c := range l.conns {
		_ = l.close(c, nil)
	}
	if l.stream {
		_ = l.poller.Delete(l.socketFd)
		_ = unix.Close(l.socketFd)
	}
	if err := l.poller.Close(); err != nil {
		l.logger.Warnf("evsocket: close poller: %v", err)
	}
	l.handler.OnShutdown(l)
}
