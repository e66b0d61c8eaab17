//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"errors"

	gio "github.com/panjf2000/gnet/v2/pkg/io"
	"golang.org/x/sys/unix"
)

// Syscalls is the set of OS calls a Transport issues. Each method performs
// exactly one call and returns the raw errno as its error.
type Syscalls interface {
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Readv(fd int, iov [][]byte) (int, error)
	Writev(fd int, iov [][]byte) (int, error)
	Recv(fd int, p []byte, flags int) (int, error)
	Send(fd int, p []byte, flags int) (int, error)
	Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error)
	Recvmsg(fd int, iov [][]byte, flags int) (int, unix.Sockaddr, error)
	Sendmsg(fd int, iov [][]byte, to unix.Sockaddr, flags int) (int, error)
	Sendfile(outfd, infd int, offset *int64, count int) (int, error)
	GetsockoptInt(fd, level, opt int) (int, error)
}

// IsRetriable reports whether err means the call should be repeated once the
// descriptor is ready again.
func IsRetriable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// hostSyscalls issues real system calls.
type hostSyscalls struct{}

func (hostSyscalls) Read(fd int, p []byte) (int, error) { return unix.Read(fd, p) }
func (hostSyscalls) Write(fd int, p []byte) (int, error) { return unix.Write(fd, p) }

func (hostSyscalls) Readv(fd int, iov [][]byte) (int, error) { return gio.Readv(fd, iov) }
func (hostSyscalls) Writev(fd int, iov [][]byte) (int, error) { return gio.Writev(fd, iov) }

func (hostSyscalls) Recv(fd int, p []byte, flags int) (int, error) {
	n, _, err := unix.Recvfrom(fd, p, flags)
	return n, err
}

func (hostSyscalls) Send(fd int, p []byte, flags int) (int, error) {
	return unix.SendmsgN(fd, p, nil, nil, flags)
}

func (hostSyscalls) Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error) {
	return unix.Recvfrom(fd, p, flags)
}

func (hostSyscalls) Recvmsg(fd int, iov [][]byte, flags int) (int, unix.Sockaddr, error) {
	n, _, _, from, err := unix.RecvmsgBuffers(fd, iov, nil, flags)
	return n, from, err
}

func (hostSyscalls) Sendmsg(fd int, iov [][]byte, to unix.Sockaddr, flags int) (int, error) {
	return unix.SendmsgBuffers(fd, iov, nil, to, flags)
}

func (hostSyscalls) Sendfile(outfd, infd int, offset *int64, count int) (int, error) {
	return unix.Sendfile(outfd, infd, offset, count)
}

func (hostSyscalls) GetsockoptInt(fd, level, opt int) (int, error) {
	return unix.GetsockoptInt(fd, level, opt)
}

// result drops the byte count of a failed call.
func result(n int, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	return n, nil
}
