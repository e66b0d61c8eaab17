// Package testutils holds test doubles shared by the package tests.
package testutils

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Call is one OS call made through FakeSyscalls.
type Call struct {
	Op    string
	FD    int
	Vecs  int // number of regions offered
	Len   int // bytes offered
	Flags int
	To    unix.Sockaddr
	Data  []byte // copy of the bytes offered to a send

	Offset int64 // sendfile only
	InFD   int   // sendfile only
}

// Result scripts the outcome of one receive call.
type Result struct {
	Data []byte
	From unix.Sockaddr
	Err  error
}

// FakeSyscalls is a scriptable syscall table. Receives pop Results in order
// and fail with EAGAIN once the script is exhausted. Sends accept up to
// SendLimit bytes, or everything when SendLimit is 0.
type FakeSyscalls struct {
	mu    sync.Mutex
	calls []Call

	Results   []Result
	SendLimit int
	SendErr   error

	SendfileN   int
	SendfileErr error

	SockType    int
	SockTypeErr error
}

// Calls returns a copy of the recorded calls.
func (f *FakeSyscalls) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Ops returns the recorded operation names in order.
func (f *FakeSyscalls) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, c := range f.calls {
		ops[i] = c.Op
	}
	return ops
}

func (f *FakeSyscalls) Read(fd int, p []byte) (int, error) {
	n, _, err := f.recv("read", fd, [][]byte{p}, 0)
	return n, err
}

func (f *FakeSyscalls) Write(fd int, p []byte) (int, error) {
	return f.send("write", fd, [][]byte{p}, nil, 0)
}

func (f *FakeSyscalls) Readv(fd int, iov [][]byte) (int, error) {
	n, _, err := f.recv("readv", fd, iov, 0)
	return n, err
}

func (f *FakeSyscalls) Writev(fd int, iov [][]byte) (int, error) {
	return f.send("writev", fd, iov, nil, 0)
}

func (f *FakeSyscalls) Recv(fd int, p []byte, flags int) (int, error) {
	n, _, err := f.recv("recv", fd, [][]byte{p}, flags)
	return n, err
}

func (f *FakeSyscalls) Send(fd int, p []byte, flags int) (int, error) {
	return f.send("send", fd, [][]byte{p}, nil, flags)
}

func (f *FakeSyscalls) Recvfrom(fd int, p []byte, flags int) (int, unix.Sockaddr, error) {
	return f.recv("recvfrom", fd, [][]byte{p}, flags)
}

func (f *FakeSyscalls) Recvmsg(fd int, iov [][]byte, flags int) (int, unix.Sockaddr, error) {
	return f.recv("recvmsg", fd, iov, flags)
}

func (f *FakeSyscalls) Sendmsg(fd int, iov [][]byte, to unix.Sockaddr, flags int) (int, error) {
	return f.send("sendmsg", fd, iov, to, flags)
}

func (f *FakeSyscalls) Sendfile(outfd, infd int, offset *int64, count int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "sendfile", FD: outfd, InFD: infd, Offset: *offset, Len: count})
	n := min(f.SendfileN, count)
	*offset += int64(n)
	return n, f.SendfileErr
}

func (f *FakeSyscalls) GetsockoptInt(fd, level, opt int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: "getsockopt", FD: fd})
	if f.SockTypeErr != nil {
		return -1, f.SockTypeErr
	}
	return f.SockType, nil
}

func (f *FakeSyscalls) recv(op string, fd int, iov [][]byte, flags int) (int, unix.Sockaddr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := Call{Op: op, FD: fd, Vecs: len(iov), Flags: flags}
	for _, p := range iov {
		c.Len += len(p)
	}
	f.calls = append(f.calls, c)

	if len(f.Results) == 0 {
		return -1, nil, unix.EAGAIN
	}
	r := f.Results[0]
	f.Results = f.Results[1:]
	if r.Err != nil {
		return -1, nil, r.Err
	}
	n, data := 0, r.Data
	for _, p := range iov {
		k := copy(p, data)
		n += k
		data = data[k:]
		if len(data) == 0 {
			break
		}
	}
	return n, r.From, nil
}

func (f *FakeSyscalls) send(op string, fd int, iov [][]byte, to unix.Sockaddr, flags int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := Call{Op: op, FD: fd, Vecs: len(iov), Flags: flags, To: to}
	for _, p := range iov {
		c.Len += len(p)
		c.Data = append(c.Data, p...)
	}
	f.calls = append(f.calls, c)

	if f.SendErr != nil {
		return -1, f.SendErr
	}
	if f.SendLimit > 0 && c.Len > f.SendLimit {
		return f.SendLimit, nil
	}
	return c.Len, nil
}
