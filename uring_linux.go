package evsocket

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"syscall"

	"github.com/dshulyak/uring"
	"golang.org/x/sys/unix"
)

const ringSupported = true

type prepFunc func(sqe *uring.SQEntry, fd uintptr, iovec []syscall.Iovec, offset uint64, flags uint32)

// ringSyscalls submits readv and writev to an io_uring instance and waits for
// the completion. Submissions never wait for the socket. Every other call goes
// to the embedded table.
type ringSyscalls struct {
	Syscalls

	mu   sync.Mutex
	ring *uring.Ring
}

func newRingSyscalls(base Syscalls, size uint) (Syscalls, io.Closer, error) {
	ring, err := uring.Setup(size, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("io_uring setup: %w", err)
	}
	r := &ringSyscalls{Syscalls: base, ring: ring}
	return r, r, nil
}

func (r *ringSyscalls) Readv(fd int, iov [][]byte) (int, error) {
	return r.submit(fd, iov, uring.Readv)
}

func (r *ringSyscalls) Writev(fd int, iov [][]byte) (int, error) {
	return r.submit(fd, iov, uring.Writev)
}

func (r *ringSyscalls) submit(fd int, iov [][]byte, prep prepFunc) (int, error) {
	vecs := make([]syscall.Iovec, 0, len(iov))
	for _, p := range iov {
		if len(p) == 0 {
			continue
		}
		v := syscall.Iovec{Base: &p[0]}
		v.SetLen(len(p))
		vecs = append(vecs, v)
	}
	if len(vecs) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring == nil {
		return 0, unix.EBADF
	}
	// Sockets have no file position, offset 0 is ignored. The ring does not
	// honor O_NONBLOCK, RWF_NOWAIT turns a would-block into EAGAIN.
	prep(r.ring.GetSQEntry(), uintptr(fd), vecs, 0, unix.RWF_NOWAIT)
	if _, err := r.ring.Submit(1); err != nil {
		return 0, err
	}
	cqe, err := r.ring.GetCQEntry(1)
	runtime.KeepAlive(iov)
	if err != nil {
		return 0, err
	}
	if res := cqe.Result(); res < 0 {
		return 0, unix.Errno(-res)
	}
	return int(cqe.Result()), nil
}

func (r *ringSyscalls) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ring == nil {
		return nil
	}
	err := r.ring.Close()
	r.ring = nil
	return err
}
