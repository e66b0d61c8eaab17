//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"os"
	"runtime"

	"github.com/y001j/evsocket/evbuffer"
)

// Sendfile transmits the file segment at the head of b to fd with one
// sendfile call, limited to howmuch bytes when howmuch is not negative. Only
// the head segment is sent and nothing is drained.
//
// A retriable failure is not reported as an error: on Linux it yields (0, nil),
// on the BSDs the count the kernel reports as already written.
func (t *Transport) Sendfile(b *evbuffer.Buffer, fd int, howmuch int) (int, error) {
	if !t.caps.Sendfile {
		return 0, ErrUnsupportedPlatform
	}
	return b.WriteFile(howmuch, func(f *os.File, offset int64, count int) (int, error) {
		n, err := t.sys.Sendfile(fd, int(f.Fd()), &offset, count)
		runtime.KeepAlive(f)
		return sendfileResult(n, err)
	})
}
