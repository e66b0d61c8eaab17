package evbuffer

import (
	"errors"
	"os"
)

var ErrNotFileSegment = errors.New("evbuffer: head segment is not a file segment")

// TransferFunc moves at most howmuch bytes between b and the descriptor fd.
// A negative howmuch means no explicit cap. Receive functions report an orderly
// close as (0, nil).
type TransferFunc func(b *Buffer, fd int, howmuch int) (int, error)

// ReadvFunc fills vecs with one OS call and reports the source address when the
// call yields one.
type ReadvFunc func(vecs [][]byte) (n int, from *PeerInfo, err error)

// ReadFunc fills p with one OS call.
type ReadFunc func(p []byte) (n int, from *PeerInfo, err error)

// WritevFunc sends vecs with one OS call. to is the attached peer record.
type WritevFunc func(vecs [][]byte, to *PeerInfo) (int, error)

// WriteFunc sends p with one OS call. to is the attached peer record.
type WriteFunc func(p []byte, to *PeerInfo) (int, error)

// SendfileFunc sends count bytes of f starting at offset.
type SendfileFunc func(f *os.File, offset int64, count int) (int, error)

// SetTransferFuncs replaces the read and write hooks. A nil argument keeps the
// current hook for that direction.
func (b *Buffer) SetTransferFuncs(read, write TransferFunc) {
	b.mu.Lock()
	if read != nil {
		b.readFn = read
	}
	if write != nil {
		b.writeFn = write
	}
	b.mu.Unlock()
}

// TransferFuncs returns the current read and write hooks.
func (b *Buffer) TransferFuncs() (read, write TransferFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readFn, b.writeFn
}

// FillFrom reads from fd through the read hook.
func (b *Buffer) FillFrom(fd int, howmuch int) (int, error) {
	read, _ := b.TransferFuncs()
	if read == nil {
		return 0, ErrNoTransferFunc
	}
	return read(b, fd, howmuch)
}

// FlushTo writes to fd through the write hook and drains what the OS accepted.
func (b *Buffer) FlushTo(fd int, howmuch int) (int, error) {
	_, write := b.TransferFuncs()
	if write == nil {
		return 0, ErrNoTransferFunc
	}
	n, err := write(b, fd, howmuch)
	if n > 0 {
		if derr := b.Drain(n); derr != nil && err == nil {
			err = derr
		}
	}
	return n, err
}

// ReadVecs expands the buffer so that up to nvecs segments can take howmuch
// bytes, hands their free space to fn and attributes the bytes fn reports to
// those segments in order. A source address returned by fn is attached to the
// buffer. Nothing changes when fn fails or reads nothing.
func (b *Buffer) ReadVecs(howmuch, nvecs int, fn ReadvFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	if err := b.expandFast(howmuch, nvecs); err != nil {
		return 0, err
	}
	vecs, start := b.readSetupVecs(howmuch, nvecs)

	n, from, err := fn(vecs)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	b.commitRead(start, len(vecs), n)
	if from != nil {
		b.setPeer(from)
	}
	return n, nil
}

// ReadSingle makes room for howmuch contiguous bytes after the unread data and
// hands that window to fn.
func (b *Buffer) ReadSingle(howmuch int, fn ReadFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, ErrClosed
	}
	s, err := b.expandSingle(howmuch)
	if err != nil {
		return 0, err
	}

	n, from, err := fn(s.tail()[:howmuch])
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	b.commitSingle(s, n)
	if from != nil {
		b.setPeer(from)
	}
	return n, nil
}

// WriteVecs hands fn up to nvecs windows over the unread bytes, covering at most
// howmuch bytes. The walk stops before the first file segment; if the head
// itself is a file segment fn is not called and ErrFileSegment is returned.
// Nothing is drained.
func (b *Buffer) WriteVecs(howmuch, nvecs int, fn WritevFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vecs := make([][]byte, 0, min(nvecs, 16))
	for s := b.first; s != nil && len(vecs) < nvecs && howmuch > 0; s = s.next {
		if s.off == 0 {
			continue
		}
		if s.isFile() {
			if len(vecs) == 0 {
				return 0, ErrFileSegment
			}
			break
		}
		d := s.data()
		if len(d) > howmuch {
			d = d[:howmuch]
		}
		vecs = append(vecs, d)
		howmuch -= len(d)
	}
	return fn(vecs, b.peer)
}

// WriteLinear pulls up howmuch bytes and hands them to fn as one slice. A
// negative or oversized howmuch means every unread byte. fn is not called when
// the buffer is empty.
func (b *Buffer) WriteLinear(howmuch int, fn WriteFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if howmuch < 0 || howmuch > b.totalLen {
		howmuch = b.totalLen
	}
	if howmuch == 0 {
		return 0, nil
	}
	p, err := b.pullup(howmuch)
	if err != nil {
		return 0, err
	}
	return fn(p, b.peer)
}

// WriteFile hands the head file segment to fn, limited to howmuch bytes when
// howmuch is not negative.
func (b *Buffer) WriteFile(howmuch int, fn SendfileFunc) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.head()
	if s == nil || !s.isFile() {
		return 0, ErrNotFileSegment
	}
	count := s.off
	if howmuch >= 0 && howmuch < count {
		count = howmuch
	}
	return fn(s.file, int64(s.misalign), count)
}
