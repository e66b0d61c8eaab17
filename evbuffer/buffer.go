// Package evbuffer implements a chained, growable byte queue whose segments can
// be handed to vectored and zero-copy socket calls without copying.
//
// A Buffer is a singly linked chain of segments. Bytes are appended at the tail
// and consumed from the head; consumed bytes are skipped by advancing the
// segment's read offset rather than moved. Every mutation happens with the
// buffer's mutex held, including the ones performed by the transfer entry points
// (ReadVecs, ReadSingle, WriteVecs, WriteLinear, WriteFile) which call back into
// an OS operation while the lock is held.
package evbuffer

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/panjf2000/gnet/v2/pkg/logging"
)

var (
	ErrBufferFull     = errors.New("evbuffer: buffer size limit exceeded")
	ErrFileSegment    = errors.New("evbuffer: operation would span a file segment")
	ErrShortBuffer    = errors.New("evbuffer: not enough data in buffer")
	ErrNoTransferFunc = errors.New("evbuffer: no transfer function set")
	ErrClosed         = errors.New("evbuffer: buffer is closed")
)

// Stats are the add and drain counters since the last ResetStats.
type Stats struct {
	Added   int
	Drained int
}

// Buffer is a chained byte queue. The zero value is not usable, use New.
type Buffer struct {
	mu     sync.Mutex
	cfg    Config
	logger logging.Logger

	first *segment
	last  *segment

	// lastWithData is the last segment holding unread bytes, or the first
	// segment when the buffer is empty. Segments after it are empty.
	lastWithData *segment

	totalLen  int
	nAddForCB int
	nDelForCB int

	peer    *PeerInfo
	readFn  TransferFunc
	writeFn TransferFunc
	closed  bool
}

// New creates an empty Buffer. It panics if config is invalid.
func New(config Config) *Buffer {
	if err := config.Validate(); err != nil {
		panic(err)
	}
	if config.Logger == nil {
		config.Logger = logging.GetDefaultLogger()
	}
	return &Buffer{cfg: config, logger: config.Logger}
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalLen
}

// Stats returns the add and drain counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Added: b.nAddForCB, Drained: b.nDelForCB}
}

// ResetStats zeroes the add and drain counters.
func (b *Buffer) ResetStats() {
	b.mu.Lock()
	b.nAddForCB, b.nDelForCB = 0, 0
	b.mu.Unlock()
}

// Segments returns the number of segments in the chain, empty ones included.
func (b *Buffer) Segments() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for s := b.first; s != nil; s = s.next {
		n++
	}
	return n
}

// HeadIsFile reports whether the next bytes to be consumed live in a file segment.
func (b *Buffer) HeadIsFile() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.head()
	return s != nil && s.isFile()
}

// Add appends a copy of p.
func (b *Buffer) Add(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if len(p) == 0 {
		return nil
	}
	if err := b.checkSize(len(p)); err != nil {
		return err
	}

	remaining := p
	s := b.lastWithData
	if s != nil && s.space() == 0 {
		s = s.next
	}
	for len(remaining) > 0 {
		if s == nil {
			s = b.newSegment(len(remaining))
			b.append(s)
		}
		n := copy(s.tail(), remaining)
		if n > 0 {
			s.off += n
			b.lastWithData = s
		}
		remaining = remaining[n:]
		s = s.next
	}
	b.totalLen += len(p)
	b.nAddForCB += len(p)
	return nil
}

// AddFile appends length bytes of f starting at offset as a file segment.
// The buffer takes ownership of f and closes it once the segment is drained.
func (b *Buffer) AddFile(f *os.File, offset int64, length int) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("evbuffer: invalid file range offset=%d length=%d", offset, length)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if err := b.checkSize(length); err != nil {
		return err
	}
	b.dropEmptyTail()
	s := newFileSegment(f, offset, length)
	b.append(s)
	b.lastWithData = s
	b.totalLen += length
	b.nAddForCB += length
	return nil
}

// Drain removes n bytes from the front of the buffer. Draining more than Len
// empties the buffer.
func (b *Buffer) Drain(n int) error {
	if n < 0 {
		return fmt.Errorf("evbuffer: negative drain length %d", n)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain(n)
	return nil
}

// Remove copies up to len(p) bytes out of the buffer and drains them.
func (b *Buffer) Remove(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.copyOut(p)
	if err != nil {
		return 0, err
	}
	b.drain(n)
	return n, nil
}

// Peek copies up to len(p) bytes without draining them.
func (b *Buffer) Peek(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyOut(p)
}

// Pullup linearizes the first size bytes and returns them. A negative size
// means the whole buffer. The returned slice aliases buffer memory and is only
// valid until the next mutation.
func (b *Buffer) Pullup(size int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pullup(size)
}

// MoveTo appends every unread memory byte to dst and drains b, carrying the
// attached peer record along. It stops at the first file segment.
func (b *Buffer) MoveTo(dst *Buffer) (int, error) {
	if dst == b {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	moved := 0
	for s := b.head(); s != nil && !s.isFile() && s.off > 0; s = b.head() {
		n := s.off
		if err := dst.Add(s.data()); err != nil {
			return moved, err
		}
		b.drain(n)
		moved += n
	}
	if b.peer != nil {
		dst.SetPeer(b.peer.Clone())
	}
	return moved, nil
}

// Reset drops all data and releases every segment. Hooks and the peer record
// are kept.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drain(b.totalLen)
	b.freeChain(b.first)
	b.first, b.last, b.lastWithData = nil, nil, nil
}

// Close releases every segment and the peer record. Further appends fail.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.freeChain(b.first)
	b.first, b.last, b.lastWithData = nil, nil, nil
	b.totalLen = 0
	b.peer = nil
	b.closed = true
	return err
}

// head returns the first segment with unread bytes, or nil.
func (b *Buffer) head() *segment {
	for s := b.first; s != nil; s = s.next {
		if s.off > 0 {
			return s
		}
		if s == b.lastWithData {
			break
		}
	}
	return nil
}

func (b *Buffer) newSegment(size int) *segment {
	return newSegment(max(size, b.cfg.SegmentSize))
}

func (b *Buffer) append(s *segment) {
	if b.first == nil {
		b.first, b.last = s, s
		return
	}
	b.last.next = s
	b.last = s
}

func (b *Buffer) checkSize(n int) error {
	if b.cfg.MaxSize > 0 && b.totalLen+n > b.cfg.MaxSize {
		return ErrBufferFull
	}
	return nil
}

// dropEmptyTail frees the empty segments after lastWithData.
func (b *Buffer) dropEmptyTail() {
	if b.lastWithData == nil {
		b.freeChain(b.first)
		b.first, b.last = nil, nil
		return
	}
	if b.lastWithData.off == 0 && b.lastWithData == b.first && !b.lastWithData.isFile() {
		b.freeChain(b.first)
		b.first, b.last, b.lastWithData = nil, nil, nil
		return
	}
	b.freeChain(b.lastWithData.next)
	b.lastWithData.next = nil
	b.last = b.lastWithData
}

// drain removes n bytes from the front. Callers hold the lock.
func (b *Buffer) drain(n int) {
	if n > b.totalLen {
		n = b.totalLen
	}
	if n == 0 {
		return
	}
	b.totalLen -= n
	b.nDelForCB += n

	for n > 0 && b.first != nil {
		s := b.first
		if s.off > n {
			s.misalign += n
			s.off -= n
			break
		}
		n -= s.off
		if s == b.lastWithData {
			// Keep a reusable tail when the last data segment empties out.
			if s.isFile() {
				b.first = s.next
				b.releaseSegment(s)
				b.lastWithData = b.first
				if b.first == nil {
					b.last = nil
				}
			} else {
				s.misalign, s.off = 0, 0
			}
			break
		}
		b.first = s.next
		b.releaseSegment(s)
	}
	if b.totalLen == 0 && b.first != nil && b.first.off == 0 {
		b.lastWithData = b.first
	}
}

func (b *Buffer) releaseSegment(s *segment) {
	if err := s.release(); err != nil {
		b.logger.Warnf("evbuffer: releasing segment: %v", err)
	}
}

func (b *Buffer) freeChain(s *segment) error {
	var errs []error
	for s != nil {
		next := s.next
		if err := s.release(); err != nil {
			errs = append(errs, err)
		}
		s = next
	}
	return errors.Join(errs...)
}

func (b *Buffer) copyOut(p []byte) (int, error) {
	n := 0
	for s := b.first; s != nil && n < len(p); s = s.next {
		if s.off == 0 {
			continue
		}
		if s.isFile() {
			if n == 0 {
				return 0, ErrFileSegment
			}
			break
		}
		n += copy(p[n:], s.data())
	}
	return n, nil
}

func (b *Buffer) pullup(size int) ([]byte, error) {
	if size < 0 {
		size = b.totalLen
	}
	if size > b.totalLen {
		return nil, ErrShortBuffer
	}
	if size == 0 {
		return nil, nil
	}
	first := b.head()
	if first.isFile() {
		return nil, ErrFileSegment
	}
	if first.off >= size {
		return first.data()[:size], nil
	}

	// Make sure the range holds no file segment before touching the chain.
	need := size
	for s := first; need > 0; s = s.next {
		if s.isFile() {
			return nil, ErrFileSegment
		}
		need -= s.off
	}

	var dst *segment
	if len(first.buf)-first.misalign >= size {
		dst = first
	} else if len(first.buf) >= size {
		copy(first.buf, first.data())
		first.misalign = 0
		dst = first
	} else {
		dst = b.newSegment(size)
		dst.off = copy(dst.buf, first.data())
		dst.next = first.next
		if b.lastWithData == first {
			b.lastWithData = dst
		}
		if b.last == first {
			b.last = dst
		}
		b.first = dst
		b.releaseSegment(first)
	}

	// Pull bytes forward from the following segments into dst.
	for dst.off < size {
		s := dst.next
		n := copy(dst.buf[dst.misalign+dst.off:dst.misalign+size], s.data())
		dst.off += n
		if n < s.off {
			s.misalign += n
			s.off -= n
			break
		}
		dst.next = s.next
		if b.lastWithData == s {
			b.lastWithData = dst
		}
		if b.last == s {
			b.last = dst
		}
		b.releaseSegment(s)
	}
	return dst.data()[:size], nil
}
