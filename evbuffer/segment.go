package evbuffer

import (
	"math/bits"
	"os"

	"github.com/bytedance/gopkg/lang/mcache"
)

// mallocMax bounds segments served from mcache; bigger ones come from the heap.
const mallocMax = 8 * MiB

// segment holds the byte range [misalign, misalign+off) of buf as valid data.
// A file segment keeps the same bookkeeping against a file: misalign is the
// file offset and off the number of bytes left to send.
type segment struct {
	buf      []byte
	misalign int
	off      int
	file     *os.File
	next     *segment
}

func newSegment(size int) *segment {
	return &segment{buf: malloc(roundSegmentSize(size))}
}

func newFileSegment(f *os.File, offset int64, length int) *segment {
	return &segment{file: f, misalign: int(offset), off: length}
}

func (s *segment) isFile() bool {
	return s.file != nil
}

// space is the free room after the valid data. File segments never have any.
func (s *segment) space() int {
	if s.isFile() {
		return 0
	}
	return len(s.buf) - s.misalign - s.off
}

// data returns the valid window of a memory segment.
func (s *segment) data() []byte {
	return s.buf[s.misalign : s.misalign+s.off]
}

// tail returns the free window of a memory segment.
func (s *segment) tail() []byte {
	return s.buf[s.misalign+s.off:]
}

// release returns memory to the allocator or closes the backing file.
func (s *segment) release() error {
	if s.isFile() {
		f := s.file
		s.file = nil
		return f.Close()
	}
	free(s.buf)
	s.buf = nil
	return nil
}

func roundSegmentSize(n int) int {
	if n <= MinSegmentSize {
		return MinSegmentSize
	}
	return 1 << bits.Len(uint(n-1))
}

func malloc(size int) []byte {
	if size > mallocMax {
		return make([]byte, size)
	}
	return mcache.Malloc(size)
}

func free(buf []byte) {
	if cap(buf) > mallocMax {
		return
	}
	mcache.Free(buf)
}
