package evbuffer

import (
	"errors"
	"fmt"

	"github.com/panjf2000/gnet/v2/pkg/logging"
)

const (
	KiB = 1024
	MiB = KiB * KiB

	// MinSegmentSize is the smallest memory segment the buffer allocates.
	MinSegmentSize = 1 * KiB

	// DefaultMaxSize caps the number of unread bytes a buffer may hold.
	DefaultMaxSize = 64 * MiB
)

// Config sizes the segments of a Buffer and bounds its unread bytes.
type Config struct {
	// SegmentSize is the minimum capacity of a newly allocated segment.
	// Segments requested for larger payloads are rounded up to a power of two.
	SegmentSize int

	// MaxSize is the upper bound on unread bytes, 0 disables the check.
	// Expansion past it fails with ErrBufferFull before any I/O happens.
	MaxSize int

	// Logger receives buffer diagnostics. Defaults to gnet's default logger.
	Logger logging.Logger

	// PeerReplaced, when set, is called with the buffer lock held each time a
	// peer record for a different address overwrites the attached one.
	// A buffer serves one logical peer-stream at a time, tests use this to catch
	// misuse.
	PeerReplaced func(old, next *PeerInfo)
}

// Validate reports every invalid field of c.
func (c Config) Validate() error {
	var errs []error
	if c.SegmentSize < MinSegmentSize {
		errs = append(errs, fmt.Errorf("invalid config: segment size %d is below minimum %d", c.SegmentSize, MinSegmentSize))
	}
	if c.MaxSize < 0 {
		errs = append(errs, errors.New("invalid config: max size must not be negative"))
	}
	if c.MaxSize > 0 && c.MaxSize < c.SegmentSize {
		errs = append(errs, fmt.Errorf("invalid config: max size %d is smaller than segment size %d", c.MaxSize, c.SegmentSize))
	}
	return errors.Join(errs...)
}

// DefaultConfig returns a Config with minimum-size segments, a 64 MiB limit
// and gnet's default logger.
func DefaultConfig() Config {
	return Config{
		SegmentSize: MinSegmentSize,
		MaxSize:     DefaultMaxSize,
		Logger:      logging.GetDefaultLogger(),
	}
}
