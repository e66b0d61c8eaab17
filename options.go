//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"errors"
	"fmt"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/y001j/evsocket/evbuffer"
)

const (
	// DefaultMaxRead is the byte budget of a receive when the caller passes a
	// negative or oversized one.
	DefaultMaxRead = 4096

	// DefaultReadIOVecs is the number of segments a vectored receive may fill.
	DefaultReadIOVecs = 4

	// DefaultWriteIOVecs is the number of segments a vectored send may drain.
	DefaultWriteIOVecs = 128

	DefaultRingSize = 64
)

// Options configures a Transport. Zero fields take their defaults.
type Options struct {
	// Logger receives diagnostics. Defaults to gnet's default logger.
	Logger logging.Logger

	// Sys issues the OS calls. Defaults to the host system calls.
	Sys Syscalls

	// MaxRead caps a single receive.
	MaxRead int

	ReadIOVecs  int
	WriteIOVecs int

	// UseRing submits vectored reads and writes through an io_uring instance
	// on Linux. It cannot be combined with Sys.
	UseRing  bool
	RingSize uint

	// Buffer is the configuration of buffers made by NewBuffer.
	Buffer evbuffer.Config
}

func (o *Options) normalize() {
	if o.Logger == nil {
		o.Logger = logging.GetDefaultLogger()
	}
	if o.MaxRead == 0 {
		o.MaxRead = DefaultMaxRead
	}
	if o.ReadIOVecs == 0 {
		o.ReadIOVecs = DefaultReadIOVecs
	}
	if o.WriteIOVecs == 0 {
		o.WriteIOVecs = DefaultWriteIOVecs
	}
	o.WriteIOVecs = min(o.WriteIOVecs, iovMax)
	if o.RingSize == 0 {
		o.RingSize = DefaultRingSize
	}
	if o.Buffer.SegmentSize == 0 && o.Buffer.MaxSize == 0 {
		o.Buffer = evbuffer.DefaultConfig()
	}
	if o.Buffer.Logger == nil {
		o.Buffer.Logger = o.Logger
	}
}

// Validate reports every invalid field.
func (o Options) Validate() error {
	var errs []error
	if o.MaxRead < 0 {
		errs = append(errs, fmt.Errorf("invalid options: max read %d is negative", o.MaxRead))
	}
	if o.ReadIOVecs < 0 {
		errs = append(errs, fmt.Errorf("invalid options: read iovecs %d is negative", o.ReadIOVecs))
	}
	if o.WriteIOVecs < 0 {
		errs = append(errs, fmt.Errorf("invalid options: write iovecs %d is negative", o.WriteIOVecs))
	}
	if o.Buffer.SegmentSize != 0 || o.Buffer.MaxSize != 0 {
		if err := o.Buffer.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.UseRing && o.Sys != nil {
		errs = append(errs, errors.New("invalid options: UseRing conflicts with a custom syscall table"))
	}
	return errors.Join(errs...)
}
