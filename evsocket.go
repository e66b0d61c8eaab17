//go:build linux || freebsd || dragonfly || darwin || netbsd

// Package evsocket moves bytes between evbuffer chains and socket descriptors.
//
// A Transport offers one primitive per OS transfer call: vectored reads and
// writes, zero-copy sendfile of file segments, single-segment read/write and
// recv/send, and the addressed datagram calls recvmsg, sendmsg and recvfrom.
// Each primitive performs at most one OS call and never retries or blocks:
// a retriable failure is returned to the caller, who waits for readiness.
//
// Every primitive returns (n, err). err is nil on success and carries the raw
// errno otherwise. A receive returning (0, nil) means the peer closed the
// stream.
package evsocket

import (
	"fmt"
	"io"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/y001j/evsocket/evbuffer"
)

// Transport performs socket transfers on buffers.
type Transport struct {
	logger logging.Logger
	sys    Syscalls
	opts   Options
	caps   Capabilities
	ring   io.Closer
}

// New creates a Transport. With UseRing set, a failure to set up the ring is
// logged and the Transport falls back to plain system calls.
func New(opts Options) (*Transport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.normalize()

	t := &Transport{
		logger: opts.Logger,
		sys:    opts.Sys,
		opts:   opts,
		caps:   DetectCapabilities(),
	}
	if t.sys == nil {
		t.sys = hostSyscalls{}
	}
	t.caps.Ring = false
	if opts.UseRing {
		sys, ring, err := newRingSyscalls(t.sys, opts.RingSize)
		if err != nil {
			t.logger.Warnf("evsocket: io_uring unavailable, using plain syscalls: %v", err)
		} else {
			t.sys, t.ring = sys, ring
			t.caps.Ring = true
		}
	}
	t.logger.Debugf("evsocket: transport ready (%s)", t.caps)
	return t, nil
}

// Capabilities reports the transfer paths this Transport uses.
func (t *Transport) Capabilities() Capabilities {
	return t.caps
}

// Close releases the io_uring instance, if any.
func (t *Transport) Close() error {
	if t.ring == nil {
		return nil
	}
	err := t.ring.Close()
	t.ring = nil
	if err != nil {
		return fmt.Errorf("evsocket: close ring: %w", err)
	}
	return nil
}

// NewBuffer returns an empty buffer whose transfer hooks are the linear Read
// and Write primitives of t.
func (t *Transport) NewBuffer() *evbuffer.Buffer {
	b := evbuffer.New(t.opts.Buffer)
	Bind(b, LinearStrategy{T: t})
	return b
}

// clampRead maps a negative or oversized receive budget to MaxRead.
func (t *Transport) clampRead(howmuch int) int {
	if howmuch < 0 || howmuch > t.opts.MaxRead {
		return t.opts.MaxRead
	}
	return howmuch
}
