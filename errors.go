//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"errors"
	"fmt"

	gerrors "github.com/panjf2000/gnet/v2/pkg/errors"

	"github.com/y001j/evsocket/evbuffer"
)

var (
	// ErrQuery is wrapped by the error SocketType returns when the socket
	// type cannot be read.
	ErrQuery = errors.New("evsocket: socket type query failed")

	ErrNegativeBudget = errors.New("evsocket: negative byte budget")

	// ErrNoPeerAddress is returned by Sendmsg when no peer record is attached
	// to the buffer.
	ErrNoPeerAddress = errors.New("evsocket: no peer address attached")

	ErrNotFileSegment = evbuffer.ErrNotFileSegment

	ErrSendtoUnsupported = fmt.Errorf("evsocket: sendto: %w", gerrors.ErrUnsupportedOp)

	// ErrUnsupportedPlatform is returned for zero-copy or io_uring transfer on
	// a platform that lacks it.
	ErrUnsupportedPlatform = fmt.Errorf("evsocket: unsupported platform: %w", gerrors.ErrUnsupportedOp)
)
