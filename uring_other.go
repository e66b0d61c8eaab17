//go:build freebsd || dragonfly || darwin || netbsd

package evsocket

import "io"

const ringSupported = false

func newRingSyscalls(Syscalls, uint) (Syscalls, io.Closer, error) {
	return nil, nil, ErrUnsupportedPlatform
}
