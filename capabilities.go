//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import "fmt"

// iovMax is the descriptor count limit shared by every supported platform.
const iovMax = 1024

// Capabilities lists the transfer paths available on this host.
type Capabilities struct {
	Vectored bool
	Sendfile bool
	Ring     bool
	IOVMax   int
}

// DetectCapabilities reports what the platform supports. Ring means the
// io_uring path is compiled in; whether a ring could actually be set up is
// known only once a Transport asked for one.
func DetectCapabilities() Capabilities {
	return Capabilities{
		Vectored: true,
		Sendfile: sendfileSupported,
		Ring:     ringSupported,
		IOVMax:   iovMax,
	}
}

func (c Capabilities) String() string {
	return fmt.Sprintf("vectored=%t sendfile=%t ring=%t iovmax=%d", c.Vectored, c.Sendfile, c.Ring, c.IOVMax)
}
