//go:build evsocket_assert

package evbuffer

import "fmt"

// assertSinglePeer fails loudly when one buffer is shared between peers.
func assertSinglePeer(old, next *PeerInfo) {
	panic(fmt.Sprintf("evbuffer: peer %s replaced by %s on the same buffer", old, next))
}
