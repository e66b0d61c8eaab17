//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

// Action is an action that occurs after the completion of an event.
type Action int

const (
	// None indicates that no action should occur following an event.
	None Action = iota

	// Echo moves the inbound bytes, and the sender address for datagrams, to
	// the outbound buffer and flushes it.
	Echo

	// Close closes the connection.
	Close

	// Shutdown shuts the loop down.
	Shutdown
)

func (a Action) String() string {
	switch a {
	case None:
		return "none"
	case Echo:
		return "echo"
	case Close:
		return "close"
	case Shutdown:
		return "shutdown"
	}
	return "unknown"
}

type (
	// EventHandler represents the loop events' callbacks for the Run call.
	// Each event has an Action return value that is used manage the state
	// of the connection and loop.
	EventHandler interface {
		// OnBoot fires when the loop is ready for accepting connections.
		OnBoot(l *Loop) (action Action)

		// OnShutdown fires when the loop is being shut down, it is called right
		// after all connections are closed.
		OnShutdown(l *Loop)

		// OnOpen fires when a new connection has been opened. For a datagram
		// socket it fires once, for the bound socket itself.
		OnOpen(c *Conn) (action Action)

		// OnClose fires when a connection has been closed.
		// The parameter err is the last known connection error.
		OnClose(c *Conn, err error) (action Action)

		// OnTraffic fires when bytes have been received into c.Inbound().
		OnTraffic(c *Conn) (action Action)
	}

	// BuiltinEventEngine is a built-in implementation of EventHandler which sets up each method with a default implementation,
	// you can compose it with your own implementation of EventHandler when you don't want to implement all methods
	// in EventHandler.
	BuiltinEventEngine struct{}
)

// OnBoot fires when the loop is ready for accepting connections.
func (es *BuiltinEventEngine) OnBoot(_ *Loop) (action Action) {
	return
}

// OnShutdown fires when the loop is being shut down.
func (es *BuiltinEventEngine) OnShutdown(_ *Loop) {
}

// OnOpen fires when a new connection has been opened.
func (es *BuiltinEventEngine) OnOpen(_ *Conn) (action Action) {
	return
}

// OnClose fires when a connection has been closed.
// The parameter err is the last known connection error.
func (es *BuiltinEventEngine) OnClose(_ *Conn, _ error) (action Action) {
	return
}

// OnTraffic fires when a socket receives data from the peer.
func (es *BuiltinEventEngine) OnTraffic(_ *Conn) (action Action) {
	return
}
