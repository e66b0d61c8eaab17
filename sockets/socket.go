// Copyright (c) 2022 Rocky Yang
// Copyright (c) 2020 Andy Pan
// Copyright (c) 2017 Max Riveiro
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || freebsd || dragonfly || darwin || netbsd

// Package socket provides functions that return fd and net.Addr based on
// given the protocol and address, with the requested socket options applied
// before the socket is bound or connected. Every socket is created
// non-blocking and close-on-exec.
package socket

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

type NetAddressType string

const (
	Tcp  NetAddressType = "tcp"
	Tcp4 NetAddressType = "tcp4"
	Tcp6 NetAddressType = "tcp6"
	Udp  NetAddressType = "udp"
	Udp4 NetAddressType = "udp4"
	Udp6 NetAddressType = "udp6"
	Unix NetAddressType = "unix"
)

// IsStream reports whether the network carries a byte stream.
func (t NetAddressType) IsStream() bool {
	return strings.HasPrefix(string(t), "tcp") || t == Unix
}

// Option is used for setting an option on socket.
type Option struct {
	SetSockOpt func(int, int) error
	Opt        int
}

// TCPSocket calls the internal tcpSocket.
func TCPSocket(proto, addr string, passive bool, sockOpts ...Option) (int, net.Addr, error) {
	return tcpSocket(proto, addr, passive, sockOpts...)
}

// UDPSocket calls the internal udpSocket.
func UDPSocket(proto, addr string, connect bool, sockOpts ...Option) (int, net.Addr, error) {
	return udpSocket(proto, addr, connect, sockOpts...)
}

// UnixSocket calls the internal udsSocket.
func UnixSocket(proto, addr string, passive bool, sockOpts ...Option) (int, net.Addr, error) {
	return udsSocket(proto, addr, passive, sockOpts...)
}

// Listen creates a listening socket for a stream network or a bound socket for
// a datagram network, with options applied.
func Listen(network NetAddressType, addr string, options SocketOptions) (int, net.Addr, error) {
	if err := options.Validate(); err != nil {
		return -1, nil, err
	}
	opts := SetOptions(string(network), options)
	switch network {
	case Tcp, Tcp4, Tcp6:
		return TCPSocket(string(network), addr, true, opts...)
	case Udp, Udp4, Udp6:
		return UDPSocket(string(network), addr, false, opts...)
	case Unix:
		return UnixSocket(string(network), addr, true, opts...)
	}
	return -1, nil, fmt.Errorf("socket: unsupported network %q", network)
}

// TCPSocketOpt is the type of TCP socket options.
type TCPSocketOpt int

// Available TCP socket options.
const (
	TCPNoDelay TCPSocketOpt = iota
	TCPDelay
)

// SocketOptions are configurations for sockets creation.
type SocketOptions struct {
	// ReuseAddr indicates whether to set up the SO_REUSEADDR socket option.
	ReuseAddr bool

	// ReusePort indicates whether to set up the SO_REUSEPORT socket option.
	ReusePort bool

	// TCPKeepAlive enables SO_KEEPALIVE and sets the period between keep-alive
	// probes when it is positive.
	TCPKeepAlive time.Duration

	// TCPNoDelay controls whether the operating system should delay
	// packet transmission in hopes of sending fewer packets (Nagle's algorithm).
	//
	// The default is true (no delay), meaning that data is sent
	// as soon as possible after a write operation.
	TCPNoDelay TCPSocketOpt

	// Linger sets SO_LINGER on stream sockets when it is positive. It is
	// rounded down to whole seconds.
	Linger time.Duration

	// SocketRecvBuffer sets the maximum socket receive buffer in bytes.
	SocketRecvBuffer int

	// SocketSendBuffer sets the maximum socket send buffer in bytes.
	SocketSendBuffer int
}

func (o SocketOptions) Validate() error {
	var errs []error
	if o.TCPKeepAlive < 0 {
		errs = append(errs, errors.New("invalid socket options: negative keep-alive period"))
	}
	if o.Linger < 0 {
		errs = append(errs, errors.New("invalid socket options: negative linger"))
	}
	if o.SocketRecvBuffer < 0 || o.SocketSendBuffer < 0 {
		errs = append(errs, errors.New("invalid socket options: negative socket buffer size"))
	}
	return errors.Join(errs...)
}

func SetOptions(network string, options SocketOptions) []Option {
	var sockOpts []Option
	if options.ReusePort || strings.HasPrefix(network, "udp") {
		sockOpt := Option{SetSockOpt: SetReuseport, Opt: 1}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.ReuseAddr {
		sockOpt := Option{SetSockOpt: SetReuseAddr, Opt: 1}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.TCPNoDelay == TCPNoDelay && strings.HasPrefix(network, "tcp") {
		sockOpt := Option{SetSockOpt: SetNoDelay, Opt: 1}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.TCPKeepAlive > 0 && strings.HasPrefix(network, "tcp") {
		sockOpt := Option{SetSockOpt: SetKeepAlivePeriod, Opt: int(options.TCPKeepAlive / time.Second)}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.Linger > 0 && NetAddressType(network).IsStream() {
		sockOpt := Option{SetSockOpt: SetLinger, Opt: int(options.Linger / time.Second)}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.SocketRecvBuffer > 0 {
		sockOpt := Option{SetSockOpt: SetRecvBuffer, Opt: options.SocketRecvBuffer}
		sockOpts = append(sockOpts, sockOpt)
	}
	if options.SocketSendBuffer > 0 {
		sockOpt := Option{SetSockOpt: SetSendBuffer, Opt: options.SocketSendBuffer}
		sockOpts = append(sockOpts, sockOpt)
	}
	return sockOpts
}
