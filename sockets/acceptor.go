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

package socket

import (
	"net"

	"golang.org/x/sys/unix"
)

// listenerBacklogMaxSize is the backlog passed to listen.
const listenerBacklogMaxSize = unix.SOMAXCONN

// Accept takes one pending connection from the listening socket fd. The new
// socket is non-blocking and close-on-exec. Errors are the raw errno, so a
// drained backlog is reported as EAGAIN.
func Accept(fd int) (int, net.Addr, error) {
	nfd, sa, err := sysAccept(fd)
	if err != nil {
		return -1, nil, err
	}
	return nfd, SockaddrToTCPOrUnixAddr(sa), nil
}

// Addr returns the local address of the socket fd, interpreted for network.
func Addr(fd int, network NetAddressType) (net.Addr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	if network.IsStream() {
		return SockaddrToTCPOrUnixAddr(sa), nil
	}
	return SockaddrToUDPAddr(sa), nil
}
