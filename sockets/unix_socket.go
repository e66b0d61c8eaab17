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
	"os"

	"golang.org/x/sys/unix"
)

// udsSocket creates a unix stream socket listening on, or connected to, the
// path addr.
func udsSocket(proto, addr string, passive bool, sockOpts ...Option) (fd int, netAddr net.Addr, err error) {
	var unixAddr *net.UnixAddr
	if unixAddr, err = net.ResolveUnixAddr(proto, addr); err != nil {
		return
	}
	netAddr = unixAddr
	sa := &unix.SockaddrUnix{Name: unixAddr.Name}

	if fd, err = sysSocket(unix.AF_UNIX, unix.SOCK_STREAM, 0); err != nil {
		return
	}
	defer func() {
		if err != nil {
			if serr, ok := err.(*os.SyscallError); ok && serr.Err == unix.EINPROGRESS {
				return
			}
			_ = unix.Close(fd)
		}
	}()

	for _, sockOpt := range sockOpts {
		if err = sockOpt.SetSockOpt(fd, sockOpt.Opt); err != nil {
			return
		}
	}

	if passive {
		if err = os.NewSyscallError("bind", unix.Bind(fd, sa)); err != nil {
			return
		}
		err = os.NewSyscallError("listen", unix.Listen(fd, listenerBacklogMaxSize))
	} else {
		err = os.NewSyscallError("connect", unix.Connect(fd, sa))
	}
	return
}
