// Command evecho echoes every datagram, or every stream chunk, back to its
// sender through an evsocket loop.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/gnet/v2/pkg/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/y001j/evsocket"
	socket "github.com/y001j/evsocket/sockets"
)

type echoServer struct {
	evsocket.BuiltinEventEngine

	logger logging.Logger
}

func (es *echoServer) OnBoot(l *evsocket.Loop) evsocket.Action {
	es.logger.Infof("evecho: serving (%s)", l.Transport().Capabilities())
	return evsocket.None
}

func (es *echoServer) OnOpen(c *evsocket.Conn) evsocket.Action {
	es.logger.Debugf("evecho: open %v <- %v", c.LocalAddr(), c.RemoteAddr())
	return evsocket.None
}

func (es *echoServer) OnTraffic(c *evsocket.Conn) evsocket.Action {
	es.logger.Debugf("evecho: %d bytes from %v", c.Inbound().Len(), c.RemoteAddr())
	return evsocket.Echo
}

func (es *echoServer) OnClose(c *evsocket.Conn, err error) evsocket.Action {
	if err != nil {
		es.logger.Warnf("evecho: fd %d closed: %v", c.Fd(), err)
	}
	return evsocket.None
}

func newLogger(path, level string) (logging.Logger, func() error, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if path != "" {
		return logging.CreateLoggerAsLocalFile(path, lvl)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return zl.Sugar(), zl.Sync, nil
}

func run() error {
	var (
		network = flag.String("network", "udp", "udp or tcp")
		addr    = flag.String("addr", "0.0.0.0:1234", "address to listen on")
		useRing = flag.Bool("ring", false, "submit vectored I/O through io_uring (Linux)")
		logPath = flag.String("log", "", "log file, stderr when empty")
		level   = flag.String("level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	logger, flush, err := newLogger(*logPath, *level)
	if err != nil {
		return err
	}
	defer func() { _ = flush() }()

	opts := socket.SocketOptions{ReuseAddr: true, ReusePort: true}
	if socket.NetAddressType(*network).IsStream() {
		opts.TCPKeepAlive = time.Minute
		opts.Linger = 5 * time.Second
	}
	fd, bound, err := socket.Listen(socket.NetAddressType(*network), *addr, opts)
	if err != nil {
		return fmt.Errorf("listen %s %s: %w", *network, *addr, err)
	}

	t, err := evsocket.New(evsocket.Options{Logger: logger, UseRing: *useRing})
	if err != nil {
		return err
	}
	defer t.Close()

	loop, err := evsocket.NewLoop(t, fd, &echoServer{logger: logger})
	if err != nil {
		_ = syscall.Close(fd)
		return err
	}
	logger.Infof("evecho: listening on %s %v", *network, bound)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		if err := loop.Stop(); err != nil {
			logger.Errorf("evecho: stop: %v", err)
		}
	}()
	return loop.Run()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "evecho:", err)
		os.Exit(1)
	}
}
