//go:build linux || freebsd || dragonfly || darwin || netbsd

package evsocket

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	gerrors "github.com/panjf2000/gnet/v2/pkg/errors"
	"github.com/panjf2000/gnet/v2/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"github.com/y001j/evsocket/evbuffer"
	"github.com/y001j/evsocket/internal/testutils"
)

const testFD = 7

func observedLogger(level zapcore.Level) (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core).Sugar(), logs
}

func newFakeTransport(t *testing.T, opts Options) (*Transport, *testutils.FakeSyscalls) {
	t.Helper()
	fake := &testutils.FakeSyscalls{}
	opts.Sys = fake
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	tr, err := New(opts)
	require.NoError(t, err)
	return tr, fake
}

// addSegments appends full segments, one per chunk.
func addSegments(t *testing.T, b *evbuffer.Buffer, chunks ...[]byte) {
	t.Helper()
	for _, c := range chunks {
		require.Len(t, c, evbuffer.MinSegmentSize)
		require.NoError(t, b.Add(c))
	}
	require.Equal(t, len(chunks), b.Segments())
}

func kib(fill byte) []byte {
	p := make([]byte, evbuffer.MinSegmentSize)
	for i := range p {
		p[i] = fill + byte(i%7)
	}
	return p
}

func contents(t *testing.T, b *evbuffer.Buffer) []byte {
	t.Helper()
	p := make([]byte, b.Len())
	n, err := b.Peek(p)
	require.NoError(t, err)
	return p[:n]
}

func tempFile(t *testing.T, data []byte) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	return f
}

func TestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		tr, _ := newFakeTransport(t, Options{})
		assert.Equal(t, DefaultMaxRead, tr.opts.MaxRead)
		assert.Equal(t, DefaultReadIOVecs, tr.opts.ReadIOVecs)
		assert.Equal(t, DefaultWriteIOVecs, tr.opts.WriteIOVecs)
		assert.Equal(t, evbuffer.MinSegmentSize, tr.opts.Buffer.SegmentSize)
		assert.False(t, tr.Capabilities().Ring)
	})

	t.Run("write iovecs clamped", func(t *testing.T) {
		tr, _ := newFakeTransport(t, Options{WriteIOVecs: 5000})
		assert.Equal(t, iovMax, tr.opts.WriteIOVecs)
	})

	t.Run("invalid", func(t *testing.T) {
		err := Options{MaxRead: -1, ReadIOVecs: -2, UseRing: true, Sys: &testutils.FakeSyscalls{}}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max read")
		assert.Contains(t, err.Error(), "read iovecs")
		assert.Contains(t, err.Error(), "UseRing")

		_, err = New(Options{Buffer: evbuffer.Config{SegmentSize: 10}})
		assert.ErrorContains(t, err, "segment size")
	})
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities()
	assert.True(t, caps.Vectored)
	assert.Equal(t, iovMax, caps.IOVMax)
	if runtime.GOOS == "linux" {
		assert.True(t, caps.Sendfile)
		assert.True(t, caps.Ring)
	}
	assert.Contains(t, caps.String(), "iovmax=1024")
}

func TestSocketType(t *testing.T) {
	t.Run("reported", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SockType = unix.SOCK_DGRAM
		typ, err := tr.SocketType(testFD)
		require.NoError(t, err)
		assert.Equal(t, TypeDatagram, typ)
		assert.Equal(t, "datagram", typ.String())
	})

	t.Run("query failure", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.WarnLevel)
		tr, fake := newFakeTransport(t, Options{Logger: logger})
		fake.SockTypeErr = unix.EBADF

		typ, err := tr.SocketType(testFD)
		assert.Equal(t, TypeUnknown, typ)
		assert.ErrorIs(t, err, ErrQuery)
		assert.ErrorIs(t, err, unix.EBADF)
		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].Message, "SO_TYPE")
	})

	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "stream", TypeStream.String())
		assert.Equal(t, "unknown", TypeUnknown.String())
		assert.Equal(t, "SocketType(99)", SocketType(99).String())
	})
}

func TestReadv(t *testing.T) {
	t.Run("fills and accounts", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.Results = []testutils.Result{{Data: []byte("0123456789")}}
		b := tr.NewBuffer()

		n, err := tr.Readv(b, testFD, 10)
		require.NoError(t, err)
		assert.Equal(t, 10, n)
		assert.Equal(t, 10, b.Len())
		assert.Equal(t, []byte("0123456789"), contents(t, b))
		assert.Equal(t, 10, b.Stats().Added)

		calls := fake.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "readv", calls[0].Op)
		assert.Equal(t, 10, calls[0].Len)
	})

	t.Run("budget clamped to max read", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{MaxRead: 2048})
		b := tr.NewBuffer()
		for _, howmuch := range []int{-1, 1 << 20} {
			_, err := tr.Readv(b, testFD, howmuch)
			require.ErrorIs(t, err, unix.EAGAIN)
		}
		for _, c := range fake.Calls() {
			assert.Equal(t, 2048, c.Len)
		}
	})

	t.Run("spreads over segments", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add(kib('a')[:1000]))
		fake.Results = []testutils.Result{{Data: []byte("abcdefghijklmnopqrstuvwxyz0123456789")}}

		n, err := tr.Readv(b, testFD, 36)
		require.NoError(t, err)
		assert.Equal(t, 36, n)
		assert.Equal(t, 1036, b.Len())
		assert.Equal(t, 2, b.Segments())
		calls := fake.Calls()
		assert.Equal(t, 2, calls[0].Vecs)
		assert.Equal(t, []byte("abcdefghijklmnopqrstuvwxyz0123456789"), contents(t, b)[1000:])
	})

	t.Run("zero and error leave state", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("keep")))
		fake.Results = []testutils.Result{{Data: nil}, {Err: unix.ECONNRESET}}

		n, err := tr.Readv(b, testFD, 100)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = tr.Readv(b, testFD, 100)
		assert.ErrorIs(t, err, unix.ECONNRESET)
		assert.Zero(t, n)
		assert.False(t, IsRetriable(err))

		assert.Equal(t, []byte("keep"), contents(t, b))
		assert.Equal(t, 4, b.Stats().Added)
	})

	t.Run("buffer full before any call", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{Buffer: evbuffer.Config{SegmentSize: evbuffer.MinSegmentSize, MaxSize: 2048}})
		b := tr.NewBuffer()
		require.NoError(t, b.Add(kib('x')))
		require.NoError(t, b.Add(kib('y')))

		_, err := tr.Readv(b, testFD, 10)
		assert.ErrorIs(t, err, evbuffer.ErrBufferFull)
		assert.Empty(t, fake.Calls())
	})
}

func TestWritev(t *testing.T) {
	t.Run("truncates last vector to budget", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		addSegments(t, b, kib('a'), kib('b'), kib('c'))

		n, err := tr.Writev(b, testFD, 1500)
		require.NoError(t, err)
		assert.Equal(t, 1500, n)
		assert.Equal(t, 3072, b.Len(), "writev does not drain")

		calls := fake.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, 2, calls[0].Vecs)
		assert.Equal(t, 1500, calls[0].Len)
		assert.Equal(t, contents(t, b)[:1500], calls[0].Data)
	})

	t.Run("vector count limit", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{WriteIOVecs: 2})
		b := tr.NewBuffer()
		addSegments(t, b, kib('a'), kib('b'), kib('c'))

		n, err := tr.Writev(b, testFD, b.Len())
		require.NoError(t, err)
		assert.Equal(t, 2048, n)
		assert.Equal(t, 2, fake.Calls()[0].Vecs)
	})

	t.Run("partial send", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SendLimit = 100
		b := tr.NewBuffer()
		addSegments(t, b, kib('a'), kib('b'))

		n, err := tr.Writev(b, testFD, b.Len())
		require.NoError(t, err)
		assert.Equal(t, 100, n)
	})

	t.Run("negative budget", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("data")))

		_, err := tr.Writev(b, testFD, -1)
		assert.ErrorIs(t, err, ErrNegativeBudget)
		assert.Empty(t, fake.Calls())
	})

	t.Run("stops at file segment", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("head")))
		require.NoError(t, b.AddFile(tempFile(t, []byte("file body")), 0, 9))

		n, err := tr.Writev(b, testFD, b.Len())
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		require.NoError(t, b.Drain(4))

		_, err = tr.Writev(b, testFD, b.Len())
		assert.ErrorIs(t, err, evbuffer.ErrFileSegment)
		assert.Len(t, fake.Calls(), 1)
		require.NoError(t, b.Close())
	})

	t.Run("os error zeroes count", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SendErr = unix.EPIPE
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("data")))

		n, err := tr.Writev(b, testFD, 4)
		assert.ErrorIs(t, err, unix.EPIPE)
		assert.Zero(t, n)
	})
}

func TestLinear(t *testing.T) {
	t.Run("send pulls up", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		addSegments(t, b, kib('a'), kib('b'), kib('c'))
		want := contents(t, b)

		n, err := tr.Send(b, testFD, -1)
		require.NoError(t, err)
		assert.Equal(t, 3072, n)
		calls := fake.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "send", calls[0].Op)
		assert.Equal(t, 1, calls[0].Vecs)
		assert.Equal(t, want, calls[0].Data)
		assert.Equal(t, want, contents(t, b))
	})

	t.Run("write clamps oversized budget", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("hello")))

		n, err := tr.Write(b, testFD, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []byte("hello"), fake.Calls()[0].Data)
	})

	t.Run("empty buffer makes no call", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		n, err := tr.Send(b, testFD, -1)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, fake.Calls())
	})

	t.Run("file segment in range", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.AddFile(tempFile(t, []byte("abc")), 0, 3))
		_, err := tr.Write(b, testFD, -1)
		assert.ErrorIs(t, err, evbuffer.ErrFileSegment)
		assert.Empty(t, fake.Calls())
		require.NoError(t, b.Close())
	})

	t.Run("recv and read", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.Results = []testutils.Result{{Data: []byte("hello")}, {Data: []byte(" world")}, {Data: nil}}
		b := tr.NewBuffer()

		n, err := tr.Recv(b, testFD, -1)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		n, err = tr.Read(b, testFD, 64)
		require.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, []byte("hello world"), contents(t, b))
		assert.Equal(t, 1, b.Segments())

		n, err = tr.Recv(b, testFD, 64)
		require.NoError(t, err, "orderly close")
		assert.Zero(t, n)
		assert.Equal(t, 11, b.Len())

		_, err = tr.Read(b, testFD, 64)
		assert.True(t, IsRetriable(err))
		assert.Equal(t, []string{"recv", "read", "recv", "read"}, fake.Ops())
		assert.Equal(t, DefaultMaxRead, fake.Calls()[0].Len)
	})
}

func TestAddressed(t *testing.T) {
	from := &unix.SockaddrInet4{Port: 1000, Addr: [4]byte{192, 0, 2, 1}}

	t.Run("recvmsg attaches sender", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.Results = []testutils.Result{{Data: []byte("ping"), From: from}}
		b := tr.NewBuffer()

		n, err := tr.Recvmsg(b, testFD, -1)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		require.NotNil(t, b.Peer())
		assert.Equal(t, "192.0.2.1:1000", b.Peer().String())
		assert.Equal(t, unix.SizeofSockaddrInet4, b.Peer().Len)

		from.Port = 2000
		assert.Equal(t, "192.0.2.1:1000", b.Peer().String(), "peer record is a private copy")
		from.Port = 1000
	})

	t.Run("sendmsg replies to attached peer", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.Results = []testutils.Result{{Data: []byte("ping"), From: from}}
		b := tr.NewBuffer()
		_, err := tr.Recvmsg(b, testFD, -1)
		require.NoError(t, err)

		n, err := tr.Sendmsg(b, testFD, b.Len())
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		calls := fake.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "sendmsg", calls[1].Op)
		assert.Equal(t, []byte("ping"), calls[1].Data)
		assert.True(t, evbuffer.NewPeerInfo(from).Equal(evbuffer.NewPeerInfo(calls[1].To)))
	})

	t.Run("sendmsg without peer", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("orphan")))

		n, err := tr.Sendmsg(b, testFD, b.Len())
		assert.ErrorIs(t, err, ErrNoPeerAddress)
		assert.Zero(t, n)
		assert.Empty(t, fake.Calls())
	})

	t.Run("failed receive keeps data and peer", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.ErrorLevel)
		tr, fake := newFakeTransport(t, Options{Logger: logger})
		other := &unix.SockaddrInet4{Port: 9, Addr: [4]byte{198, 51, 100, 7}}
		fake.Results = []testutils.Result{
			{Data: []byte("first"), From: from},
			{Err: unix.ECONNREFUSED},
			{Data: nil, From: other},
		}
		b := tr.NewBuffer()
		_, err := tr.Recvmsg(b, testFD, -1)
		require.NoError(t, err)
		peer := b.Peer()

		_, err = tr.Recvmsg(b, testFD, -1)
		assert.ErrorIs(t, err, unix.ECONNREFUSED)
		assert.Same(t, peer, b.Peer())
		assert.Equal(t, []byte("first"), contents(t, b))
		assert.Equal(t, 1, logs.FilterMessageSnippet("recvmsg").Len())

		n, err := tr.Recvmsg(b, testFD, -1)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Same(t, peer, b.Peer(), "an empty receive attaches nothing")
	})

	t.Run("retriable receive is not logged", func(t *testing.T) {
		logger, logs := observedLogger(zapcore.ErrorLevel)
		tr, _ := newFakeTransport(t, Options{Logger: logger})
		_, err := tr.Recvfrom(tr.NewBuffer(), testFD, -1)
		assert.ErrorIs(t, err, unix.EAGAIN)
		assert.Zero(t, logs.Len())
	})

	t.Run("recvfrom", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		six := &unix.SockaddrInet6{Port: 53, Addr: [16]byte{0x20, 0x01, 0x0d, 0xb8, 15: 1}}
		fake.Results = []testutils.Result{{Data: []byte("query"), From: six}}
		b := tr.NewBuffer()

		n, err := tr.Recvfrom(b, testFD, 512)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, unix.SizeofSockaddrInet6, b.Peer().Len)
		assert.Equal(t, 512, fake.Calls()[0].Len)
		assert.Equal(t, 1, fake.Calls()[0].Vecs)
	})

	t.Run("sendto unsupported", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("x")))
		_, err := tr.Sendto(b, testFD, 1)
		assert.ErrorIs(t, err, ErrSendtoUnsupported)
		assert.ErrorIs(t, err, gerrors.ErrUnsupportedOp)
		assert.Empty(t, fake.Calls())
	})
}

func TestSendfileUnsupportedPlatform(t *testing.T) {
	tr, fake := newFakeTransport(t, Options{})
	tr.caps.Sendfile = false
	b := tr.NewBuffer()
	require.NoError(t, b.AddFile(tempFile(t, []byte("0123456789")), 0, 10))

	n, err := tr.Sendfile(b, testFD, -1)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.ErrorIs(t, err, gerrors.ErrUnsupportedOp)
	assert.Empty(t, fake.Calls())
	require.NoError(t, b.Close())
}

func TestSendfile(t *testing.T) {
	if !DetectCapabilities().Sendfile {
		t.Skip("no sendfile on this platform")
	}

	t.Run("head file segment", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SendfileN = 1 << 20
		b := tr.NewBuffer()
		require.NoError(t, b.AddFile(tempFile(t, []byte("0123456789abcdef")), 3, 10))

		n, err := tr.Sendfile(b, testFD, -1)
		require.NoError(t, err)
		assert.Equal(t, 10, n)
		n, err = tr.Sendfile(b, testFD, 4)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		calls := fake.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, int64(3), calls[0].Offset)
		assert.Equal(t, 10, calls[0].Len)
		assert.Equal(t, 4, calls[1].Len)
		assert.Equal(t, 10, b.Len(), "sendfile does not drain")
		require.NoError(t, b.Close())
	})

	t.Run("memory head", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		b := tr.NewBuffer()
		require.NoError(t, b.Add([]byte("mem")))
		_, err := tr.Sendfile(b, testFD, -1)
		assert.ErrorIs(t, err, ErrNotFileSegment)
		assert.Empty(t, fake.Calls())
	})

	t.Run("retriable failure", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SendfileN, fake.SendfileErr = 5, unix.EAGAIN
		b := tr.NewBuffer()
		require.NoError(t, b.AddFile(tempFile(t, []byte("0123456789")), 0, 10))

		n, err := tr.Sendfile(b, testFD, -1)
		require.NoError(t, err)
		if runtime.GOOS == "linux" {
			assert.Zero(t, n)
		} else {
			assert.Equal(t, 5, n)
		}
		require.NoError(t, b.Close())
	})

	t.Run("fatal failure", func(t *testing.T) {
		tr, fake := newFakeTransport(t, Options{})
		fake.SendfileN, fake.SendfileErr = 5, unix.EBADF
		b := tr.NewBuffer()
		require.NoError(t, b.AddFile(tempFile(t, []byte("0123456789")), 0, 10))

		n, err := tr.Sendfile(b, testFD, -1)
		assert.ErrorIs(t, err, unix.EBADF)
		assert.Zero(t, n)
		require.NoError(t, b.Close())
	})
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, IsRetriable(unix.EAGAIN))
	assert.True(t, IsRetriable(unix.EWOULDBLOCK))
	assert.True(t, IsRetriable(unix.EINTR))
	assert.True(t, IsRetriable(os.NewSyscallError("read", unix.EAGAIN)))
	assert.False(t, IsRetriable(unix.EPIPE))
	assert.False(t, IsRetriable(nil))
}
