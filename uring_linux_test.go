package evsocket

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sys/unix"
)

func newRingTransport(t *testing.T) *Transport {
	t.Helper()
	logger, logs := observedLogger(zapcore.WarnLevel)
	tr, err := New(Options{Logger: logger, UseRing: true, RingSize: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	if !tr.Capabilities().Ring {
		assert.NotZero(t, logs.FilterMessageSnippet("io_uring").Len(), "fallback is logged")
		t.Skip("io_uring unavailable on this kernel")
	}
	return tr
}

// withinDeadline runs fn and fails the test when it does not return in time.
func withinDeadline(t *testing.T, fn func() (int, error)) (int, error) {
	t.Helper()
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := fn()
		done <- result{n, err}
	}()
	select {
	case r := <-done:
		return r.n, r.err
	case <-time.After(2 * time.Second):
		t.Fatal("ring submission waited on the socket")
		return 0, nil
	}
}

func TestRingVectoredSocketPair(t *testing.T) {
	tr := newRingTransport(t)

	local, remote := socketPair(t, unix.SOCK_STREAM)
	b := tr.NewBuffer()

	_, err := unix.Write(remote, []byte("through the ring"))
	require.NoError(t, err)
	n, err := tr.Readv(b, local, -1)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, 16, b.Len())

	n, err = tr.Writev(b, local, b.Len())
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, []byte("through the ring"), readAll(t, remote, 16))

	require.NoError(t, tr.Close())
}

func TestRingWouldBlockIsRetriable(t *testing.T) {
	t.Run("empty socket", func(t *testing.T) {
		tr := newRingTransport(t)
		local, _ := socketPair(t, unix.SOCK_STREAM)
		b := tr.NewBuffer()

		n, err := withinDeadline(t, func() (int, error) { return tr.Readv(b, local, -1) })
		require.Error(t, err)
		assert.True(t, IsRetriable(err), "got %v", err)
		assert.Zero(t, n)
		assert.Zero(t, b.Len())
	})

	t.Run("full send buffer", func(t *testing.T) {
		tr := newRingTransport(t)
		local, _ := socketPair(t, unix.SOCK_STREAM)
		b := tr.NewBuffer()
		require.NoError(t, b.Add(bytes.Repeat([]byte("x"), 64*1024)))

		var err error
		for i := 0; i < 1024 && err == nil; i++ {
			_, err = withinDeadline(t, func() (int, error) { return tr.Writev(b, local, b.Len()) })
		}
		require.Error(t, err)
		assert.True(t, IsRetriable(err), "got %v", err)
	})
}

func TestRingRejectsCustomSyscalls(t *testing.T) {
	_, err := New(Options{Logger: zap.NewNop().Sugar(), UseRing: true, Sys: hostSyscalls{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UseRing")
}
