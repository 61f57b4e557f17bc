package pool

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStream wraps a net.Conn with a fixed fingerprint, standing in for
// a real TLS/onion-service connection in tests.
type fakeStream struct {
	net.Conn
	fingerprint string
}

func (s *fakeStream) Fingerprint() string { return s.fingerprint }

func newFakeStreamPair(fingerprint string) Stream {
	client, _ := net.Pipe()
	return &fakeStream{Conn: client, fingerprint: fingerprint}
}

// fakeOpener opens a deterministic fakeStream per call and counts how
// many times it was invoked.
type fakeOpener struct {
	opens       int64
	fingerprint string
	err         error
	delay       time.Duration
}

func (o *fakeOpener) Open(ctx context.Context, host string, port int, isolationKey string) (Stream, error) {
	atomic.AddInt64(&o.opens, 1)
	if o.err != nil {
		return nil, o.err
	}
	if o.delay > 0 {
		select {
		case <-time.After(o.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return newFakeStreamPair(o.fingerprint), nil
}

func TestPool_Acquire_OpensAndReuses(t *testing.T) {
	opener := &fakeOpener{fingerprint: "fp1"}
	p := New(opener, DefaultConfig())

	s1, err := p.Acquire(context.Background(), "example.com", 443, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(&opener.opens))

	p.Release("example.com", 443, "", s1)

	s2, err := p.Acquire(context.Background(), "example.com", 443, "")
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(&opener.opens)) // reused, no second open
	require.Same(t, s1, s2)

	snap := p.Snapshot()
	require.EqualValues(t, 1, snap.Succeeded)
	require.EqualValues(t, 1, snap.Reused)
}

func TestPool_Release_OverCapacityCloses(t *testing.T) {
	opener := &fakeOpener{fingerprint: "fp1"}
	cfg := DefaultConfig()
	cfg.MaxPerDest = 1
	p := New(opener, cfg)

	s1, err := p.Acquire(context.Background(), "h", 1, "")
	require.NoError(t, err)
	s2, err := p.Acquire(context.Background(), "h", 1, "")
	require.NoError(t, err)

	p.Release("h", 1, "", s1)
	p.Release("h", 1, "", s2) // over capacity, should close rather than queue

	snap := p.Snapshot()
	require.EqualValues(t, 1, snap.Closed)
}

func TestPool_FingerprintMismatch(t *testing.T) {
	opener := &fakeOpener{fingerprint: "untrusted"}
	cfg := DefaultConfig()
	cfg.TrustedFingerprints = map[string]string{"example.com": "trusted-fp"}
	p := New(opener, cfg)

	_, err := p.Acquire(context.Background(), "example.com", 443, "")
	require.ErrorIs(t, err, ErrFingerprintMismatch)
}

func TestPool_Isolation_DifferentKeysDontReuse(t *testing.T) {
	opener := &fakeOpener{fingerprint: "fp1"}
	p := New(opener, DefaultConfig())

	s1, err := p.Acquire(context.Background(), "h", 1, "key-a")
	require.NoError(t, err)
	p.Release("h", 1, "key-a", s1)

	_, err = p.Acquire(context.Background(), "h", 1, "key-b")
	require.NoError(t, err)
	require.EqualValues(t, 2, atomic.LoadInt64(&opener.opens)) // key-b can't reuse key-a's stream
}

func TestPool_AcquisitionTimeout(t *testing.T) {
	opener := &fakeOpener{fingerprint: "fp1", delay: 50 * time.Millisecond}
	cfg := DefaultConfig()
	cfg.AcquisitionTimeout = 5 * time.Millisecond
	p := New(opener, cfg)

	_, err := p.Acquire(context.Background(), "h", 1, "")
	require.ErrorIs(t, err, ErrConnectionTimeout)
}

func TestPool_CloseAll(t *testing.T) {
	opener := &fakeOpener{fingerprint: "fp1"}
	p := New(opener, DefaultConfig())

	s1, _ := p.Acquire(context.Background(), "h", 1, "")
	p.Release("h", 1, "", s1)

	closed := p.CloseAll()
	require.Equal(t, 1, closed)

	_, err := p.Acquire(context.Background(), "h", 1, "")
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestPool_OpenError(t *testing.T) {
	opener := &fakeOpener{err: fmt.Errorf("boom")}
	p := New(opener, DefaultConfig())

	_, err := p.Acquire(context.Background(), "h", 1, "")
	require.Error(t, err)
	require.EqualValues(t, 1, p.Snapshot().Failed)
}
