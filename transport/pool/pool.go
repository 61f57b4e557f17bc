// Package pool implements the per-destination connection pool described
// in the connection-pool component: a bounded FIFO of idle streams per
// (host, port), with circuit-isolation keys, optional fingerprint
// pinning, and atomic usage metrics. It is grounded on the teacher's
// retry package's conventions — context-based collaborator injection
// and a narrow, counterfeiter-mockable collaborator interface — applied
// here to the stream-opening collaborator instead of an HTTP retrier.
package pool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../../mocks/stream_opener.go . Opener

// Stream is a single opened connection, as returned by an Opener and
// handed out by Acquire. Fingerprint identifies the remote peer (e.g. a
// TLS certificate hash or onion-service key) for the pool's optional
// pinning check.
type Stream interface {
	net.Conn
	Fingerprint() string
}

// Opener opens a new Stream to (host, port), optionally scoped to an
// isolation key that requests a dedicated circuit. It is the
// anonymized-network (or clearnet) collaborator the pool falls back to
// on a cache miss; implementing it is out of this package's scope.
type Opener interface {
	Open(ctx context.Context, host string, port int, isolationKey string) (Stream, error)
}

// Config parameterizes a Pool, mirroring the pool.*/security.* §6
// configuration keys.
type Config struct {
	MaxPerDest            int
	AcquisitionTimeout    time.Duration
	IsolateStreams        bool
	VerifyFingerprint     bool
	TrustedFingerprints   map[string]string
	StrictOnionValidation bool
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		MaxPerDest:            5,
		AcquisitionTimeout:    60 * time.Second,
		IsolateStreams:        true,
		VerifyFingerprint:     true,
		StrictOnionValidation: true,
	}
}

// Metrics are the atomic counters the pool tracks across its lifetime.
// They're read with Snapshot; the exported counters are updated with
// atomic operations only, never under the pool's mutex, per the "stats
// counters: atomic updates, no lock" resource rule. The running mean is
// stored atomically too, but under the pool's mutex (see
// recordConnectionTime).
type Metrics struct {
	Total        int64
	Succeeded    int64
	Failed       int64
	Reused       int64
	Closed       int64
	Secured      int64
	avgConnNanos int64 // running arithmetic mean, nanoseconds
}

// AvgConnectionTimeMS returns the arithmetic mean connection-open time
// over all successful opens, in milliseconds.
func (m *Metrics) AvgConnectionTimeMS() float64 {
	return float64(atomic.LoadInt64(&m.avgConnNanos)) / float64(time.Millisecond)
}

type idleStream struct {
	stream       Stream
	isolationKey string
}

// destPool is the bounded FIFO of idle streams for one (host, port).
type destPool struct {
	mu   sync.Mutex
	idle []idleStream
}

// Pool is the connection pool: one destPool per destination, each guarded
// by its own exclusive lock, plus a registry lock over the destination
// map, all with short critical sections — no I/O runs
// while a destPool's lock (or the top-level registry lock) is held.
type Pool struct {
	cfg    Config
	opener Opener

	mu    sync.Mutex
	dests map[string]*destPool

	metrics Metrics
	connCount int64 // number of successful opens, for the running mean

	closed atomic.Bool
}

// New constructs a Pool that opens new streams via opener.
func New(opener Opener, cfg Config) *Pool {
	if cfg.MaxPerDest <= 0 {
		cfg.MaxPerDest = 5
	}
	if cfg.AcquisitionTimeout <= 0 {
		cfg.AcquisitionTimeout = 60 * time.Second
	}
	return &Pool{cfg: cfg, opener: opener, dests: make(map[string]*destPool)}
}

func (p *Pool) destPoolFor(addr string) *destPool {
	p.mu.Lock()
	defer p.mu.Unlock()
	dp, ok := p.dests[addr]
	if !ok {
		dp = &destPool{}
		p.dests[addr] = dp
	}
	return dp
}

// Acquire returns a stream to (host, port). If a pooled stream matches
// isolationKey, it's reused; pooled streams carry no age, so reuse does
// not check for expiry. Otherwise a new stream is
// opened through the configured Opener, bounded by the acquisition
// timeout, and its fingerprint is checked if verification is enabled and
// a trusted fingerprint is configured for host.
func (p *Pool) Acquire(ctx context.Context, host string, port int, isolationKey string) (Stream, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dp := p.destPoolFor(addr)

	if s, ok := p.takeIdle(dp, isolationKey); ok {
		atomic.AddInt64(&p.metrics.Reused, 1)
		return s, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.AcquisitionTimeout)
	defer cancel()

	atomic.AddInt64(&p.metrics.Total, 1)
	start := time.Now()
	stream, err := p.opener.Open(ctx, host, port, isolationKey)
	if err != nil {
		atomic.AddInt64(&p.metrics.Failed, 1)
		if ctx.Err() != nil {
			return nil, &ConnectionTimeoutError{Addr: addr}
		}
		return nil, fmt.Errorf("pool: open %s: %w", addr, err)
	}
	elapsed := time.Since(start)

	if p.cfg.VerifyFingerprint {
		if expected, ok := p.cfg.TrustedFingerprints[host]; ok {
			observed := stream.Fingerprint()
			if observed != expected {
				stream.Close()
				atomic.AddInt64(&p.metrics.Failed, 1)
				return nil, &FingerprintMismatchError{Host: host, Expected: expected, Observed: observed}
			}
			atomic.AddInt64(&p.metrics.Secured, 1)
		}
	}

	p.recordConnectionTime(elapsed)
	atomic.AddInt64(&p.metrics.Succeeded, 1)
	return stream, nil
}

// recordConnectionTime folds elapsed into the running arithmetic mean
// under the pool's own lock, since it touches the shared connCount
// divisor; Metrics' individual counters otherwise stay lock-free atomics.
func (p *Pool) recordConnectionTime(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connCount++
	prevMean := atomic.LoadInt64(&p.metrics.avgConnNanos)
	newMean := prevMean + (elapsed.Nanoseconds()-prevMean)/p.connCount
	atomic.StoreInt64(&p.metrics.avgConnNanos, newMean)
}

func (p *Pool) takeIdle(dp *destPool, isolationKey string) (Stream, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	if p.cfg.IsolateStreams && isolationKey != "" {
		for i, entry := range dp.idle {
			if entry.isolationKey == isolationKey {
				dp.idle = append(dp.idle[:i], dp.idle[i+1:]...)
				return entry.stream, true
			}
		}
		return nil, false
	}

	if len(dp.idle) == 0 {
		return nil, false
	}
	entry := dp.idle[0]
	dp.idle = dp.idle[1:]
	return entry.stream, true
}

// Release returns stream to its destination's idle pool if there's
// capacity, else closes it. Isolation-scoped streams (when isolation is
// enabled) are tagged with isolationKey so a later Acquire with the same
// key can reclaim exactly this stream rather than an unrelated one.
func (p *Pool) Release(host string, port int, isolationKey string, stream Stream) {
	addr := fmt.Sprintf("%s:%d", host, port)
	dp := p.destPoolFor(addr)

	dp.mu.Lock()
	if p.closed.Load() || len(dp.idle) >= p.cfg.MaxPerDest {
		dp.mu.Unlock()
		stream.Close()
		atomic.AddInt64(&p.metrics.Closed, 1)
		return
	}
	dp.idle = append(dp.idle, idleStream{stream: stream, isolationKey: isolationKey})
	dp.mu.Unlock()
}

// CloseAll drains every destination's idle pool, closes each stream, and
// returns the number closed. Subsequent Acquire/Release calls fail with
// ErrPoolClosed.
func (p *Pool) CloseAll() int {
	p.closed.Store(true)

	p.mu.Lock()
	dests := make([]*destPool, 0, len(p.dests))
	for _, dp := range p.dests {
		dests = append(dests, dp)
	}
	p.mu.Unlock()

	count := 0
	for _, dp := range dests {
		dp.mu.Lock()
		idle := dp.idle
		dp.idle = nil
		dp.mu.Unlock()

		for _, entry := range idle {
			entry.stream.Close()
			count++
		}
	}
	atomic.AddInt64(&p.metrics.Closed, int64(count))
	return count
}

// Snapshot returns a copy of the pool's current metrics.
func (p *Pool) Snapshot() Metrics {
	return Metrics{
		Total:        atomic.LoadInt64(&p.metrics.Total),
		Succeeded:    atomic.LoadInt64(&p.metrics.Succeeded),
		Failed:       atomic.LoadInt64(&p.metrics.Failed),
		Reused:       atomic.LoadInt64(&p.metrics.Reused),
		Closed:       atomic.LoadInt64(&p.metrics.Closed),
		Secured:      atomic.LoadInt64(&p.metrics.Secured),
		avgConnNanos: atomic.LoadInt64(&p.metrics.avgConnNanos),
	}
}
