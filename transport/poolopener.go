package transport

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"net"

	"github.com/tordoze/nanogit/transport/pool"
)

// streamAdapter wraps a net.Conn with the Fingerprint the pool's
// optional pinning check compares against security.trusted_fingerprints.
type streamAdapter struct {
	net.Conn
	fingerprint string
}

func (s *streamAdapter) Fingerprint() string { return s.fingerprint }

// PoolOpener adapts a StreamDialer into a pool.Opener, so the
// connection pool's cache-miss path reaches the same anonymized or
// clearnet dialer the transport router selected.
type PoolOpener struct {
	Dialer StreamDialer
}

// NewPoolOpener returns a pool.Opener backed by dialer.
func NewPoolOpener(dialer StreamDialer) *PoolOpener {
	return &PoolOpener{Dialer: dialer}
}

func (o *PoolOpener) Open(ctx context.Context, host string, port int, isolationKey string) (pool.Stream, error) {
	conn, err := o.Dialer.DialStream(ctx, host, port, isolationKey)
	if err != nil {
		return nil, err
	}
	return &streamAdapter{Conn: conn, fingerprint: fingerprintOf(conn)}, nil
}

// fingerprintOf returns a stable identifier for the remote peer: the
// sha256 of the leaf TLS certificate when the connection is already
// TLS-wrapped, or empty for a plain TCP stream (the security.
// verify_fingerprint check is then skipped for that host unless it's
// configured with a trusted fingerprint, in which case Acquire rejects
// the connection for lacking one to verify).
func fingerprintOf(conn net.Conn) string {
	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return ""
	}
	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return ""
	}
	sum := sha256.Sum256(state.PeerCertificates[0].Raw)
	return hex.EncodeToString(sum[:])
}
