package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tordoze/nanogit/protocol/client"
)

// Factory builds a RawClient (the teacher's HTTP smart-protocol client)
// for a routed Destination. The anonymized factory and the clearnet
// factory both implement it, so callers above this package (the
// connection pool, StagedWriter/Clone's transport selection) don't need
// to know which one they got.
type Factory interface {
	NewRawClient(ctx context.Context, dest Destination, opts ...client.Option) (client.RawClient, error)
}

// ClearnetFactory builds a RawClient over a plain net/http transport,
// wrapping the teacher's protocol/client.NewRawClient verbatim — the
// clearnet leg needs no stream-level changes at all.
type ClearnetFactory struct {
	// HTTPClient, if set, is used as-is rather than constructing a new
	// one per call. Left nil, a fresh *http.Client with sane defaults is
	// built for each Destination.
	HTTPClient *http.Client
}

func (f *ClearnetFactory) NewRawClient(ctx context.Context, dest Destination, opts ...client.Option) (client.RawClient, error) {
	repoURL := fmt.Sprintf("%s://%s:%d%s", dest.UnderlyingScheme, dest.Host, dest.Port, dest.RepoPath)

	allOpts := opts
	if f.HTTPClient != nil {
		allOpts = append([]client.Option{client.WithHTTPClient(f.HTTPClient)}, opts...)
	}

	rc, err := client.NewRawClient(repoURL, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: clearnet factory: %w", err)
	}
	return rc, nil
}

// AnonymizedFactory builds a RawClient whose HTTP transport dials every
// connection through dialer (normally a SOCKS5 dialer pointed at a local
// Tor SocksPort), so the Git smart-HTTP request never touches the
// network directly.
type AnonymizedFactory struct {
	Dialer StreamDialer
	// IsolationKey, when set, is passed to every DialStream call made on
	// this factory's behalf, forcing a dedicated circuit per the
	// connection pool's isolation rules.
	IsolationKey string
	// DialTimeout bounds each individual stream dial.
	DialTimeout time.Duration
}

func (f *AnonymizedFactory) NewRawClient(ctx context.Context, dest Destination, opts ...client.Option) (client.RawClient, error) {
	if f.Dialer == nil {
		return nil, fmt.Errorf("transport: anonymized factory requires a StreamDialer")
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, portStr, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, fmt.Errorf("transport: split dial addr %q: %w", addr, err)
			}
			port := dest.Port
			if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
				return nil, fmt.Errorf("transport: parse dial port %q: %w", portStr, err)
			}
			return f.Dialer.DialStream(ctx, host, port, f.IsolationKey)
		},
		// TLS is still negotiated end-to-end over the tunneled stream
		// for https destinations; only the TCP dial is routed through
		// the anonymizing network.
		TLSClientConfig: &tls.Config{},
	}

	httpClient := &http.Client{Transport: transport}
	repoURL := fmt.Sprintf("%s://%s:%d%s", dest.UnderlyingScheme, dest.Host, dest.Port, dest.RepoPath)

	allOpts := append([]client.Option{client.WithHTTPClient(httpClient)}, opts...)
	rc, err := client.NewRawClient(repoURL, allOpts...)
	if err != nil {
		return nil, fmt.Errorf("transport: anonymized factory: %w", err)
	}
	return rc, nil
}

// SelectFactory returns anonymized when dest.Anonymized is set, else
// clearnet.
func SelectFactory(dest Destination, anonymized Factory, clearnet Factory) Factory {
	if dest.Anonymized {
		return anonymized
	}
	return clearnet
}
