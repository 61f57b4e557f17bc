// Package transport selects between a clearnet and an anonymized stream
// factory for a given repository URL, the way the teacher's
// protocol/client package reaches a Git smart-HTTP server directly: this
// package decides *how* to reach it, clearnet or tunneled, before
// protocol/client (or a raw TCP dial, for the native Git protocol) does
// the talking.
package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default ports used when a URL omits one, per the wire protocol's
// service-invocation conventions.
const (
	DefaultGitPort   = 9418
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
)

// AnonymizedSchemePrefix is prepended to a normal scheme ("git", "http",
// "https") to request routing through the anonymized factory, e.g.
// "tor+git", "tor+http", "tor+https".
const AnonymizedSchemePrefix = "tor+"

// Destination is the routed, parsed form of a repository URL: the
// factory kind to use, plus the host/port/path the stream factory and
// connection pool key off.
type Destination struct {
	Anonymized bool
	Host       string
	Port       int
	RepoPath   string
	// UnderlyingScheme is the scheme with any anonymized prefix
	// stripped: "git", "http", or "https".
	UnderlyingScheme string
}

// Addr is the "host:port" form used as the connection pool's
// per-destination key.
func (d Destination) Addr() string {
	return d.Host + ":" + strconv.Itoa(d.Port)
}

// Router decides, for a given repository URL, whether to route through
// the anonymized transport or the clearnet one, per the scheme/host
// rules in the wire protocol's URL-schemes-handled contract.
type Router struct {
	// AnonymousTLD is the host suffix (e.g. ".onion") that, regardless of
	// scheme, always selects the anonymized factory.
	AnonymousTLD string
}

// NewRouter returns a Router recognizing the standard ".onion" TLD.
func NewRouter() *Router {
	return &Router{AnonymousTLD: ".onion"}
}

// Route parses rawURL and classifies it as anonymized or clearnet,
// extracting (host, port, repo_path) and filling in the scheme's default
// port when the URL doesn't specify one.
func (r *Router) Route(rawURL string) (Destination, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Destination{}, fmt.Errorf("transport: parse url: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	anonymized := strings.HasPrefix(scheme, AnonymizedSchemePrefix)
	underlying := scheme
	if anonymized {
		underlying = strings.TrimPrefix(scheme, AnonymizedSchemePrefix)
	}

	host := u.Hostname()
	if r.AnonymousTLD != "" && strings.HasSuffix(strings.ToLower(host), r.AnonymousTLD) {
		anonymized = true
	}

	switch underlying {
	case "git", "http", "https":
		// supported
	default:
		return Destination{}, &UnsupportedSchemeError{Scheme: u.Scheme}
	}

	port := defaultPortFor(underlying)
	if p := u.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return Destination{}, fmt.Errorf("transport: invalid port %q: %w", p, err)
		}
		port = parsed
	}

	return Destination{
		Anonymized:       anonymized,
		Host:             host,
		Port:             port,
		RepoPath:         u.Path,
		UnderlyingScheme: underlying,
	}, nil
}

func defaultPortFor(scheme string) int {
	switch scheme {
	case "git":
		return DefaultGitPort
	case "https":
		return DefaultHTTPSPort
	default:
		return DefaultHTTPPort
	}
}
