package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tordoze/nanogit/protocol"
	"github.com/tordoze/nanogit/retry"
)

// Option configures a rawClient. Each Option is applied in order by
// NewRawClient, so later options win when they touch the same field.
type Option func(*rawClient) error

// RawClient is a client that can be used to make raw Git protocol requests.
// It is used to implement the Git Smart Protocol version 2 over HTTP/HTTPS transport.
//
//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o ../../mocks/raw_client.go . RawClient
type RawClient interface {
	IsAuthorized(ctx context.Context) (bool, error)
	SmartInfo(ctx context.Context, service string) (io.ReadCloser, error)
	UploadPack(ctx context.Context, data io.Reader) (io.ReadCloser, error)
	ReceivePack(ctx context.Context, data io.Reader) (io.ReadCloser, error)
	Fetch(ctx context.Context, opts FetchOptions) (map[string]*protocol.PackfileObject, error)
	LsRefs(ctx context.Context, opts LsRefsOptions) ([]protocol.RefLine, error)
}

type rawClient struct {
	// Base URL of the Git repository
	base *url.URL
	// HTTP client used for making requests
	client *http.Client
	// User-Agent header value for requests
	userAgent string
	// Basic authentication credentials (username/password)
	basicAuth *struct{ Username, Password string }
	// Token-based authentication header
	tokenAuth *string
}

// NewRawClient creates a new Git client for the specified repository URL.
// The client implements the Git Smart Protocol version 2 over HTTP/HTTPS transport.
// It supports both HTTP and HTTPS URLs and can be configured with various options
// for authentication, the User-Agent header, and HTTP client customization.
//
// Parameters:
//   - repo: Repository URL (must be HTTP or HTTPS)
//   - opts: Configuration options for authentication and HTTP client customization.
//
// Returns:
//   - *rawClient: Configured raw Git client
//   - error: Error if URL is invalid or configuration fails
//
// Example:
//
//	client, err := client.NewRawClient(
//	    "https://github.com/user/repo",
//	    client.WithBasicAuth("username", "password"),
//	)
//	if err != nil {
//	    return err
//	}
func NewRawClient(repo string, opts ...Option) (*rawClient, error) {
	if repo == "" {
		return nil, errors.New("repository URL cannot be empty")
	}

	u, err := url.Parse(repo)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("only HTTP and HTTPS URLs are supported")
	}

	u.Path = strings.TrimRight(u.Path, "/")

	c := &rawClient{
		base:   u,
		client: &http.Client{},
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *rawClient) error {
		c.userAgent = userAgent
		return nil
	}
}

// WithHTTPClient overrides the *http.Client used to perform requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *rawClient) error {
		if httpClient == nil {
			return errors.New("http client cannot be nil")
		}
		c.client = httpClient
		return nil
	}
}

// addDefaultHeaders adds the default headers to the request.
func (c *rawClient) addDefaultHeaders(req *http.Request) {
	req.Header.Add("Git-Protocol", "version=2")
	if c.userAgent == "" {
		c.userAgent = "nanogit/0"
	}
	req.Header.Add("User-Agent", c.userAgent)

	if c.basicAuth != nil {
		req.SetBasicAuth(c.basicAuth.Username, c.basicAuth.Password)
	} else if c.tokenAuth != nil {
		req.Header.Set("Authorization", *c.tokenAuth)
	}
}

// doHTTPWithRetry performs an HTTP round trip built by buildReq, retrying
// transport-level failures and, when retryOnServerError is true, 5xx/429
// responses according to the Retrier injected into ctx (see retry.ToContext).
// Without one injected, a single attempt is made.
//
// retryOnServerError must be false for requests that carry a body consumed on
// send (POST git-upload-pack/git-receive-pack): the body can't be resent, so
// a 5xx there is surfaced to the caller as an ordinary response instead of
// being retried.
func (c *rawClient) doHTTPWithRetry(ctx context.Context, retryOnServerError bool, buildReq func() (*http.Request, error)) (*http.Response, error) {
	return retry.Do(ctx, func() (*http.Response, error) {
		req, err := buildReq()
		if err != nil {
			return nil, err
		}

		res, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}

		if retryOnServerError && (res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests) {
			underlying := fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status)
			res.Body.Close()
			return nil, protocol.NewServerUnavailableError(res.StatusCode, underlying)
		}

		return res, nil
	})
}
