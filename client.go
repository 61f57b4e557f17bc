package nanogit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tordoze/nanogit/log"
	"github.com/tordoze/nanogit/protocol/client"
	"github.com/tordoze/nanogit/protocol/hash"
)

// Client defines the interface for interacting with a Git repository.
type Client interface {
	// IsAuthorized checks if the client can successfully communicate with the Git server.
	IsAuthorized(ctx context.Context) (bool, error)
	// RepoExists checks if the repository exists on the server.
	RepoExists(ctx context.Context) (bool, error)
	// Ref operations
	ListRefs(ctx context.Context) ([]Ref, error)
	GetRef(ctx context.Context, refName string) (Ref, error)
	CreateRef(ctx context.Context, ref Ref) error
	UpdateRef(ctx context.Context, ref Ref) error
	DeleteRef(ctx context.Context, refName string) error
	NewStagedWriter(ctx context.Context, ref Ref, options ...WriterOption) (StagedWriter, error)
	// Blob operations
	GetBlob(ctx context.Context, blobID hash.Hash) (*Blob, error)
	GetBlobByPath(ctx context.Context, rootHash hash.Hash, path string) (*Blob, error)
	// Tree operations
	GetFlatTree(ctx context.Context, hash hash.Hash) (*FlatTree, error)
	GetTree(ctx context.Context, hash hash.Hash) (*Tree, error)
	GetTreeByPath(ctx context.Context, rootHash hash.Hash, path string) (*Tree, error)
	// Commit operations
	GetCommit(ctx context.Context, hash hash.Hash) (*Commit, error)
	CompareCommits(ctx context.Context, baseCommit, headCommit hash.Hash) ([]CommitFile, error)
}

// Option configures an httpClient. Each Option is applied in order by
// NewHTTPClient, so later options win when they touch the same field.
type Option func(*httpClient) error

// httpClient is the private implementation of the Client interface. It owns
// the low-level byte-oriented transport (base/client/addDefaultHeaders) used
// by the legacy single-shot requests, and embeds a protocol/client.RawClient
// which provides the retrying, streaming Fetch/LsRefs/UploadPack primitives
// the rest of the package builds on.
type httpClient struct {
	client.RawClient

	base      *url.URL
	client    *http.Client
	userAgent string
	logger    Logger

	basicAuth *struct{ Username, Password string }
	tokenAuth *string

	packfileStorage PackfileStorage
}

// getLogger returns the logger to use for a request, preferring one injected
// into ctx over the client's configured logger.
func (c *httpClient) getLogger(ctx context.Context) Logger {
	if l := getContextLogger(ctx); l != nil {
		return l
	}
	if l := log.FromContext(ctx); l != nil {
		return l
	}
	return c.logger
}

// addDefaultHeaders adds the default headers to the request.
func (c *httpClient) addDefaultHeaders(req *http.Request) {
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

// uploadPack sends a POST request to the git-upload-pack endpoint.
// This endpoint is used to fetch objects and refs from the remote repository.
func (c *httpClient) uploadPack(ctx context.Context, data []byte) ([]byte, error) {
	body := bytes.NewReader(data)

	// NOTE: This path is defined in the protocol-v2 spec as required under $GIT_URL/git-upload-pack.
	// See: https://git-scm.com/docs/protocol-v2#_http_transport
	u := c.base.JoinPath("git-upload-pack").String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	c.addDefaultHeaders(req)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status)
	}

	return io.ReadAll(res.Body)
}

// receivePack sends a POST request to the git-receive-pack endpoint.
// This endpoint is used to send objects to the remote repository.
func (c *httpClient) receivePack(ctx context.Context, data []byte) ([]byte, error) {
	body := bytes.NewReader(data)

	// NOTE: This path is defined in the protocol-v2 spec as required under $GIT_URL/git-receive-pack.
	// See: https://git-scm.com/docs/protocol-v2#_http_transport
	u := c.base.JoinPath("git-receive-pack")

	logger := c.getLogger(ctx)
	logger.Info("GitReceivePack", "url", u.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, err
	}

	c.addDefaultHeaders(req)
	req.Header.Add("Content-Type", "application/x-git-receive-pack-request")
	req.Header.Add("Accept", "application/x-git-receive-pack-result")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status)
	}

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	logger.Info("ReceivePack", "status", res.StatusCode, "statusText", res.Status, "responseBody", string(responseBody), "url", u.String())

	return responseBody, nil
}

// ReceivePack streams a packfile to the remote's git-receive-pack endpoint via
// the embedded RawClient, draining and closing the response so callers only
// need to handle a single error. Unlike uploadPack/receivePack above, this is
// the streaming path used by StagedWriter.Push, where the packfile is piped
// through an io.Reader instead of built up as a single byte slice.
func (c *httpClient) ReceivePack(ctx context.Context, data io.Reader) error {
	res, err := c.RawClient.ReceivePack(ctx, data)
	if err != nil {
		return err
	}
	defer res.Close()

	if _, err := io.Copy(io.Discard, res); err != nil {
		return fmt.Errorf("drain receive-pack response: %w", err)
	}

	return nil
}

// NewHTTPClient returns a new Client for the given repository.
func NewHTTPClient(repo string, options ...Option) (Client, error) {
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
	u.Path = strings.TrimSuffix(u.Path, ".git")

	c := &httpClient{
		base:   u,
		client: &http.Client{},
		logger: &noopLogger{}, // No-op logger by default
	}

	for _, option := range options {
		if option == nil { // allow for easy optional options
			continue
		}
		if err := option(c); err != nil {
			return nil, err
		}
	}

	// The embedded RawClient provides the retrying Fetch/LsRefs/streaming
	// UploadPack/ReceivePack primitives; it's built last so it picks up
	// whatever auth/transport the options above configured.
	rawOpts := []client.Option{client.WithHTTPClient(c.client)}
	if c.userAgent != "" {
		rawOpts = append(rawOpts, client.WithUserAgent(c.userAgent))
	}
	if c.basicAuth != nil {
		rawOpts = append(rawOpts, client.WithBasicAuth(c.basicAuth.Username, c.basicAuth.Password))
	} else if c.tokenAuth != nil {
		rawOpts = append(rawOpts, client.WithTokenAuth(*c.tokenAuth))
	}

	rawClient, err := client.NewRawClient(repo, rawOpts...)
	if err != nil {
		return nil, err
	}
	c.RawClient = rawClient

	return c, nil
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(agent string) Option {
	return func(c *httpClient) error {
		c.userAgent = agent
		return nil
	}
}

// WithHTTPClient overrides the default http.Client.
// It will return an error if the provided http.Client is nil.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *httpClient) error {
		if httpClient == nil {
			return errors.New("httpClient is nil")
		}

		c.client = httpClient
		return nil
	}
}
