package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tordoze/nanogit/log"
)

// SmartInfo retrieves reference and capability information from the remote Git repository
// using the Smart HTTP protocol.
//
// It sends a GET request to the $GIT_URL/info/refs endpoint with the specified service
// (e.g., "git-upload-pack" or "git-receive-pack") as a query parameter. This is required
// by the Git Smart Protocol v2 specification for repository discovery and capability
// negotiation.
//
// The response contains a list of references and advertised server capabilities in the
// format expected by Git clients.
//
// See:
//   - https://git-scm.com/docs/http-protocol#_smart_clients
//   - https://git-scm.com/docs/protocol-v2#_http_transport
//
// Parameters:
//
//	ctx     - Context for request cancellation and deadlines.
//	service - The Git service to query ("git-upload-pack" or "git-receive-pack").
//
// Returns:
//
//	The raw response body from the server, or an error if the request fails.
//
// Errors:
//
//	Returns an error if the HTTP request fails or the server returns a non-2xx status code.
//	A 5xx or 429 status is reported as a protocol.ServerUnavailableError. The body is
//	returned unread; the caller closes it.
func (c *rawClient) SmartInfo(ctx context.Context, service string) (io.ReadCloser, error) {
	u := c.base.JoinPath("info/refs")

	query := make(url.Values)
	query.Set("service", service)
	u.RawQuery = query.Encode()

	logger := log.FromContext(ctx)
	logger.Debug("SmartInfo", "url", u.String(), "service", service)

	res, err := c.doHTTPWithRetry(ctx, true, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		c.addDefaultHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		res.Body.Close()
		return nil, fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status)
	}

	logger.Debug("SmartInfo response", "status", res.StatusCode, "statusText", res.Status)

	return res.Body, nil
}
