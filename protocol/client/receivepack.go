package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tordoze/nanogit/log"
)

// ReceivePack sends a POST request to the git-receive-pack endpoint.
// This endpoint is used to send objects to the remote repository.
func (c *rawClient) ReceivePack(ctx context.Context, data io.Reader) (io.ReadCloser, error) {
	// NOTE: This path is defined in the protocol-v2 spec as required under $GIT_URL/git-receive-pack.
	// See: https://git-scm.com/docs/protocol-v2#_http_transport
	u := c.base.JoinPath("git-receive-pack")
	logger := log.FromContext(ctx)
	logger.Debug("Receive-pack", "url", u.String())

	res, err := c.doHTTPWithRetry(ctx, false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), data)
		if err != nil {
			return nil, err
		}
		c.addDefaultHeaders(req)
		req.Header.Add("Content-Type", "application/x-git-receive-pack-request")
		req.Header.Add("Accept", "application/x-git-receive-pack-result")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		res.Body.Close()
		return nil, fmt.Errorf("got status code %d: %s", res.StatusCode, res.Status)
	}

	logger.Debug("Receive-pack response", "status", res.StatusCode, "statusText", res.Status)

	return res.Body, nil
}
