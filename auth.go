package nanogit

import (
	"errors"
)

// WithBasicAuth sets the HTTP Basic Auth options.
// This is not a particularly secure method of authentication, so you probably want to recommend or require WithTokenAuth instead.
func WithBasicAuth(username, password string) Option {
	// NOTE: basic auth is defined as a valid authentication method by the http-protocol spec.
	// See: https://git-scm.com/docs/http-protocol#_authentication
	return func(c *httpClient) error {
		if username == "" {
			return errors.New("username cannot be empty")
		}
		if c.tokenAuth != nil {
			return errors.New("cannot use both basic auth and token auth")
		}
		c.basicAuth = &struct{ Username, Password string }{username, password}
		return nil
	}
}

// WithTokenAuth sets the Authorization header to the given token.
// We will not modify it for you. As such, if it needs a "Bearer" or "token" prefix, you must add that yourself.
func WithTokenAuth(token string) Option {
	// NOTE: auth beyond basic is defined as a valid authentication method by the http-protocol spec, if the server wants to implement it.
	// See: https://git-scm.com/docs/http-protocol#_authentication
	return func(c *httpClient) error {
		if token == "" {
			return errors.New("token cannot be empty")
		}
		if c.basicAuth != nil {
			return errors.New("cannot use both basic auth and token auth")
		}
		c.tokenAuth = &token
		return nil
	}
}

// IsAuthorized is promoted from the embedded RawClient (see
// protocol/client/auth.go), which performs the same capability-advertisement
// connectivity check against git-upload-pack.
