package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedScheme is returned by Router.Route when a URL's
	// scheme, with any anonymized-tunnel prefix stripped, is not git,
	// http or https. An onion host does not make another scheme
	// acceptable.
	ErrUnsupportedScheme = errors.New("transport: unsupported URL scheme")
)

// UnsupportedSchemeError carries the offending scheme for diagnostics.
type UnsupportedSchemeError struct {
	Scheme string
}

func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("transport: unsupported URL scheme %q", e.Scheme)
}

func (e *UnsupportedSchemeError) Unwrap() error { return ErrUnsupportedScheme }
