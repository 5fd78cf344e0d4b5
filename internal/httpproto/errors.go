package httpproto

import "errors"

// Typed parse failures. The header-stage state machine switches on these
// with errors.Is to pick a response status, so each failure mode maps to
// a distinct HTTP status rather than a shared generic error.
var (
	// ErrTooManyHeaders means the header count exceeded num_header_max. -> 431.
	ErrTooManyHeaders = errors.New("httpproto: too many headers")

	// ErrMalformedRequest covers structurally broken request lines or
	// header lines (missing colon, missing CRLF, bad framing). -> 400.
	ErrMalformedRequest = errors.New("httpproto: malformed request")

	// ErrURITooLong means the request-target exceeded size_request_uri_max. -> 414.
	ErrURITooLong = errors.New("httpproto: uri too long")

	// ErrInvalidMethod means the request method is not a recognized
	// HTTP token. -> 501.
	ErrInvalidMethod = errors.New("httpproto: invalid method")

	// ErrHTTPVersionNotSupported means the protocol token is neither
	// HTTP/1.0 nor HTTP/1.1. -> 505.
	ErrHTTPVersionNotSupported = errors.New("httpproto: http version not supported")

	// ErrLengthRequired means a body-expecting method omitted
	// Content-Length. -> 411.
	ErrLengthRequired = errors.New("httpproto: length required")
)
