package httpproto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHeadersValidGet(t *testing.T) {
	raw := []byte("GET /index.html?x=1 HTTP/1.1\r\nHost: localhost\r\nUser-Agent: test\r\n\r\n")
	hbuf := make([]Header, 32)
	var req Request

	err := ParseHeaders(raw, hbuf, 2048, &req)
	require.NoError(t, err)
	require.Equal(t, []byte("GET"), req.Method)
	require.Equal(t, []byte("/index.html"), req.Path)
	require.Equal(t, []byte("x=1"), req.RawQuery)
	require.True(t, IsHTTP11(&req))
	require.Len(t, req.Headers, 2)

	host, ok := req.Header("host")
	require.True(t, ok)
	require.Equal(t, []byte("localhost"), host)
}

func TestParseHeadersInvalidMethod(t *testing.T) {
	raw := []byte("FROB / HTTP/1.1\r\n\r\n")
	var req Request
	err := ParseHeaders(raw, make([]Header, 8), 2048, &req)
	require.ErrorIs(t, err, ErrInvalidMethod)
}

func TestParseHeadersBadVersion(t *testing.T) {
	raw := []byte("GET / HTTP/9.9\r\n\r\n")
	var req Request
	err := ParseHeaders(raw, make([]Header, 8), 2048, &req)
	require.ErrorIs(t, err, ErrHTTPVersionNotSupported)
}

func TestParseHeadersURITooLong(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	raw := append(append([]byte("GET /"), long...), []byte(" HTTP/1.1\r\n\r\n")...)
	var req Request
	err := ParseHeaders(raw, make([]Header, 8), 10, &req)
	require.ErrorIs(t, err, ErrURITooLong)
}

func TestParseHeadersTooManyHeaders(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n")
	var req Request
	err := ParseHeaders(raw, make([]Header, 2), 2048, &req)
	require.ErrorIs(t, err, ErrTooManyHeaders)
}

func TestParseHeadersMalformed(t *testing.T) {
	raw := []byte("GET / HTTP/1.1\r\nNoColon\r\n\r\n")
	var req Request
	err := ParseHeaders(raw, make([]Header, 8), 2048, &req)
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestRequiredContentLengthPolicy(t *testing.T) {
	var withCL Request
	require.NoError(t, ParseHeaders([]byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\n"), make([]Header, 8), 2048, &withCL))
	n, err := RequiredContentLength(&withCL, true)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	var noCL Request
	require.NoError(t, ParseHeaders([]byte("POST / HTTP/1.1\r\n\r\n"), make([]Header, 8), 2048, &noCL))
	_, err = RequiredContentLength(&noCL, true)
	require.True(t, errors.Is(err, ErrLengthRequired))

	var getNoCL Request
	require.NoError(t, ParseHeaders([]byte("GET / HTTP/1.1\r\n\r\n"), make([]Header, 8), 2048, &getNoCL))
	n, err = RequiredContentLength(&getNoCL, false)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestRenderHeadersInto(t *testing.T) {
	dst := make([]byte, 256)
	n := RenderHeadersInto(dst, 200, []Header{{Key: []byte("X-Test"), Val: []byte("1")}}, 4)
	got := string(dst[:n])
	require.Equal(t, "HTTP/1.1 200 OK\r\nX-Test: 1\r\nContent-Length: 4\r\n\r\n", got)
}
