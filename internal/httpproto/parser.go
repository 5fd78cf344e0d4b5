// Package httpproto is the header/request parser and response-header
// renderer consumed by the connection state machine. It is a zero-copy,
// zero-alloc scanner that returns typed errors so callers can switch on
// the failure mode without string matching.
package httpproto

import "bytes"

// ParseHeaders parses a complete request line + header block (everything
// up to and including the terminating CRLFCRLF) into req. hbuf is
// caller-owned scratch that req.Headers is built in; its capacity caps
// the header count, and one header beyond it fails with
// ErrTooManyHeaders.
//
// maxURI bounds the request-target length.
func ParseHeaders(raw []byte, hbuf []Header, maxURI int, req *Request) error {
	*req = Request{}
	req.Headers = hbuf[:0]
	crs := 0

	findsep := func(start int, sep byte) int {
		idx := bytes.IndexByte(raw[start:], sep)
		if idx == -1 {
			return -1
		}
		return start + idx
	}

	sep := findsep(crs, ' ')
	if sep == -1 {
		return ErrMalformedRequest
	}
	method := raw[crs:sep]
	if !IsKnownMethod(method) {
		return ErrInvalidMethod
	}
	req.Method = method
	crs = sep + 1

	sep = findsep(crs, ' ')
	if sep == -1 {
		return ErrMalformedRequest
	}
	target := raw[crs:sep]
	if len(target) > maxURI {
		return ErrURITooLong
	}
	if q := bytes.IndexByte(target, '?'); q != -1 {
		req.Path = target[:q]
		req.RawQuery = target[q+1:]
	} else {
		req.Path = target
	}
	crs = sep + 1

	lf := findsep(crs, '\n')
	if lf == -1 || lf == crs || raw[lf-1] != '\r' {
		return ErrMalformedRequest
	}
	proto := raw[crs : lf-1]
	if !isSupportedVersion(proto) {
		return ErrHTTPVersionNotSupported
	}
	req.Proto = proto
	crs = lf + 1

	headerCount := 0
	for {
		if crs+1 >= len(raw) {
			return ErrMalformedRequest
		}
		if raw[crs] == '\r' && raw[crs+1] == '\n' {
			crs += 2
			break
		}

		lf := findsep(crs, '\n')
		if lf == -1 || lf == crs || raw[lf-1] != '\r' {
			return ErrMalformedRequest
		}
		le := lf - 1

		coloni := findsep(crs, ':')
		if coloni == -1 || coloni > le {
			return ErrMalformedRequest
		}

		vals := coloni + 1
		for vals < le && raw[vals] == ' ' {
			vals++
		}

		headerCount++
		if headerCount > cap(hbuf) {
			return ErrTooManyHeaders
		}
		if len(req.Headers) < cap(hbuf) {
			req.Headers = append(req.Headers, Header{Key: raw[crs:coloni], Val: raw[vals:le]})
		}

		crs = lf + 1
	}

	return nil
}

func isSupportedVersion(proto []byte) bool {
	return bytes.Equal(proto, []byte("HTTP/1.1")) || bytes.Equal(proto, []byte("HTTP/1.0"))
}

// IsHTTP11 reports whether the parsed request declared HTTP/1.1, used by
// the state machine to enforce the mandatory Host header.
func IsHTTP11(req *Request) bool {
	return bytes.Equal(req.Proto, []byte("HTTP/1.1"))
}

// ContentLength parses the Content-Length header, if present. Absence is
// reported via ok=false rather than defaulting to zero here: callers
// decide the absent-header policy.
func ContentLength(req *Request) (length int, ok bool, err error) {
	val, present := req.Header("Content-Length")
	if !present {
		return 0, false, nil
	}
	if len(val) == 0 {
		return 0, true, ErrMalformedRequest
	}
	n := 0
	for _, c := range val {
		if c < '0' || c > '9' {
			return 0, true, ErrMalformedRequest
		}
		n = n*10 + int(c-'0')
	}
	return n, true, nil
}

// RequiredContentLength applies this server's body-length policy: a
// body-expecting method with no Content-Length is ErrLengthRequired, in
// both the header stage and the body stage; a method that does not
// expect a body defaults to zero when the header is absent.
func RequiredContentLength(req *Request, expectsBody bool) (int, error) {
	length, present, err := ContentLength(req)
	if err != nil {
		return 0, err
	}
	if !present {
		if expectsBody {
			return 0, ErrLengthRequired
		}
		return 0, nil
	}
	return length, nil
}
