package httpproto

// statusTable is a flat array indexed by status code, covering the
// status lines the connection state machine can emit.
var statusTable = [600][]byte{
	100: []byte("100 Continue"),
	101: []byte("101 Switching Protocols"),

	200: []byte("200 OK"),
	201: []byte("201 Created"),
	202: []byte("202 Accepted"),
	204: []byte("204 No Content"),

	301: []byte("301 Moved Permanently"),
	302: []byte("302 Found"),
	304: []byte("304 Not Modified"),

	400: []byte("400 Bad Request"),
	401: []byte("401 Unauthorized"),
	403: []byte("403 Forbidden"),
	404: []byte("404 Not Found"),
	405: []byte("405 Method Not Allowed"),
	408: []byte("408 Request Timeout"),
	411: []byte("411 Length Required"),
	413: []byte("413 Content Too Large"),
	414: []byte("414 URI Too Long"),
	431: []byte("431 Request Header Fields Too Large"),

	500: []byte("500 Internal Server Error"),
	501: []byte("501 Not Implemented"),
	502: []byte("502 Bad Gateway"),
	503: []byte("503 Service Unavailable"),
	504: []byte("504 Gateway Timeout"),
	505: []byte("505 HTTP Version Not Supported"),
}

var (
	protoBytes = []byte("HTTP/1.1 ")
	crlf       = []byte("\r\n")
	colonSp    = []byte(": ")
	clenHeader = []byte("Content-Length: ")
)

// StatusLine returns the "NNN Reason" text for code, or a generic 500
// line if the code has no table entry.
func StatusLine(code int) []byte {
	if code < 0 || code >= len(statusTable) || statusTable[code] == nil {
		return []byte("500 Internal Server Error")
	}
	return statusTable[code]
}

// RenderHeadersInto writes the status line, the given headers, a
// Content-Length header sized to bodyLen, and the terminating CRLFCRLF
// into dst, returning the number of bytes written. The body itself is
// never copied in here; the caller hands it to Pseudoslice separately.
func RenderHeadersInto(dst []byte, code int, headers []Header, bodyLen int) int {
	n := copy(dst, protoBytes)
	n += copy(dst[n:], StatusLine(code))
	n += copy(dst[n:], crlf)

	for _, h := range headers {
		n += copy(dst[n:], h.Key)
		n += copy(dst[n:], colonSp)
		n += copy(dst[n:], h.Val)
		n += copy(dst[n:], crlf)
	}

	n += copy(dst[n:], clenHeader)
	n += appendUint(dst[n:], bodyLen)
	n += copy(dst[n:], crlf)

	n += copy(dst[n:], crlf)
	return n
}

// appendUint writes n in decimal into dst and returns the byte count.
func appendUint(dst []byte, n int) int {
	if n == 0 {
		dst[0] = '0'
		return 1
	}
	var tmp [20]byte
	i := len(tmp)
	for n > 0 {
		i--
		tmp[i] = byte(n%10) + '0'
		n /= 10
	}
	return copy(dst, tmp[i:])
}
