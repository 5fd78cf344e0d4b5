// Package pseudoslice implements the virtual concatenation of a rendered
// header buffer and a response body over a shared scratch region, so a
// response can be addressed as one contiguous byte range without ever
// copying header and body into a single owned buffer up front.
package pseudoslice

// Pseudoslice is a read-only view over header ++ body. Both halves are
// owned by the caller (typically a Provision's socket buffer for the
// header half, and the response body for the other); Pseudoslice only
// copies bytes into scratch when a requested window straddles the
// boundary between the two.
type Pseudoslice struct {
	header  []byte
	body    []byte
	scratch []byte
}

// New builds a Pseudoslice over header and body, using scratch as the
// staging area for windows that straddle the header/body boundary.
// scratch must be at least as large as the largest window ever requested
// via Get; the caller (ConnectionSM) sizes it to size_socket_buffer.
func New(header, body, scratch []byte) Pseudoslice {
	return Pseudoslice{header: header, body: body, scratch: scratch}
}

// Len returns header_len + body_len.
func (p Pseudoslice) Len() int {
	return len(p.header) + len(p.body)
}

// Get returns a contiguous view of [start, min(end, Len())) bytes.
// When the requested range lies entirely within one side, it is returned
// directly with no copy. When it straddles the boundary, the bytes are
// staged into scratch and a slice of scratch is returned.
func (p Pseudoslice) Get(start, end int) []byte {
	total := p.Len()
	if end > total {
		end = total
	}
	if start >= end {
		return nil
	}

	hlen := len(p.header)

	switch {
	case end <= hlen:
		// Entirely within the header.
		return p.header[start:end]
	case start >= hlen:
		// Entirely within the body.
		bs, be := start-hlen, end-hlen
		return p.body[bs:be]
	default:
		// Straddles the boundary: stage into scratch.
		want := end - start
		if cap(p.scratch) < want {
			// Caller under-sized scratch; fall back to a fresh buffer
			// rather than panic on a slice bounds error.
			p.scratch = make([]byte, want)
		}
		dst := p.scratch[:want]
		n := copy(dst, p.header[start:hlen])
		copy(dst[n:], p.body[:end-hlen])
		return dst
	}
}
