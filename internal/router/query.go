package router

import "bytes"

// ParseQuery splits a raw query string (the part of the request-target
// after '?', not including it) into key/value Captures, appending to
// dst. Values are not percent-decoded: handlers that need decoding do it
// themselves, keeping the hot path allocation-free.
func ParseQuery(raw []byte, dst []Capture) []Capture {
	for len(raw) > 0 {
		var pair []byte
		if i := bytes.IndexByte(raw, '&'); i != -1 {
			pair, raw = raw[:i], raw[i+1:]
		} else {
			pair, raw = raw, nil
		}
		if len(pair) == 0 {
			continue
		}
		if len(dst) >= cap(dst) {
			break
		}
		if eq := bytes.IndexByte(pair, '='); eq != -1 {
			dst = append(dst, Capture{Key: pair[:eq], Val: pair[eq+1:]})
		} else {
			dst = append(dst, Capture{Key: pair, Val: nil})
		}
	}
	return dst
}
