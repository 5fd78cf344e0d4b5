// Package router implements the request router consumed by the
// connection state machine. It is a radix tree that carries a handler
// per HTTP method at each route, so that a path match with no handler
// for the request's method can be reported distinctly and drive 405 +
// Allow responses.
package router

import "bytes"

// Capture is a single named path-parameter or query-parameter match.
type Capture struct {
	Key, Val []byte
}

// Router is a generic radix-tree router: H is the handler type owned by
// the caller (the engine package's Handler), kept opaque here so this
// package has no dependency on connection/arena/context types.
type Router[H any] struct {
	root node[H]
}

// New creates an empty Router.
func New[H any]() *Router[H] {
	return &Router[H]{}
}

// Handle registers h for method on the given path pattern. Path segments
// beginning with ':' are captures, e.g. "/users/:id".
func (r *Router[H]) Handle(method, path string, h H) {
	r.root.insert([]byte(path), method, h)
}

// Result is the outcome of Match.
type Result[H any] struct {
	Handler    H
	Matched    bool     // a route exists for the path
	HasHandler bool     // and it has a handler for the requested method
	Methods    []string // the route's registered methods, for Allow
}

// Match resolves method + path (path only, no query string) against the
// tree, writing path captures into capBuf. capBuf's capacity bounds how
// many captures are kept; captures beyond that are silently dropped.
func (r *Router[H]) Match(method, path []byte, capBuf []Capture) (Result[H], []Capture) {
	n, caps := r.root.find(trimSlash(path), capBuf[:0])
	if n == nil {
		return Result[H]{}, caps
	}
	h, ok := n.handlers[string(method)]
	return Result[H]{
		Handler:    h,
		Matched:    true,
		HasHandler: ok,
		Methods:    n.methodList(),
	}, caps
}

func trimSlash(p []byte) []byte {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}

type node[H any] struct {
	prefix   []byte
	children []node[H]
	isParam  bool
	handlers map[string]H
}

func (n *node[H]) insert(path []byte, method string, h H) {
	path = trimSlash(path)
	segments := bytes.Split(path, []byte("/"))
	cur := n
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		isParam := seg[0] == ':'
		prefix := seg
		if isParam {
			prefix = seg[1:]
		}

		idx := -1
		for i := range cur.children {
			if cur.children[i].isParam == isParam && bytes.Equal(cur.children[i].prefix, prefix) {
				idx = i
				break
			}
		}
		if idx == -1 {
			cur.children = append(cur.children, node[H]{
				prefix:  append([]byte(nil), prefix...),
				isParam: isParam,
			})
			idx = len(cur.children) - 1
		}
		cur = &cur.children[idx]
	}
	if cur.handlers == nil {
		cur.handlers = make(map[string]H)
	}
	cur.handlers[method] = h
}

func (n *node[H]) find(path []byte, capBuf []Capture) (*node[H], []Capture) {
	if len(path) == 0 {
		if n.handlers != nil {
			return n, capBuf
		}
		return nil, capBuf
	}

	seg, rest := splitSegment(path)

	for i := range n.children {
		c := &n.children[i]
		if !c.isParam && bytes.Equal(c.prefix, seg) {
			if found, caps := c.find(rest, capBuf); found != nil {
				return found, caps
			}
		}
	}
	for i := range n.children {
		c := &n.children[i]
		if c.isParam {
			next := capBuf
			if len(capBuf) < cap(capBuf) {
				next = append(capBuf, Capture{Key: c.prefix, Val: seg})
			}
			if found, caps := c.find(rest, next); found != nil {
				return found, caps
			}
		}
	}
	return nil, capBuf
}

func splitSegment(path []byte) (seg, rest []byte) {
	idx := bytes.IndexByte(path, '/')
	if idx == -1 {
		return path, nil
	}
	return path[:idx], trimSlash(path[idx:])
}

func (n *node[H]) methodList() []string {
	out := make([]string, 0, len(n.handlers))
	for m := range n.handlers {
		out = append(out, m)
	}
	return out
}
