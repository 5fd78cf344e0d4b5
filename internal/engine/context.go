package engine

import (
	"github.com/s00inx/ember/internal/arena"
	"github.com/s00inx/ember/internal/httpproto"
)

// Handler is the type routes are registered with. It either finishes
// synchronously (sets a response and returns) or calls Spawn and takes
// over the connection.
type Handler func(ctx *Context)

// Context is the per-request handle a Handler receives: request
// accessors, the connection's arena, and response setters. A new Context
// is built for each routed request as an ordinary Go allocation; it is
// not placed in the connection arena.
type Context struct {
	p  *Provision
	rt *Runtime
}

func newContext(p *Provision, rt *Runtime) *Context {
	return &Context{p: p, rt: rt}
}

// Method returns the request method token.
func (c *Context) Method() []byte { return c.p.Request.Method }

// Path returns the request-target path, without the query string.
func (c *Context) Path() []byte { return c.p.Request.Path }

// Header looks up a request header by case-insensitive name.
func (c *Context) Header(name string) ([]byte, bool) { return c.p.Request.Header(name) }

// Body returns the fully-buffered request body; bodies are never
// streamed to the handler.
func (c *Context) Body() []byte { return c.p.Request.Body }

// Param returns a captured path parameter by name, e.g. the "id" in
// "/users/:id".
func (c *Context) Param(name string) ([]byte, bool) {
	for _, pc := range c.p.Captures {
		if string(pc.Key) == name {
			return pc.Val, true
		}
	}
	return nil, false
}

// Query returns a query-string parameter by name.
func (c *Context) Query(name string) ([]byte, bool) {
	for _, q := range c.p.Queries {
		if string(q.Key) == name {
			return q.Val, true
		}
	}
	return nil, false
}

// Arena returns the connection-scoped allocator, reset between requests
// with the retain bound from Config.SizeConnectionArenaRetain.
func (c *Context) Arena() *arena.Arena { return c.p.Arena }

// Runtime returns the owning worker runtime, e.g. for handlers that read
// shared read-only application state stashed by the caller.
func (c *Context) Runtime() *Runtime { return c.rt }

// ConnID returns the log-correlation id of the underlying connection.
func (c *Context) ConnID() string { return c.p.ConnID.String() }

// SetStatus sets the response status code. StatusKill is accepted here
// too; use Kill for readability at call sites.
func (c *Context) SetStatus(code int) { c.p.ResponseCode = code }

// Kill marks the response with the sentinel Kill status: once the state
// machine reaches the send boundary it stops the worker instead of
// writing a response.
func (c *Context) Kill() { c.p.ResponseCode = StatusKill }

// SetHeader appends a response header, copying key/val into the
// connection arena so the handler's own buffers can be reused freely.
func (c *Context) SetHeader(key, val string) {
	h := httpproto.Header{
		Key: c.p.Arena.AllocString(key),
		Val: c.p.Arena.AllocString(val),
	}
	c.p.ResponseHeaders = append(c.p.ResponseHeaders, h)
}

// Write sets the response body, copying data into the connection arena.
// Calling it more than once replaces the previous body rather than
// appending: a response is one logical slice, not a chunked stream.
func (c *Context) Write(data []byte) {
	buf := c.p.Arena.Alloc(len(data))
	copy(buf, data)
	c.p.ResponseBody = buf
}

// Trigger is the way an asynchronous handler hands control back to the
// connection state machine once it has produced (or decided to await)
// more I/O. Obtained via Spawn.
type Trigger struct {
	p  *Provision
	rt *Runtime
}

// Spawn parks the connection: no I/O is armed against it until the
// returned Trigger is used. The handler must eventually call exactly one
// of Trigger's methods.
func (c *Context) Spawn() *Trigger {
	c.p.Parked = true
	return &Trigger{p: c.p, rt: c.rt}
}

// Recv re-arms a plain (or already-handshaken) receive on the parked
// connection, e.g. for a handler that wants to wait for more client
// data before responding.
func (t *Trigger) Recv() {
	t.p.Parked = false
	t.rt.armRecvAfterSpawn(t.p)
}

// Send finalizes whatever response the handler set on the Context and
// arms the send pipeline, returning to recv once it completes — the
// common case for a handler that did asynchronous work before replying.
func (t *Trigger) Send() {
	t.p.Parked = false
	t.rt.dispatchResponse(t.p, AfterRecv, nil)
}

// SendThen is like Send but installs a continuation that runs once the
// send fully completes instead of returning to recv, for handlers that
// stream more than one response in sequence over the same connection.
func (t *Trigger) SendThen(next func(p *Provision)) {
	t.p.Parked = false
	t.rt.dispatchResponse(t.p, AfterTrigger, next)
}
