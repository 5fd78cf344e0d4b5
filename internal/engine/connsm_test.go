package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/s00inx/ember/internal/router"
	"github.com/s00inx/ember/internal/socket"
)

// startTestRuntime brings up one Runtime on an OS-assigned port and
// returns its address, driving the real epoll loop with a real net.Dial
// client rather than mocking syscalls.
func startTestRuntime(t *testing.T, register func(r *router.Router[Handler])) string {
	t.Helper()

	addr, port, err := socket.ParseIPv4("127.0.0.1:0")
	require.NoError(t, err)
	fd, err := socket.Listen(addr, port, 16)
	require.NoError(t, err)

	boundPort, err := socket.LocalPort(fd)
	require.NoError(t, err)

	rtr := router.New[Handler]()
	register(rtr)

	cfg := DefaultConfig()
	cfg.Addr = fmt.Sprintf("127.0.0.1:%d", boundPort)
	cfg.SizeConnectionsMax = 8

	rt, err := NewRuntime(cfg, fd, rtr, NewDiscardLogger(), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go rt.Run(ctx)
	t.Cleanup(func() {
		cancel()
		rt.Close()
	})

	// Give the accept loop a moment to arm.
	time.Sleep(20 * time.Millisecond)
	return cfg.Addr
}

func mustDial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func readAll(t *testing.T, conn net.Conn) string {
	t.Helper()
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := conn.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			if err == io.EOF {
				break
			}
			// A response with Content-Length is fully framed; once we
			// have received it there is nothing more to read and the
			// server keeps the connection open for the next request.
			break
		}
		if n < len(tmp) {
			break
		}
	}
	return string(buf)
}

func TestConnectionSM_PlainGETSingleChunk(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/", func(ctx *Context) {
			ctx.SetStatus(200)
			ctx.Write([]byte("hello"))
		})
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, "hello")
}

func TestConnectionSM_HeaderSplitAcrossChunks(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/", func(ctx *Context) {
			ctx.SetStatus(200)
			ctx.Write([]byte("hello"))
		})
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = conn.Write([]byte("\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, "hello")
}

func TestConnectionSM_MissingHostOnHTTP11(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/", func(ctx *Context) { ctx.SetStatus(200) })
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "400 Bad Request")
	require.Contains(t, resp, `Missing "Host" Header`)
}

func TestConnectionSM_MethodNotAllowed(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/only-get", func(ctx *Context) { ctx.SetStatus(200) })
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("POST /only-get HTTP/1.1\r\nHost: x\r\nContent-Length: 0\r\n\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "405 Method Not Allowed")
	require.Contains(t, resp, "Allow: GET")
}

func TestConnectionSM_NoRouteMatches(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/", func(ctx *Context) { ctx.SetStatus(200) })
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET /nope HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "404 Not Found")
}

func TestConnectionSM_BodyFramedByContentLength(t *testing.T) {
	var gotBody string
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("POST", "/echo", func(ctx *Context) {
			gotBody = string(ctx.Body())
			ctx.SetStatus(200)
			ctx.Write(ctx.Body())
		})
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	body := "hello=world"
	req := fmt.Sprintf("POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	_, err := conn.Write([]byte(req))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, body)
	require.Equal(t, body, gotBody)
}

func TestConnectionSM_BodyMissingContentLengthIsLengthRequired(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("POST", "/echo", func(ctx *Context) { ctx.SetStatus(200) })
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("POST /echo HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp := readAll(t, conn)
	require.Contains(t, resp, "411 Length Required")
}

func TestConnectionSM_KillStopsWorker(t *testing.T) {
	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/die", func(ctx *Context) { ctx.Kill() })
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET /die HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, _ := conn.Read(buf)
	require.Equal(t, 0, n, "Kill must not write a response body")
}
