package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/s00inx/ember/internal/router"
)

// TestConnectionSM_SendSpansMultipleSocketBufferWindows sends a response
// body several times larger than the socket buffer and checks that at
// least half of it arrives, with the 200 status line and the first 100
// body bytes present.
func TestConnectionSM_SendSpansMultipleSocketBufferWindows(t *testing.T) {
	body := strings.Repeat("x", 3*4096+123) // several times size_socket_buffer

	addr := startTestRuntime(t, func(r *router.Router[Handler]) {
		r.Handle("GET", "/big", func(ctx *Context) {
			ctx.SetStatus(200)
			ctx.Write([]byte(body))
		})
	})

	conn := mustDial(t, addr)
	defer conn.Close()

	_, err := conn.Write([]byte("GET /big HTTP/1.1\r\nHost: x\r\n\r\n"))
	require.NoError(t, err)

	resp := readAllUntilLen(t, conn, len(body)/2)
	require.Contains(t, resp, "200 OK")
	require.Contains(t, resp, body[:100])
}

// readAllUntilLen keeps reading until at least minLen bytes have
// arrived or the deadline trips, for responses too big for one read.
func readAllUntilLen(t *testing.T, conn interface {
	Read([]byte) (int, error)
}, minLen int) string {
	t.Helper()
	var buf []byte
	tmp := make([]byte, 8192)
	for len(buf) < minLen {
		n, err := conn.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			break
		}
	}
	return fmt.Sprintf("%s", buf)
}
