package pseudoslice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLen(t *testing.T) {
	p := New([]byte("HEAD"), []byte("BODY!!"), make([]byte, 8))
	require.Equal(t, 10, p.Len())
}

func TestGetWithinHeader(t *testing.T) {
	p := New([]byte("HEADERS"), []byte("body"), make([]byte, 8))
	require.Equal(t, []byte("EAD"), p.Get(1, 4))
}

func TestGetWithinBody(t *testing.T) {
	p := New([]byte("HEADERS"), []byte("bodytext"), make([]byte, 8))
	require.Equal(t, []byte("body"), p.Get(7, 11))
}

func TestGetStraddlesBoundary(t *testing.T) {
	p := New([]byte("HEAD"), []byte("BODY"), make([]byte, 8))
	require.Equal(t, []byte("ADBO"), p.Get(2, 6))
}

func TestGetClampsToLen(t *testing.T) {
	p := New([]byte("HI"), []byte("YOU"), make([]byte, 8))
	require.Equal(t, []byte("YOU"), p.Get(2, 100))
}

func TestGetEmptyRange(t *testing.T) {
	p := New([]byte("HI"), []byte("YOU"), make([]byte, 8))
	require.Nil(t, p.Get(3, 3))
	require.Nil(t, p.Get(10, 10))
}

func TestGetWindowsCoverWholeSlice(t *testing.T) {
	header := []byte("HTTP/1.1 200 OK\r\n\r\n")
	body := make([]byte, 37)
	for i := range body {
		body[i] = byte('a' + i%26)
	}
	p := New(header, body, make([]byte, 8))

	const window = 8
	var got []byte
	for off := 0; off < p.Len(); off += window {
		got = append(got, p.Get(off, off+window)...)
	}

	want := append(append([]byte{}, header...), body...)
	require.Equal(t, want, got)
}
