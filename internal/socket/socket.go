// Package socket creates the listening socket: a non-blocking,
// close-on-exec stream socket with the best available load-balanced
// reuse option, bound and put into the listen state. It uses
// golang.org/x/sys/unix directly rather than net.Listen so the caller
// keeps the raw file descriptor for epoll registration and controls the
// exact SO_REUSEPORT_LB/SO_REUSEPORT/SO_REUSEADDR fallback order.
package socket

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Listen creates, binds and starts listening on addr:port, returning the
// raw file descriptor. backlog is size_backlog from Config.
func Listen(addr [4]byte, port, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	applyReuse(fd)

	sa := &unix.SockaddrInet4{Port: port, Addr: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind: %w", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	return fd, nil
}

// applyReuse tries SO_REUSEPORT_LB (BSD load-balanced reuseport), then
// SO_REUSEPORT, then falls back to SO_REUSEADDR. Each failed attempt is
// non-fatal: the socket is still usable without it, just without
// load-balanced fan-out across workers.
func applyReuse(fd int) {
	const soReusePortLB = 0x10000 // unix.SO_REUSEPORT_LB is BSD-only; absent on Linux.
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, soReusePortLB, 1); err == nil {
		return
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err == nil {
		return
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// LocalPort returns the port a listening socket was bound to, useful
// after Listen was called with port 0 (OS-assigned ephemeral port).
func LocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return 0, fmt.Errorf("socket: unexpected sockaddr type %T", sa)
	}
	return sa4.Port, nil
}

// SetNonblocking and DisableNagle are applied to accepted child sockets
// right after accept.
func SetNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

// DisableNagle sets TCP_NODELAY on fd.
func DisableNagle(fd int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

// ParseIPv4 converts a "host:port" address with a dotted-quad IPv4 host
// (an empty host means 0.0.0.0) into the [4]byte + port pair the
// engine's Listen expects. A bare address without a port is rejected.
func ParseIPv4(hostport string) ([4]byte, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return [4]byte{}, 0, err
	}
	if host == "" {
		host = "0.0.0.0"
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return [4]byte{}, 0, fmt.Errorf("socket: invalid address %q", host)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return [4]byte{}, 0, fmt.Errorf("socket: not an IPv4 address %q", host)
	}
	var addr [4]byte
	copy(addr[:], ip4)

	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return [4]byte{}, 0, fmt.Errorf("socket: invalid port %q", portStr)
	}
	return addr, port, nil
}
