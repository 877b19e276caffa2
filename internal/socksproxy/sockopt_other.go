//go:build !linux

package socksproxy

import (
	"net"
	"syscall"
)

// tuneAcceptedSocket is a no-op on non-Linux platforms. The Linux-specific
// version in sockopt_linux.go sets SO_KEEPALIVE and TCP_NODELAY.
func tuneAcceptedSocket(conn *net.TCPConn) {}

// bindControl is a no-op on non-Linux platforms.
func bindControl() func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error { return nil }
}
