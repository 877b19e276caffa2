//go:build linux

package socksproxy

import (
	"log"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tuneAcceptedSocket sets SO_KEEPALIVE and TCP_NODELAY on a freshly
// accepted connection, per the Listener's socket-tuning step. Failures
// are logged but non-fatal: the session proceeds on an untuned socket.
func tuneAcceptedSocket(conn *net.TCPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		log.Printf("[socksproxy] tune socket: %v", err)
		return
	}

	var sysErr error
	err = raw.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); e != nil {
			sysErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); e != nil {
			sysErr = e
			return
		}
	})
	if err != nil {
		log.Printf("[socksproxy] tune socket: %v", err)
		return
	}
	if sysErr != nil {
		log.Printf("[socksproxy] tune socket: %v", sysErr)
	}
}

// bindControl returns a net.Dialer.Control hook that sets SO_REUSEADDR on
// the outbound socket, used when ServerOptions.BindAddr parses to a usable
// IP. The bind itself comes from net.Dialer.LocalAddr, which callers set
// alongside this hook.
func bindControl() func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var sysErr error
		err := c.Control(func(fd uintptr) {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
				sysErr = e
			}
		})
		if err != nil {
			return err
		}
		return sysErr
	}
}
