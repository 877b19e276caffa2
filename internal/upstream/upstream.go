// Package upstream implements the client half of the SOCKS4, SOCKS4a and
// SOCKS5 handshakes, used when the server chains its outbound connection
// through a next-hop SOCKS proxy instead of dialing the target directly.
//
// Handshake is the opaque collaborator the session state machine depends
// on: it takes a connection already dialed to the upstream proxy and
// negotiates passage to the real target on it. On success conn is left
// ready to carry the tunnelled payload; on failure it returns an error
// naming the failed step, wrapping the underlying I/O error (if any).
package upstream

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Version selects which SOCKS dialect to speak to the upstream proxy.
type Version int

const (
	Version4 Version = iota
	Version4a
	Version5
)

// Options configures a single handshake attempt.
type Options struct {
	TargetHost string
	TargetPort uint16

	// ProxyHostname, when true, asks the upstream to resolve TargetHost
	// itself rather than requiring an already-resolved IP literal. SOCKS5
	// always supports this (domain ATYP); SOCKS4a supports it via the
	// hostname extension; plain SOCKS4 never does.
	ProxyHostname bool

	Username string
	Password string

	Version Version
}

// Handshake negotiates target access on conn, an already-established
// connection to the upstream proxy.
func Handshake(ctx context.Context, conn net.Conn, opts Options) error {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch opts.Version {
	case Version4, Version4a:
		return handshakeV4(conn, opts)
	case Version5:
		return handshakeV5(conn, opts)
	default:
		return fmt.Errorf("upstream: unknown SOCKS version %d", opts.Version)
	}
}
