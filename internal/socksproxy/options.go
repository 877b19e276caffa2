// Package socksproxy implements a SOCKS4, SOCKS4a and SOCKS5 proxy server.
//
// A Listener accepts inbound TCP connections and hands each one to a
// session, which runs the SOCKS state machine: version dispatch, method
// negotiation, optional authentication, request parsing, and finally a
// bidirectional relay to the requested target (direct or through an
// upstream SOCKS proxy).
package socksproxy

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ealireza-student/socksd/internal/upstream"
)

// ServerOptions is an immutable snapshot of server configuration, taken
// once per session at accept time so that later mutation of a shared
// Options value never changes the rules mid-handshake.
type ServerOptions struct {
	// Username and Password gate SOCKS5 user/pass auth (RFC 1929) and the
	// SOCKS4 USERID check. An empty Username means "no authentication
	// required" for SOCKS5; SOCKS4 always compares USERID against it.
	Username string
	Password string

	// BindAddr is an optional textual IP literal. When it parses, outbound
	// sockets are bound to (BindAddr, 0) before connecting. An unparseable
	// value is treated as absent, not a hard error.
	BindAddr string

	// NextProxy is an optional socks{4,4a,5}://[user[:pass]@]host:port
	// URL. Its presence switches outbound connects into chained mode.
	NextProxy string
}

// nextProxy is the parsed, validated form of ServerOptions.NextProxy.
type nextProxy struct {
	version  upstream.Version
	host     string
	port     int
	username string
	password string
}

// parseNextProxy parses raw (ServerOptions.NextProxy) once per session.
// An empty raw is not an error: it simply means chaining is disabled.
func parseNextProxy(raw string) (*nextProxy, error) {
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse next_proxy: %w", err)
	}

	var version upstream.Version
	switch u.Scheme {
	case "socks4":
		version = upstream.Version4
	case "socks4a":
		version = upstream.Version4a
	case "socks5":
		version = upstream.Version5
	default:
		return nil, fmt.Errorf("parse next_proxy: unsupported scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("parse next_proxy: missing host in %q", raw)
	}
	portStr := u.Port()
	if portStr == "" {
		return nil, fmt.Errorf("parse next_proxy: missing port in %q", raw)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return nil, fmt.Errorf("parse next_proxy: invalid port %q", portStr)
	}

	np := &nextProxy{
		version: version,
		host:    host,
		port:    port,
	}
	if u.User != nil {
		np.username = u.User.Username()
		np.password, _ = u.User.Password()
	}
	return np, nil
}
