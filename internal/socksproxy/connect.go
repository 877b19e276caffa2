package socksproxy

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ealireza-student/socksd/internal/upstream"
)

const dialTimeout = 15 * time.Second

// connectHost opens the outbound connection for a CONNECT request, either
// directly or through the configured upstream proxy, and stores it on the
// session on success. resolve is true only when the request named a
// domain and chaining is not in use; it selects whether host is resolved
// locally or parsed as a numeric IP. On success it also returns the
// resolved endpoint's IP when one is known: the winning address for a
// direct connect, or nil for a chained connect, since chaining never
// resolves the target locally and the reply must fall back to echoing the
// requested domain literally in that case.
func (s *session) connectHost(targetHost string, targetPort uint16, resolve bool) (net.IP, error) {
	if s.nextProxy != nil {
		return nil, s.connectChained(targetHost, targetPort)
	}
	return s.connectDirect(targetHost, targetPort, resolve)
}

// connectDirect resolves (or parses) targetHost into an ordered list of
// endpoints and dials them in order, the first success winning. It
// returns the IP it connected to on success.
func (s *session) connectDirect(targetHost string, targetPort uint16, resolve bool) (net.IP, error) {
	var ips []net.IP
	if resolve {
		addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), targetHost)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			ips = append(ips, a.IP)
		}
	} else {
		ip := net.ParseIP(targetHost)
		if ip == nil {
			return nil, fmt.Errorf("socksproxy: %q is not a numeric IP", targetHost)
		}
		ips = []net.IP{ip}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("socksproxy: no addresses for %q", targetHost)
	}

	bindIP := parseBindAddr(s.opts.BindAddr)

	var lastErr error
	for _, ip := range ips {
		dialer := net.Dialer{Timeout: dialTimeout}
		if bindIP != nil {
			dialer.LocalAddr = &net.TCPAddr{IP: bindIP}
			dialer.Control = bindControl()
		}
		conn, err := dialer.Dial("tcp", net.JoinHostPort(ip.String(), strconv.Itoa(int(targetPort))))
		if err != nil {
			lastErr = err
			continue
		}
		s.setOutbound(conn)
		return ip, nil
	}
	return nil, lastErr
}

// connectChained dials the upstream proxy directly (by numeric IP, no DNS
// of the upstream itself) and then runs the UpstreamHandshake collaborator
// on the resulting connection, asking it to resolve targetHost itself.
func (s *session) connectChained(targetHost string, targetPort uint16) error {
	np := s.nextProxy
	if net.ParseIP(np.host) == nil {
		return fmt.Errorf("socksproxy: next_proxy host %q is not a numeric IP", np.host)
	}

	bindIP := parseBindAddr(s.opts.BindAddr)
	dialer := net.Dialer{Timeout: dialTimeout}
	if bindIP != nil {
		dialer.LocalAddr = &net.TCPAddr{IP: bindIP}
		dialer.Control = bindControl()
	}

	conn, err := dialer.Dial("tcp", net.JoinHostPort(np.host, strconv.Itoa(np.port)))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	err = upstream.Handshake(ctx, conn, upstream.Options{
		TargetHost:    targetHost,
		TargetPort:    targetPort,
		ProxyHostname: true,
		Username:      np.username,
		Password:      np.password,
		Version:       np.version,
	})
	if err != nil {
		conn.Close()
		return err
	}

	s.setOutbound(conn)
	return nil
}

// parseBindAddr parses ServerOptions.BindAddr. An unparseable value is
// treated as absent, never a hard error.
func parseBindAddr(raw string) net.IP {
	if raw == "" {
		return nil
	}
	return net.ParseIP(raw)
}
