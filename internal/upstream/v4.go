package upstream

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

const (
	v4Version = 0x04
	v4Connect = 0x01

	v4Granted       = 0x5a
	v4Rejected      = 0x5b
	v4IdentRequired = 0x5c
	v4IdentFailed   = 0x5d
)

// identUser is sent as the SOCKS4 USERID field when the caller supplied a
// username; upstream proxies that require an identd-style user check it.
func identUser(username string) string {
	if username != "" {
		return username
	}
	return "anonymous"
}

// handshakeV4 speaks SOCKS4 (Version4) or SOCKS4a (Version4a) to conn,
// already dialed to the upstream proxy.
func handshakeV4(conn net.Conn, opts Options) error {
	is4a := opts.Version == Version4a

	ip := net.IPv4(0, 0, 0, 1) // 0.0.0.x with x != 0 signals SOCKS4a
	if !is4a {
		resolved, err := net.ResolveIPAddr("ip4", opts.TargetHost)
		if err != nil {
			return fmt.Errorf("upstream socks4: resolve %s: %w", opts.TargetHost, err)
		}
		v4 := resolved.IP.To4()
		if v4 == nil {
			return fmt.Errorf("upstream socks4: %s has no IPv4 address", opts.TargetHost)
		}
		ip = v4
	}

	req := make([]byte, 0, 9+len(opts.TargetHost)+1)
	req = append(req, v4Version, v4Connect)
	req = binary.BigEndian.AppendUint16(req, opts.TargetPort)
	req = append(req, ip.To4()...)
	req = append(req, identUser(opts.Username)...)
	req = append(req, 0x00)
	if is4a {
		req = append(req, opts.TargetHost...)
		req = append(req, 0x00)
	}

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("upstream socks4: write request: %w", err)
	}

	var resp [8]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return fmt.Errorf("upstream socks4: read reply: %w", err)
	}

	switch resp[1] {
	case v4Granted:
		return nil
	case v4IdentRequired, v4IdentFailed:
		return fmt.Errorf("upstream socks4: ident required/failed (0x%02x)", resp[1])
	case v4Rejected:
		return fmt.Errorf("upstream socks4: request rejected")
	default:
		return fmt.Errorf("upstream socks4: unexpected reply code 0x%02x", resp[1])
	}
}
