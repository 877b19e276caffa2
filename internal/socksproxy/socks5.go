package socksproxy

import (
	"encoding/binary"
	"io"
	"log"
	"net"
)

// serveSOCKS5 runs the SOCKS5 method negotiation, optional auth
// sub-negotiation, and request handling. nmethods is the second byte
// already read by serve's version dispatch.
func (s *session) serveSOCKS5(nmethods byte) {
	if nmethods == 0 {
		log.Printf("[socksproxy] conn %d: NMETHODS out of range", s.id)
		return
	}

	methods := s.scratch[:nmethods]
	if _, err := io.ReadFull(s.inbound, methods); err != nil {
		return
	}

	method := selectSOCKS5Method(methods, s.opts.Username != "")

	if _, err := s.inbound.Write([]byte{socks5Version, method}); err != nil {
		return
	}
	if method == authNoAccept {
		log.Printf("[socksproxy] conn %d: no acceptable SOCKS5 method", s.id)
		return
	}

	if method == authUserPass {
		if !s.socks5Auth() {
			return
		}
	}

	s.handleSOCKS5Request()
}

// selectSOCKS5Method scans methods in order and returns the first one the
// current auth policy accepts, or authNoAccept if none match.
func selectSOCKS5Method(methods []byte, authRequired bool) byte {
	for _, m := range methods {
		if authRequired {
			if m == authUserPass {
				return m
			}
			continue
		}
		if m == authNone || m == authUserPass {
			return m
		}
	}
	return authNoAccept
}

// socks5Auth performs the RFC 1929 username/password sub-negotiation.
// Returns true if authentication succeeded.
func (s *session) socks5Auth() bool {
	var hdr [2]byte
	if _, err := io.ReadFull(s.inbound, hdr[:]); err != nil {
		return false
	}
	if hdr[0] != authVersion {
		log.Printf("[socksproxy] conn %d: bad auth version 0x%02x", s.id, hdr[0])
		return false
	}
	ulen := int(hdr[1])
	if ulen == 0 {
		log.Printf("[socksproxy] conn %d: ULEN out of range", s.id)
		return false
	}

	// Read ULEN+1 bytes: the username (ULEN bytes) and the trailing PLEN
	// byte share this read, but only the first ULEN bytes are username.
	buf := s.scratch[:ulen+1]
	if _, err := io.ReadFull(s.inbound, buf); err != nil {
		return false
	}
	username := string(buf[:ulen])
	plen := int(buf[ulen])
	if plen == 0 {
		log.Printf("[socksproxy] conn %d: PLEN out of range", s.id)
		return false
	}

	passBuf := s.scratch[:plen]
	if _, err := io.ReadFull(s.inbound, passBuf); err != nil {
		return false
	}
	password := string(passBuf)

	ok := username == s.opts.Username && password == s.opts.Password
	status := byte(0x01)
	if ok {
		status = 0x00
	}
	if _, err := s.inbound.Write([]byte{authVersion, status}); err != nil {
		return false
	}
	return ok
}

// handleSOCKS5Request reads the CONNECT/BIND/UDP-ASSOCIATE request,
// attempts the outbound connect for CONNECT, writes the reply, and (only
// on a successful CONNECT) starts the relay.
func (s *session) handleSOCKS5Request() {
	buf := s.scratch[:5]
	if _, err := io.ReadFull(s.inbound, buf); err != nil {
		return
	}
	if buf[0] != socks5Version {
		log.Printf("[socksproxy] conn %d: bad request version 0x%02x", s.id, buf[0])
		return
	}
	cmd := buf[1]
	atyp := buf[3]

	var (
		ip     net.IP
		domain string
		port   uint16
	)

	switch atyp {
	case atypIPv4:
		rest := s.scratch[5:10]
		if _, err := io.ReadFull(s.inbound, rest); err != nil {
			return
		}
		addr := make(net.IP, net.IPv4len)
		addr[0] = buf[4]
		copy(addr[1:], rest[:3])
		ip = addr
		port = binary.BigEndian.Uint16(rest[3:5])

	case atypDomain:
		domainLen := int(buf[4])
		if domainLen == 0 {
			s.writeSOCKS5Reply(repGeneralFailure, nil, "", 0)
			return
		}
		rest := s.scratch[5 : 5+domainLen+2]
		if _, err := io.ReadFull(s.inbound, rest); err != nil {
			return
		}
		domain = string(rest[:domainLen])
		port = binary.BigEndian.Uint16(rest[domainLen : domainLen+2])

	case atypIPv6:
		rest := s.scratch[5:22]
		if _, err := io.ReadFull(s.inbound, rest); err != nil {
			return
		}
		addr := make(net.IP, net.IPv6len)
		addr[0] = buf[4]
		copy(addr[1:], rest[:15])
		ip = addr
		port = binary.BigEndian.Uint16(rest[15:17])

	default:
		log.Printf("[socksproxy] conn %d: unsupported ATYP 0x%02x", s.id, atyp)
		s.writeSOCKS5Reply(repGeneralFailure, nil, "", 0)
		return
	}

	var connectErr error
	if cmd == cmdConnect {
		host := domain
		if ip != nil {
			host = ip.String()
		}
		resolve := atyp == atypDomain && s.nextProxy == nil
		var resolvedIP net.IP
		resolvedIP, connectErr = s.connectHost(host, port, resolve)
		// A direct-mode domain CONNECT that resolved successfully echoes
		// the resolved endpoint, not the requested domain; chained mode
		// (and a direct-mode failure, where no endpoint is pinned down)
		// keep the domain-literal reply encoded below.
		if connectErr == nil && resolvedIP != nil {
			ip = resolvedIP
			domain = ""
		}
	} else {
		log.Printf("[socksproxy] conn %d: unsupported command 0x%02x", s.id, cmd)
	}

	rep := repSuccess
	if cmd == cmdConnect {
		rep = socks5ReplyFor(connectErr)
	}
	s.writeSOCKS5Reply(rep, ip, domain, port)

	if cmd != cmdConnect {
		return
	}
	if connectErr != nil {
		return
	}

	s.relay()
}

// writeSOCKS5Reply encodes and writes a SOCKS5 reply. ip, when non-nil,
// takes priority and is encoded as the resolved BND.ADDR: callers pass the
// request's own address for an IP-typed request, and the winning resolved
// address for a direct-mode domain CONNECT that succeeded. domain is the
// fallback for a domain-name request with no resolved endpoint to report
// (chained mode, where resolution happens upstream, or a direct-mode
// connect failure) and is encoded literally. With neither an IP nor a
// domain known, the reply falls back to 0.0.0.0:0.
func (s *session) writeSOCKS5Reply(rep byte, ip net.IP, domain string, port uint16) {
	buf := make([]byte, 0, 4+1+255+2)
	buf = append(buf, socks5Version, rep, 0x00)

	switch {
	case ip != nil:
		if v4 := ip.To4(); v4 != nil {
			buf = append(buf, atypIPv4)
			buf = append(buf, v4...)
		} else {
			buf = append(buf, atypIPv6)
			buf = append(buf, ip.To16()...)
		}
	case domain != "":
		buf = append(buf, atypDomain, byte(len(domain)))
		buf = append(buf, domain...)
	default:
		buf = append(buf, atypIPv4, 0, 0, 0, 0)
		port = 0
	}

	buf = binary.BigEndian.AppendUint16(buf, port)
	s.inbound.Write(buf)
}
