package socksproxy

import (
	"encoding/binary"
	"io"
	"log"
	"net"
)

// serveSOCKS4 runs the SOCKS4/SOCKS4a request. cd is the command byte
// already read by serve's version dispatch.
func (s *session) serveSOCKS4(cd byte) {
	var rest [6]byte
	if _, err := io.ReadFull(s.inbound, rest[:]); err != nil {
		return
	}
	port := binary.BigEndian.Uint16(rest[0:2])
	dstIP := net.IPv4(rest[2], rest[3], rest[4], rest[5])

	// 0.0.0.x with x != 0 signals SOCKS4a.
	is4a := rest[2] == 0 && rest[3] == 0 && rest[4] == 0 && rest[5] != 0

	userID, err := s.readNulString()
	if err != nil {
		return
	}

	var hostname string
	if is4a {
		hostname, err = s.readNulString()
		if err != nil {
			return
		}
	}

	if userID != s.opts.Username {
		log.Printf("[socksproxy] conn %d: socks4 auth failed for userid %q", s.id, userID)
		s.writeSOCKS4Reply(socks4Rejected, port, dstIP)
		return
	}

	if cd != socks4CmdConnect {
		log.Printf("[socksproxy] conn %d: unsupported socks4 command 0x%02x", s.id, cd)
		s.writeSOCKS4Reply(socks4Rejected, port, dstIP)
		return
	}

	host := dstIP.String()
	resolve := is4a
	if is4a {
		host = hostname
	}

	_, err = s.connectHost(host, port, resolve)
	if err != nil {
		log.Printf("[socksproxy] conn %d: socks4 connect to %s:%d failed: %v", s.id, host, port, err)
		s.writeSOCKS4Reply(socks4CannotConnectHost, port, dstIP)
		return
	}

	s.writeSOCKS4Reply(socks4Granted, port, dstIP)
	s.relay()
}

func (s *session) writeSOCKS4Reply(code byte, port uint16, ip net.IP) {
	buf := make([]byte, 8)
	buf[0] = 0x00
	buf[1] = code
	binary.BigEndian.PutUint16(buf[2:4], port)
	copy(buf[4:8], ip.To4())
	s.inbound.Write(buf)
}

// readNulString reads bytes up to and including the first 0x00 byte from
// inbound, returning the bytes before it. It reads one byte at a time
// deliberately: a buffered reader would pull ahead past the NUL and into
// whatever the client sends next, and on a granted CONNECT that next byte
// belongs to the relay, not to request parsing.
func (s *session) readNulString() (string, error) {
	var b []byte
	var one [1]byte
	for {
		if _, err := io.ReadFull(s.inbound, one[:]); err != nil {
			return "", err
		}
		if one[0] == 0x00 {
			return string(b), nil
		}
		b = append(b, one[0])
	}
}
