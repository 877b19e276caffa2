package socksproxy

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// session owns one accepted inbound connection and runs the SOCKS state
// machine to completion: version dispatch, method negotiation, optional
// auth, request parsing, reply, and (on success) the bidirectional relay.
type session struct {
	id      int64
	inbound *net.TCPConn

	// outbound is opened at most once, by connectHost, and read by
	// abortAndClose which can run concurrently on another goroutine
	// during Listener shutdown; outboundMu guards both.
	outboundMu sync.Mutex
	outbound   net.Conn

	opts      ServerOptions
	nextProxy *nextProxy

	abort   atomic.Bool
	scratch [scratchSize]byte
}

func (s *session) setOutbound(conn net.Conn) {
	s.outboundMu.Lock()
	s.outbound = conn
	s.outboundMu.Unlock()
}

func (s *session) closeOutbound() {
	s.outboundMu.Lock()
	conn := s.outbound
	s.outboundMu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// newSession snapshots opts and parses its NextProxy field once. A parse
// failure aborts session construction entirely (logged, no accept retry),
// per the Configuration error-handling policy.
func newSession(conn *net.TCPConn, id int64, opts ServerOptions) (*session, error) {
	np, err := parseNextProxy(opts.NextProxy)
	if err != nil {
		return nil, err
	}
	return &session{
		id:        id,
		inbound:   conn,
		opts:      opts,
		nextProxy: np,
	}, nil
}

// serve runs the protocol state machine for this session. It always
// closes the inbound connection (and the outbound one, if opened) before
// returning.
func (s *session) serve() {
	defer s.inbound.Close()
	defer s.closeOutbound()

	var hdr [2]byte
	if _, err := io.ReadFull(s.inbound, hdr[:]); err != nil {
		return
	}

	switch hdr[0] {
	case socks5Version:
		s.serveSOCKS5(hdr[1])
	case socks4Version:
		s.serveSOCKS4(hdr[1])
	default:
		// Unknown version: close silently, no bytes written.
		log.Printf("[socksproxy] conn %d: unknown version byte 0x%02x", s.id, hdr[0])
	}
}

// abortAndClose is called by the Listener on shutdown. It is safe to call
// concurrently with an in-flight serve(): the abort flag is read by the
// relay loop between I/O operations, and closing the sockets unblocks any
// blocked read/write immediately.
func (s *session) abortAndClose() {
	s.abort.Store(true)
	s.inbound.Close()
	s.closeOutbound()
}
