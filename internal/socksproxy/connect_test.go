package socksproxy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"testing"
	"time"
)

// fakeUpstreamSOCKS5 accepts one connection, grants any CONNECT request
// with no auth, and relays the resulting stream to target.
func fakeUpstreamSOCKS5(t *testing.T, target string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		var hdr [2]byte
		if _, err := io.ReadFull(conn, hdr[:]); err != nil {
			conn.Close()
			return
		}
		methods := make([]byte, hdr[1])
		io.ReadFull(conn, methods)
		conn.Write([]byte{0x05, 0x00})

		var req [4]byte
		io.ReadFull(conn, req[:])
		switch req[3] {
		case 0x01:
			var b [6]byte
			io.ReadFull(conn, b[:])
		case 0x03:
			var l [1]byte
			io.ReadFull(conn, l[:])
			b := make([]byte, int(l[0])+2)
			io.ReadFull(conn, b)
		case 0x04:
			var b [18]byte
			io.ReadFull(conn, b[:])
		}

		conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0})

		upstreamTarget, err := net.DialTimeout("tcp", target, time.Second)
		if err != nil {
			conn.Close()
			return
		}
		go func() { io.Copy(upstreamTarget, conn) }()
		io.Copy(conn, upstreamTarget)
	}()

	return ln.Addr().String()
}

func TestConnectChained_RelaysThroughUpstream(t *testing.T) {
	echoAddr := startEcho(t)
	upstreamAddr := fakeUpstreamSOCKS5(t, echoAddr)

	ln := startProxy(t, ServerOptions{
		NextProxy: fmt.Sprintf("socks5://%s", upstreamAddr),
	})

	conn := dial(t, ln.Addr().String())
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(3 * time.Second))

	conn.Write([]byte{0x05, 0x01, 0x00})
	var methodReply [2]byte
	io.ReadFull(conn, methodReply[:])

	domain := "example.invalid"
	req := []byte{0x05, 0x01, 0x00, 0x03, byte(len(domain))}
	req = append(req, domain...)
	req = binary.BigEndian.AppendUint16(req, 80)
	conn.Write(req)

	hdr := make([]byte, 5)
	if _, err := io.ReadFull(conn, hdr); err != nil {
		t.Fatalf("read reply header: %v", err)
	}
	if hdr[1] != repSuccess {
		t.Fatalf("connect reply REP = 0x%02x, want success", hdr[1])
	}
	if hdr[3] != atypDomain {
		t.Fatalf("reply ATYP = 0x%02x, want the requested domain echoed back (chained mode never resolves it locally)", hdr[3])
	}
	domainLen := int(hdr[4])
	rest := make([]byte, domainLen+2)
	io.ReadFull(conn, rest)
	if string(rest[:domainLen]) != domain {
		t.Fatalf("reply echoed domain %q, want %q", rest[:domainLen], domain)
	}

	msg := []byte("through-the-chain")
	conn.Write(msg)
	got := make([]byte, len(msg))
	if _, err := io.ReadFull(conn, got); err != nil {
		t.Fatalf("read echo through chain: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Fatalf("echo = %q, want %q", got, msg)
	}
}
