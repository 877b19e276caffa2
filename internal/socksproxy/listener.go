package socksproxy

import (
	"errors"
	"log"
	"net"
	"sync"
	"sync/atomic"
)

// acceptTasks is the number of goroutines sharing a single listening
// socket's Accept loop. It is a concurrency-pipelining knob, not a cap on
// concurrent sessions: sessions outlive the accept task that spawned them.
const acceptTasks = 32

// Listener is a process-lifetime SOCKS proxy endpoint. It binds one TCP
// address, accepts connections, tunes each accepted socket, and hands it
// to a new session. Construct with NewListener, then call Start.
type Listener struct {
	ln   *net.TCPListener
	opts ServerOptions

	nextID  atomic.Int64
	closed  atomic.Bool
	wg      sync.WaitGroup
	mu      sync.Mutex
	clients map[int64]*session
}

// NewListener binds addr (host:port) and returns a Listener ready to
// Start. opts is snapshotted per-session, never mutated by the Listener.
func NewListener(addr string, opts ServerOptions) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		ln:      ln,
		opts:    opts,
		clients: make(map[int64]*session),
	}
	l.nextID.Store(1) // connection ids start at 1, not 0
	return l, nil
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Start spawns the fixed accept-task pool and returns immediately; accept
// tasks run until Close is called; other accept errors are logged and the
// task keeps accepting.
func (l *Listener) Start() {
	for i := 0; i < acceptTasks; i++ {
		l.wg.Add(1)
		go l.acceptLoop()
	}
}

// Wait blocks until all accept tasks have exited (i.e. after Close).
func (l *Listener) Wait() {
	l.wg.Wait()
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	for {
		conn, err := l.ln.AcceptTCP()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("[socksproxy] accept error: %v", err)
			continue
		}

		tuneAcceptedSocket(conn)

		id := l.nextID.Add(1) - 1
		sess, err := newSession(conn, id, l.opts)
		if err != nil {
			log.Printf("[socksproxy] conn %d: session setup failed: %v", id, err)
			conn.Close()
			continue
		}

		l.mu.Lock()
		l.clients[id] = sess
		l.mu.Unlock()

		go l.run(sess)
	}
}

// run drives a session to completion and deregisters it, the Go
// equivalent of the session destructor removing itself from the server's
// client map.
func (l *Listener) run(sess *session) {
	defer func() {
		l.mu.Lock()
		delete(l.clients, sess.id)
		l.mu.Unlock()
	}()
	sess.serve()
}

// Close stops accepting new connections and closes every live session's
// sockets. It is idempotent and safe to call concurrently with accepts
// and running sessions.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	err := l.ln.Close()

	l.mu.Lock()
	sessions := make([]*session, 0, len(l.clients))
	for _, s := range l.clients {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		s.abortAndClose()
	}
	return err
}
