package server

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Peer is one connected player. Outbound messages are queued and written by
// a dedicated goroutine, so a slow peer never blocks its session.
type Peer struct {
	conn     net.Conn
	log      logrus.FieldLogger
	limiter  *rate.Limiter
	outbound chan []byte

	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

type peerOptions struct {
	queueSize    int
	writeTimeout time.Duration
	messageRate  float64
	messageBurst int
}

func newPeer(conn net.Conn, opts peerOptions, log logrus.FieldLogger) *Peer {
	peer := &Peer{
		conn:         conn,
		log:          log.WithField("remote", conn.RemoteAddr().String()),
		outbound:     make(chan []byte, opts.queueSize),
		writeTimeout: opts.writeTimeout,
		done:         make(chan struct{}),
	}
	if opts.messageRate > 0 {
		peer.limiter = rate.NewLimiter(rate.Limit(opts.messageRate), opts.messageBurst)
	}
	return peer
}

func (peer *Peer) String() string {
	return peer.conn.RemoteAddr().String()
}

// Send queues an encoded line. It returns false if the peer is closed or too
// slow to keep up, in which case the connection is aborted.
func (peer *Peer) Send(line []byte) bool {
	peer.mu.Lock()
	defer peer.mu.Unlock()

	if peer.closed {
		return false
	}

	select {
	case peer.outbound <- line:
		return true
	default:
		peer.log.Warn("peer too slow to receive, dropping connection")
		peer.closed = true
		close(peer.outbound)
		peer.conn.Close()
		return false
	}
}

// Close stops accepting messages; the connection is closed once everything
// queued has been written.
func (peer *Peer) Close() {
	peer.mu.Lock()
	defer peer.mu.Unlock()

	if !peer.closed {
		peer.closed = true
		close(peer.outbound)
	}
}

// Abort closes the connection immediately, discarding queued messages
func (peer *Peer) Abort() {
	peer.Close()
	peer.conn.Close()
}

// Done is closed once the write loop has exited and the connection is closed
func (peer *Peer) Done() <-chan struct{} {
	return peer.done
}

func (peer *Peer) allow() bool {
	return peer.limiter == nil || peer.limiter.Allow()
}

func (peer *Peer) writeLoop() {
	defer close(peer.done)
	defer peer.conn.Close()

	for line := range peer.outbound {
		if peer.writeTimeout > 0 {
			peer.conn.SetWriteDeadline(time.Now().Add(peer.writeTimeout))
		}

		if _, err := peer.conn.Write(line); err != nil {
			// The read loop fails on the closed connection and releases the peer
			peer.log.WithError(err).Info("error writing to peer")
			return
		}
	}
}
