package server

import (
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/they4kman/duelsweep/game"
)

// Registry pairs arriving peers into sessions, in arrival order, and tracks
// which session owns each peer. A single lock guards the pending session, the
// active sessions and the ownership map.
type Registry struct {
	config game.GameConfig
	log    logrus.FieldLogger

	mu       sync.Mutex
	seeds    *rand.Rand
	pending  *Session
	sessions []*Session
	owners   map[*Peer]*Session
	closed   bool
}

// NewRegistry creates an empty registry. Each session's board is seeded from
// a generator seeded with seed.
func NewRegistry(config game.GameConfig, seed int64, log logrus.FieldLogger) *Registry {
	return &Registry{
		config: config,
		log:    log,
		seeds:  rand.New(rand.NewSource(seed)),
		owners: make(map[*Peer]*Session),
	}
}

// Accept pairs the peer with the pending session if there is one, otherwise
// it starts a new pending session. It returns the peer's session and slot.
func (registry *Registry) Accept(peer *Peer) (*Session, int, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.closed {
		return nil, 0, ErrRegistryClosed
	}

	if session := registry.pending; session != nil {
		registry.pending = nil

		slot, err := session.Join(peer)
		if err == nil {
			registry.sessions = append(registry.sessions, session)
			registry.owners[peer] = session
			return session, slot, nil
		}
		registry.log.WithError(err).Warn("pending session unavailable, starting a new one")
	}

	session, err := NewSession(registry.config, registry.seeds.Int63(), registry.log)
	if err != nil {
		return nil, 0, err
	}

	slot, err := session.Join(peer)
	if err != nil {
		return nil, 0, err
	}

	registry.pending = session
	registry.owners[peer] = session
	return session, slot, nil
}

// Release removes the peer's session from the registry and ends it,
// notifying the other peer. Releasing a peer whose session is already gone
// only closes the peer.
func (registry *Registry) Release(peer *Peer) {
	registry.mu.Lock()

	session, ok := registry.owners[peer]
	if !ok {
		registry.mu.Unlock()
		peer.Close()
		return
	}
	registry.remove(session)

	registry.mu.Unlock()

	session.Leave(peer)
}

// remove drops every reference to the session. Callers hold the lock.
func (registry *Registry) remove(session *Session) {
	if registry.pending == session {
		registry.pending = nil
	}

	for i, s := range registry.sessions {
		if s == session {
			registry.sessions = append(registry.sessions[:i], registry.sessions[i+1:]...)
			break
		}
	}

	for peer, s := range registry.owners {
		if s == session {
			delete(registry.owners, peer)
		}
	}
}

// Lookup returns the session owning the peer
func (registry *Registry) Lookup(peer *Peer) (*Session, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	session, ok := registry.owners[peer]
	return session, ok
}

// Sessions returns the active sessions, oldest first
func (registry *Registry) Sessions() []*Session {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	return append([]*Session(nil), registry.sessions...)
}

// Pending returns the session waiting for a second peer, if any
func (registry *Registry) Pending() *Session {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	return registry.pending
}

// Shutdown closes every session and refuses further peers
func (registry *Registry) Shutdown() {
	registry.mu.Lock()

	registry.closed = true
	sessions := registry.sessions
	if registry.pending != nil {
		sessions = append(sessions, registry.pending)
	}
	registry.pending = nil
	registry.sessions = nil
	registry.owners = make(map[*Peer]*Session)

	registry.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
