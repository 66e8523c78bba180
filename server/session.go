package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/protocol"
)

// Session is one match between two peers. It is the only writer of its board
// and turn state; every mutation, and the broadcast describing it, happens
// under the session lock so both peers observe transitions in the same order.
type Session struct {
	id     uuid.UUID
	config game.GameConfig
	log    logrus.FieldLogger

	mu       sync.Mutex
	peers    [2]*Peer
	numPeers int

	board          *game.Board
	tracker        *game.Tracker
	gameOver       bool
	firstClickDone bool
}

// NewSession creates a session awaiting its first peer. It fails if the
// board configuration cannot produce a playable board.
func NewSession(config game.GameConfig, seed int64, log logrus.FieldLogger) (*Session, error) {
	board, err := config.CreateBoard(seed)
	if err != nil {
		return nil, errors.Wrap(err, "create board")
	}

	id := uuid.New()
	return &Session{
		id:      id,
		config:  config,
		log:     log.WithField("session", id.String()),
		board:   board,
		tracker: game.NewTracker(),
	}, nil
}

func (session *Session) ID() uuid.UUID {
	return session.id
}

// Active reports whether both peers have joined
func (session *Session) Active() bool {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.numPeers == 2
}

func (session *Session) GameOver() bool {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.gameOver
}

// Current returns the player whose turn it is, or game.NoPlayer
func (session *Session) Current() int {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.tracker.Current()
}

func (session *Session) Scores() [2]int {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.tracker.Scores()
}

// Join assigns the peer the next free slot and tells it which one. The match
// starts when the second slot fills.
func (session *Session) Join(peer *Peer) (int, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.numPeers == len(session.peers) {
		return 0, ErrSessionFull
	}

	slot := session.numPeers
	session.peers[slot] = peer
	session.numPeers++

	session.sendTo(peer, protocol.SetID{SetID: slot})
	session.log.WithFields(logrus.Fields{"slot": slot, "remote": peer.String()}).Info("peer joined")

	if slot == 1 {
		session.tracker.Start()
		session.broadcast(protocol.GameStart{GameStart: true})
		session.log.Info("match started")
	}

	return slot, nil
}

// Reveal applies a reveal request from the peer in the given slot and
// broadcasts its outcome. The first reveal of a match places the mines
// around it.
func (session *Session) Reveal(from, row, col int) error {
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.checkPlayable(); err != nil {
		return err
	}
	if !session.tracker.IsTurn(from) {
		return violation(ErrNotYourTurn)
	}
	if session.board.CellAt(row, col) == nil {
		return violation(errors.Wrapf(game.ErrOutOfBounds, "reveal (%d, %d)", row, col))
	}

	firstClick := !session.firstClickDone
	if firstClick {
		if err := session.board.PlaceMines(row, col); err != nil {
			return errors.Wrap(err, "place mines")
		}
		session.firstClickDone = true
	}

	result, err := session.board.Reveal(row, col)
	if err != nil {
		return errors.Wrap(err, "reveal")
	}
	if len(result.Revealed) == 0 {
		return violation(errors.Wrapf(ErrAlreadyRevealed, "(%d, %d)", row, col))
	}

	outcome := protocol.RevealOutcome{
		Cmd:        protocol.CmdLeftClick,
		X:          row,
		Y:          col,
		FirstClick: firstClick,
		Player:     from,
		Outcome:    result.Outcome.String(),
		Adjacent:   result.NumMines,
		Revealed:   make([]protocol.CellResult, len(result.Revealed)),
	}
	for i, cell := range result.Revealed {
		outcome.Revealed[i] = protocol.CellResult{cell.Row, cell.Col, cell.NumMines}
	}

	switch result.Outcome {
	case game.OutcomeMine:
		session.board.RevealAllMines()
		outcome.AllMines = coords(session.board.Mines())
		winner := 1 - from
		outcome.Winner = &winner
		session.endGame()

	case game.OutcomeSafe:
		session.tracker.Award(from, session.config.ScoreMode.Points(result))

		if session.board.IsWon() {
			outcome.Won = true
			if leader := session.tracker.Leader(); leader == game.NoPlayer {
				outcome.Draw = true
			} else {
				outcome.Winner = &leader
			}
			session.endGame()
		} else {
			session.tracker.Advance()
			turn := session.tracker.Current()
			outcome.Turn = &turn
		}
	}

	outcome.GameOver = session.gameOver
	outcome.Scores = session.tracker.Scores()

	if firstClick {
		session.broadcast(protocol.Mines{Mines: coords(session.board.Mines())})
	}
	session.broadcast(outcome)

	session.log.WithFields(logrus.Fields{
		"slot":     from,
		"cell":     result.Pos.String(),
		"outcome":  outcome.Outcome,
		"revealed": len(result.Revealed),
	}).Debug("reveal")

	if session.gameOver {
		session.log.WithFields(logrus.Fields{
			"result": session.board.State().String(),
			"scores": outcome.Scores,
		}).Info("match finished")
		session.saveSnapshot(false)
	}

	return nil
}

// ToggleFlag relays a flag toggle, as received, to both peers. Flags are not
// part of the authoritative board.
func (session *Session) ToggleFlag(from int, raw []byte) error {
	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.checkPlayable(); err != nil {
		return err
	}

	line := make([]byte, 0, len(raw)+1)
	line = append(append(line, raw...), '\n')
	session.broadcastLine(line)

	session.log.WithField("slot", from).Debug("flag relayed")
	return nil
}

// Leave removes the peer from the session, ending the match. The remaining
// peer is told and disconnected.
func (session *Session) Leave(peer *Peer) {
	session.mu.Lock()
	defer session.mu.Unlock()

	slot := session.slotOf(peer)
	if slot < 0 {
		return
	}
	session.peers[slot] = nil
	peer.Close()

	wasOver := session.gameOver
	session.endGame()

	session.broadcast(protocol.Disconnect{Disconnect: true})
	session.closePeers()

	session.log.WithField("slot", slot).Info("peer left, session closed")

	if !wasOver {
		session.saveSnapshot(true)
	}
}

// Close ends the session, notifying and disconnecting every peer
func (session *Session) Close() {
	session.mu.Lock()
	defer session.mu.Unlock()

	wasOver := session.gameOver
	session.endGame()

	session.broadcast(protocol.Disconnect{Disconnect: true})
	session.closePeers()

	if !wasOver {
		session.saveSnapshot(true)
	}
}

func (session *Session) checkPlayable() error {
	if session.gameOver {
		return violation(ErrGameOver)
	}
	if session.tracker.State() == game.Waiting {
		return violation(ErrNotStarted)
	}
	return nil
}

func (session *Session) endGame() {
	session.gameOver = true
	session.tracker.End()
}

func (session *Session) slotOf(peer *Peer) int {
	for slot, p := range session.peers {
		if p != nil && p == peer {
			return slot
		}
	}
	return -1
}

func (session *Session) closePeers() {
	for slot, peer := range session.peers {
		if peer != nil {
			peer.Close()
			session.peers[slot] = nil
		}
	}
}

func (session *Session) broadcast(msg interface{}) {
	line, err := protocol.Marshal(msg)
	if err != nil {
		session.log.WithError(err).Error("failed to encode message")
		return
	}
	session.broadcastLine(line)
}

func (session *Session) broadcastLine(line []byte) {
	for _, peer := range session.peers {
		if peer != nil {
			// A failed send aborts the connection; its read loop then releases it
			peer.Send(line)
		}
	}
}

func (session *Session) sendTo(peer *Peer, msg interface{}) {
	line, err := protocol.Marshal(msg)
	if err != nil {
		session.log.WithError(err).Error("failed to encode message")
		return
	}
	peer.Send(line)
}

func (session *Session) saveSnapshot(abandoned bool) {
	if !session.board.MinesPlaced() {
		return
	}

	path, err := session.config.SaveSnapshot(session.board, abandoned, time.Now())
	if err != nil {
		session.log.WithError(err).Warn("failed to save board snapshot")
	} else if path != "" {
		session.log.WithField("path", path).Info("saved board snapshot")
	}
}

func coords(positions []game.Pos) []protocol.Coord {
	out := make([]protocol.Coord, len(positions))
	for i, pos := range positions {
		out[i] = protocol.Coord{pos.Row, pos.Col}
	}
	return out
}
