package server

import (
	"bytes"
	"io/ioutil"
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/protocol"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.Out = ioutil.Discard
	return log
}

// testPeer returns a peer whose queued messages are read straight from its
// outbound channel; no write loop runs.
func testPeer(t *testing.T) *Peer {
	t.Helper()
	local, remote := net.Pipe()
	t.Cleanup(func() {
		local.Close()
		remote.Close()
	})
	return newPeer(local, peerOptions{queueSize: 64}, testLogger())
}

func nextQueued(t *testing.T, peer *Peer) *protocol.Message {
	t.Helper()
	select {
	case line, ok := <-peer.outbound:
		if !ok {
			t.Fatal("peer closed, expected a message")
		}
		msg, err := protocol.NewDecoder(bytes.NewReader(line), 0).Next()
		if err != nil {
			t.Fatalf("could not decode %q: %v", line, err)
		}
		return msg
	default:
		t.Fatal("no message queued")
	}
	return nil
}

func expectQueued(t *testing.T, peer *Peer, kind protocol.Kind) *protocol.Message {
	t.Helper()
	msg := nextQueued(t, peer)
	if msg.Kind() != kind {
		t.Fatalf("expected message of kind %d, got %s", kind, msg.Raw)
	}
	return msg
}

func expectNothingQueued(t *testing.T, peer *Peer) {
	t.Helper()
	select {
	case line, ok := <-peer.outbound:
		if ok {
			t.Fatalf("expected no message, got %s", line)
		}
	default:
	}
}

func expectPeerClosed(t *testing.T, peer *Peer) {
	t.Helper()
	select {
	case line, ok := <-peer.outbound:
		if ok {
			t.Fatalf("expected peer to be closed, got %s", line)
		}
	default:
		t.Fatal("peer still open")
	}
}

// startedSession returns a session with both slots filled, the join
// messages already consumed.
func startedSession(t *testing.T, config game.GameConfig, seed int64) (*Session, *Peer, *Peer) {
	t.Helper()
	session, err := NewSession(config, seed, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	a, b := testPeer(t), testPeer(t)
	for i, peer := range []*Peer{a, b} {
		slot, err := session.Join(peer)
		if err != nil {
			t.Fatal(err)
		}
		if slot != i {
			t.Fatalf("expected slot %d, got %d", i, slot)
		}
	}

	for _, peer := range []*Peer{a, b} {
		expectQueued(t, peer, protocol.KindSetID)
		expectQueued(t, peer, protocol.KindGameStart)
	}
	return session, a, b
}

// wallSession is a 9x9 session whose mines fill column 2. Revealing (4, 0)
// opens columns 0 and 1 and nothing else.
func wallSession(t *testing.T) (*Session, *Peer, *Peer) {
	t.Helper()
	config := game.NewGameConfig()
	config.NumMines = config.Rows

	session, a, b := startedSession(t, config, 1)

	mines := make([]game.Pos, config.Rows)
	for row := range mines {
		mines[row] = game.Pos{Row: row, Col: 2}
	}
	if err := session.board.PlantMines(mines); err != nil {
		t.Fatal(err)
	}
	session.firstClickDone = true
	return session, a, b
}

func TestJoin(t *testing.T) {
	session, err := NewSession(game.NewGameConfig(), 1, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	a, b := testPeer(t), testPeer(t)

	if _, err := session.Join(a); err != nil {
		t.Fatal(err)
	}
	if msg := expectQueued(t, a, protocol.KindSetID); *msg.SetID != 0 {
		t.Errorf("expected set_id 0, got %d", *msg.SetID)
	}
	expectNothingQueued(t, a)
	if session.Active() {
		t.Error("session active with one peer")
	}
	if session.Current() != game.NoPlayer {
		t.Error("turn assigned before the match started")
	}

	if _, err := session.Join(b); err != nil {
		t.Fatal(err)
	}
	if msg := expectQueued(t, b, protocol.KindSetID); *msg.SetID != 1 {
		t.Errorf("expected set_id 1, got %d", *msg.SetID)
	}
	expectQueued(t, a, protocol.KindGameStart)
	expectQueued(t, b, protocol.KindGameStart)

	if !session.Active() {
		t.Error("session not active with two peers")
	}
	if session.Current() != 0 {
		t.Errorf("expected player 0 to move first, got %d", session.Current())
	}

	if _, err := session.Join(testPeer(t)); !errors.Is(err, ErrSessionFull) {
		t.Errorf("expected ErrSessionFull, got %v", err)
	}
}

func TestRevealBeforeStart(t *testing.T) {
	session, err := NewSession(game.NewGameConfig(), 1, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	a := testPeer(t)
	if _, err := session.Join(a); err != nil {
		t.Fatal(err)
	}
	expectQueued(t, a, protocol.KindSetID)

	err = session.Reveal(0, 4, 4)
	if !errors.Is(err, ErrNotStarted) || !IsProtocolViolation(err) {
		t.Errorf("expected ErrNotStarted violation, got %v", err)
	}
	if session.board.MinesPlaced() {
		t.Error("mines placed before the match started")
	}
	expectNothingQueued(t, a)
}

func TestFirstClick(t *testing.T) {
	session, a, b := startedSession(t, game.NewGameConfig(), 1)

	if err := session.Reveal(0, 4, 4); err != nil {
		t.Fatal(err)
	}

	for _, peer := range []*Peer{a, b} {
		mines := expectQueued(t, peer, protocol.KindMines)
		if len(mines.Mines) != game.DefaultNumMines {
			t.Errorf("expected %d mines, got %d", game.DefaultNumMines, len(mines.Mines))
		}
		for _, mine := range mines.Mines {
			if mine[0] >= 3 && mine[0] <= 5 && mine[1] >= 3 && mine[1] <= 5 {
				t.Errorf("mine at %v, inside the first click's safe zone", mine)
			}
		}

		msg := expectQueued(t, peer, protocol.KindLeftClick)
		if !msg.FirstClick {
			t.Error("first reveal not marked first_click")
		}
		if *msg.Player != 0 {
			t.Errorf("expected player 0, got %d", *msg.Player)
		}
		if msg.Outcome != game.OutcomeSafe.String() {
			t.Errorf("expected safe outcome, got %s", msg.Outcome)
		}
		if len(msg.Revealed) < 9 {
			t.Errorf("expected the safe zone to open, got %d cells", len(msg.Revealed))
		}
		if !msg.GameOver && (msg.Turn == nil || *msg.Turn != 1) {
			t.Errorf("expected turn to pass to player 1, got %s", msg.Raw)
		}
	}

	// Later reveals never carry the mines again
	if !session.GameOver() {
		cell := firstUnrevealedSafe(t, session.board)
		if err := session.Reveal(1, cell.Row, cell.Col); err != nil {
			t.Fatal(err)
		}
		msg := expectQueued(t, a, protocol.KindLeftClick)
		if msg.FirstClick {
			t.Error("second reveal marked first_click")
		}
	}
}

func firstUnrevealedSafe(t *testing.T, board *game.Board) game.Pos {
	t.Helper()
	var found *game.Pos
	board.Cells(func(cell *game.Cell) {
		if found == nil && !cell.IsMine() && !cell.IsRevealed() {
			pos := cell.Pos()
			found = &pos
		}
	})
	if found == nil {
		t.Fatal("no unrevealed safe cell")
	}
	return *found
}

func TestRevealOutOfTurn(t *testing.T) {
	session, a, b := startedSession(t, game.NewGameConfig(), 1)

	err := session.Reveal(1, 4, 4)
	if !errors.Is(err, ErrNotYourTurn) || !IsProtocolViolation(err) {
		t.Errorf("expected ErrNotYourTurn violation, got %v", err)
	}
	if session.board.MinesPlaced() {
		t.Error("out-of-turn reveal placed mines")
	}
	if session.Current() != 0 {
		t.Error("out-of-turn reveal changed the turn")
	}
	expectNothingQueued(t, a)
	expectNothingQueued(t, b)
}

func TestRevealOutOfBounds(t *testing.T) {
	session, a, _ := startedSession(t, game.NewGameConfig(), 1)

	err := session.Reveal(0, 9, 0)
	if !errors.Is(err, game.ErrOutOfBounds) || !IsProtocolViolation(err) {
		t.Errorf("expected ErrOutOfBounds violation, got %v", err)
	}
	if session.Current() != 0 {
		t.Error("rejected reveal changed the turn")
	}
	expectNothingQueued(t, a)
}

func TestRevealSequence(t *testing.T) {
	session, a, b := wallSession(t)

	// Columns 0 and 1 open; the clicked cell has no adjacent mines
	if err := session.Reveal(0, 4, 0); err != nil {
		t.Fatal(err)
	}
	msg := expectQueued(t, a, protocol.KindLeftClick)
	expectQueued(t, b, protocol.KindLeftClick)
	if len(msg.Revealed) != 18 {
		t.Errorf("expected 18 revealed cells, got %d", len(msg.Revealed))
	}
	if msg.Adjacent != 0 || msg.Scores != [2]int{0, 0} {
		t.Errorf("unexpected score for a zero cell: %s", msg.Raw)
	}
	if msg.Turn == nil || *msg.Turn != 1 {
		t.Errorf("expected turn 1, got %s", msg.Raw)
	}

	// Revealing an opened cell is rejected and keeps the turn
	err := session.Reveal(1, 0, 0)
	if !errors.Is(err, ErrAlreadyRevealed) {
		t.Errorf("expected ErrAlreadyRevealed, got %v", err)
	}
	if session.Current() != 1 {
		t.Error("rejected reveal changed the turn")
	}

	if err := session.Reveal(1, 4, 3); err != nil {
		t.Fatal(err)
	}
	msg = expectQueued(t, a, protocol.KindLeftClick)
	expectQueued(t, b, protocol.KindLeftClick)
	if msg.Adjacent != 3 {
		t.Errorf("expected 3 adjacent mines, got %d", msg.Adjacent)
	}
	if msg.Scores != [2]int{0, 3} {
		t.Errorf("expected scores [0 3], got %v", msg.Scores)
	}
	if msg.Turn == nil || *msg.Turn != 0 {
		t.Errorf("expected turn 0, got %s", msg.Raw)
	}
}

func TestRevealMine(t *testing.T) {
	session, a, b := wallSession(t)

	if err := session.Reveal(0, 4, 0); err != nil {
		t.Fatal(err)
	}
	expectQueued(t, a, protocol.KindLeftClick)
	expectQueued(t, b, protocol.KindLeftClick)

	if err := session.Reveal(1, 0, 2); err != nil {
		t.Fatal(err)
	}

	for _, peer := range []*Peer{a, b} {
		msg := expectQueued(t, peer, protocol.KindLeftClick)
		if msg.Outcome != game.OutcomeMine.String() {
			t.Errorf("expected mine outcome, got %s", msg.Outcome)
		}
		if !msg.GameOver {
			t.Error("mine did not end the game")
		}
		if msg.Turn != nil {
			t.Errorf("turn assigned after the game ended: %d", *msg.Turn)
		}
		if msg.Winner == nil || *msg.Winner != 0 {
			t.Errorf("expected player 0 to win, got %s", msg.Raw)
		}
		if len(msg.AllMines) != 9 {
			t.Errorf("expected every mine to be listed, got %d", len(msg.AllMines))
		}
	}

	if !session.GameOver() || session.Current() != game.NoPlayer {
		t.Error("session still playing after a mine was hit")
	}

	err := session.Reveal(0, 8, 8)
	if !errors.Is(err, ErrGameOver) {
		t.Errorf("expected ErrGameOver, got %v", err)
	}
	if err := session.ToggleFlag(0, []byte(`{"cmd":"right_click","x":8,"y":8}`)); !errors.Is(err, ErrGameOver) {
		t.Errorf("expected ErrGameOver for a flag, got %v", err)
	}
	expectNothingQueued(t, a)
	expectNothingQueued(t, b)
}

func TestRevealWin(t *testing.T) {
	config := game.NewGameConfig()
	config.Rows, config.Cols, config.NumMines = 4, 4, 1
	session, a, b := startedSession(t, config, 1)

	if err := session.board.PlantMines([]game.Pos{{Row: 0, Col: 0}}); err != nil {
		t.Fatal(err)
	}
	session.firstClickDone = true

	// Player 0 scores 1 for (0, 1), then player 1 opens the rest
	if err := session.Reveal(0, 0, 1); err != nil {
		t.Fatal(err)
	}
	expectQueued(t, a, protocol.KindLeftClick)
	expectQueued(t, b, protocol.KindLeftClick)

	if err := session.Reveal(1, 3, 3); err != nil {
		t.Fatal(err)
	}
	msg := expectQueued(t, a, protocol.KindLeftClick)
	expectQueued(t, b, protocol.KindLeftClick)

	if !msg.GameOver || !msg.Won {
		t.Fatalf("expected the board to be cleared, got %s", msg.Raw)
	}
	if msg.Winner == nil || *msg.Winner != 0 {
		t.Errorf("expected player 0 to win on score, got %s", msg.Raw)
	}
	if msg.Draw {
		t.Error("unexpected draw")
	}
}

func TestToggleFlagRelay(t *testing.T) {
	session, a, b := startedSession(t, game.NewGameConfig(), 1)

	raw := []byte(`{"cmd":"right_click","x":2,"y":3}`)
	// Either player may flag, whoever's turn it is
	if err := session.ToggleFlag(1, raw); err != nil {
		t.Fatal(err)
	}

	for _, peer := range []*Peer{a, b} {
		msg := expectQueued(t, peer, protocol.KindRightClick)
		if !bytes.Equal(msg.Raw, raw) {
			t.Errorf("expected %s relayed verbatim, got %s", raw, msg.Raw)
		}
	}
	if session.Current() != 0 {
		t.Error("flag changed the turn")
	}
}

func TestLeave(t *testing.T) {
	session, a, b := startedSession(t, game.NewGameConfig(), 1)

	session.Leave(b)

	expectQueued(t, a, protocol.KindDisconnect)
	expectPeerClosed(t, a)
	expectPeerClosed(t, b)

	if !session.GameOver() {
		t.Error("session still playing after a peer left")
	}

	// Leaving again is a no-op
	session.Leave(a)
	session.Leave(b)
}

func TestClose(t *testing.T) {
	session, a, b := startedSession(t, game.NewGameConfig(), 1)

	session.Close()

	for _, peer := range []*Peer{a, b} {
		expectQueued(t, peer, protocol.KindDisconnect)
		expectPeerClosed(t, peer)
	}
}
