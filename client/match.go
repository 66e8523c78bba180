package client

import (
	"github.com/pkg/errors"

	"github.com/they4kman/duelsweep/game"
	"github.com/they4kman/duelsweep/protocol"
)

// ErrDesync means the local board disagrees with a reveal outcome from the server
var ErrDesync = errors.New("local board out of sync with server")

// Match is a peer's view of a match, rebuilt from the server's messages. The
// board mirrors the authoritative one: mines are planted when the server
// announces them and reveals run the same flood fill locally.
type Match struct {
	ID           int
	Started      bool
	Over         bool
	Disconnected bool
	Turn         int
	Scores       [2]int
	// Set once the game ends; game.NoPlayer on a draw
	Winner int

	Board *game.Board
}

// NewMatch creates an empty view; seed only drives the board's Rand
func NewMatch(config game.GameConfig, seed int64) (*Match, error) {
	board, err := config.CreateBoard(seed)
	if err != nil {
		return nil, err
	}
	return &Match{
		ID:     game.NoPlayer,
		Turn:   game.NoPlayer,
		Winner: game.NoPlayer,
		Board:  board,
	}, nil
}

// MyTurn reports whether this peer may reveal a cell
func (match *Match) MyTurn() bool {
	return match.Started && !match.Over && match.ID != game.NoPlayer && match.Turn == match.ID
}

// Apply updates the view with one message from the server
func (match *Match) Apply(msg *protocol.Message) error {
	switch msg.Kind() {
	case protocol.KindSetID:
		match.ID = *msg.SetID

	case protocol.KindGameStart:
		match.Started = true
		match.Turn = 0

	case protocol.KindMines:
		mines := make([]game.Pos, len(msg.Mines))
		for i, mine := range msg.Mines {
			mines[i] = game.Pos{Row: mine[0], Col: mine[1]}
		}
		return match.Board.PlantMines(mines)

	case protocol.KindLeftClick:
		return match.applyReveal(msg)

	case protocol.KindRightClick:
		x, y, ok := msg.Coords()
		if !ok {
			return errors.New("flag toggle without coordinates")
		}
		_, err := match.Board.ToggleFlag(x, y)
		return err

	case protocol.KindDisconnect:
		match.Over = true
		match.Disconnected = true
	}

	return nil
}

func (match *Match) applyReveal(msg *protocol.Message) error {
	x, y, ok := msg.Coords()
	if !ok {
		return errors.New("reveal without coordinates")
	}

	// A flag placed locally must not hide a cell the server revealed
	if cell := match.Board.CellAt(x, y); cell != nil && cell.IsFlagged() {
		if _, err := match.Board.ToggleFlag(x, y); err != nil {
			return err
		}
	}

	result, err := match.Board.Reveal(x, y)
	if err != nil {
		return err
	}
	if result.Outcome.String() != msg.Outcome {
		return errors.Wrapf(ErrDesync, "(%d, %d) is %s locally, %s on the server", x, y, result.Outcome, msg.Outcome)
	}
	if len(result.Revealed) > len(msg.Revealed) {
		return errors.Wrapf(ErrDesync, "(%d, %d) revealed %d cells locally, %d on the server", x, y, len(result.Revealed), len(msg.Revealed))
	}

	// Cells the local flood skipped because of local flags
	for _, cell := range msg.Revealed {
		if c := match.Board.CellAt(cell[0], cell[1]); c != nil && !c.IsRevealed() {
			if c.IsFlagged() {
				match.Board.ToggleFlag(cell[0], cell[1])
			}
			match.Board.Reveal(cell[0], cell[1])
		}
	}

	if result.Outcome == game.OutcomeMine {
		match.Board.RevealAllMines()
	}

	match.Scores = msg.Scores
	match.Over = msg.GameOver
	if msg.Turn != nil {
		match.Turn = *msg.Turn
	} else {
		match.Turn = game.NoPlayer
	}
	if msg.GameOver && msg.Winner != nil {
		match.Winner = *msg.Winner
	}

	return nil
}
