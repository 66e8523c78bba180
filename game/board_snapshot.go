package game

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var ErrInvalidSnapshot = errors.New("invalid board snapshot")

type BoardSnapshot struct {
	Seed            int64  `yaml:"seed"`
	SerializedBoard string `yaml:"board"`
}

func (board *Board) Snapshot() *BoardSnapshot {
	rows := make([]string, board.rows)
	for row := range board.cells {
		var builder strings.Builder
		for col := range board.cells[row] {
			builder.WriteString(board.cells[row][col].serialize())
		}
		rows[row] = builder.String()
	}

	return &BoardSnapshot{
		Seed:            board.seed,
		SerializedBoard: strings.Join(rows, "\n"),
	}
}

func (snapshot *BoardSnapshot) Serialize() (string, error) {
	out, err := yaml.Marshal(snapshot)
	if err != nil {
		return "", errors.Wrap(err, "marshal snapshot")
	}
	return string(out), nil
}

// CreateBoard rebuilds the board described by the snapshot, with mines
// placed. If fresh is set, revealed and flagged markers are dropped.
func (snapshot *BoardSnapshot) CreateBoard(fresh bool) (*Board, error) {
	rows := strings.Split(strings.TrimRight(snapshot.SerializedBoard, "\n"), "\n")

	height := len(rows)
	width := len(rows[0])
	if width == 0 {
		return nil, errors.Wrap(ErrInvalidSnapshot, "empty board")
	}

	board := createBoard(height, width, 0, snapshot.Seed)

	var mines, revealed []*Cell
	for row, line := range rows {
		if len(line) != width {
			return nil, errors.Wrapf(ErrInvalidSnapshot, "row %d has %d cells, expected %d", row, len(line), width)
		}

		for col, c := range line {
			cell := board.CellAt(row, col)
			isRevealed, ok := cell.deserialize(c)
			if !ok {
				return nil, errors.Wrapf(ErrInvalidSnapshot, "unknown cell %q at (%d, %d)", c, row, col)
			}

			if fresh {
				cell.isFlagged = false
				cell.isLosingMine = false
				isRevealed = false
			}

			if cell.isMine {
				// setMine is a no-op on cells already marked
				cell.isMine = false
				mines = append(mines, cell)
			}
			if cell.isFlagged {
				board.numFlags++
			}
			if isRevealed {
				revealed = append(revealed, cell)
			}
		}
	}

	for _, cell := range mines {
		cell.setMine()
	}
	board.numMines = len(mines)
	board.minesPlaced = true

	for _, cell := range revealed {
		cell.reveal()
		if cell.isLosingMine {
			board.lose()
		}
	}
	if board.state == Ongoing && board.IsWon() {
		board.win()
	}

	return board, nil
}

func LoadSnapshot(in string) (*BoardSnapshot, error) {
	var snapshot BoardSnapshot
	if err := yaml.Unmarshal([]byte(in), &snapshot); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot")
	}
	return &snapshot, nil
}
