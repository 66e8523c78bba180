package random

import (
	"github.com/they4kman/duelsweep/game"
)

// Director reveals cells in a random order fixed at Init
type Director struct {
	board *game.Board
	order []game.Pos
}

func (director *Director) Init(board *game.Board) {
	director.board = board
	director.order = make([]game.Pos, 0, board.NumCells())

	board.Cells(func(cell *game.Cell) {
		director.order = append(director.order, cell.Pos())
	})

	board.Rand().Shuffle(len(director.order), func(i, j int) {
		director.order[i], director.order[j] = director.order[j], director.order[i]
	})
}

func (director *Director) Act() (game.Pos, bool) {
	for len(director.order) > 0 {
		pos := director.order[0]
		cell := director.board.CellAt(pos.Row, pos.Col)
		if !cell.IsRevealed() && !cell.IsFlagged() {
			return pos, true
		}
		director.order = director.order[1:]
	}
	return game.Pos{}, false
}

var _ game.Director = (*Director)(nil)
