package game

import (
	"fmt"
)

// Pos addresses a cell by row and column
type Pos struct {
	Row, Col int
}

func (pos Pos) String() string {
	return fmt.Sprintf("(%d, %d)", pos.Row, pos.Col)
}

type Cell struct {
	board *Board

	row, col int
	numMines uint8

	isMine, isRevealed, isFlagged bool
	isLosingMine                  bool
}

func (cell *Cell) String() string {
	return fmt.Sprintf("Cell(%v, %v)", cell.row, cell.col)
}

func (cell *Cell) serialize() string {
	switch {
	case cell.isMine:
		switch {
		case cell.isLosingMine:
			return "*"
		case cell.isFlagged:
			return "F"
		default:
			return "O"
		}
	case cell.isFlagged:
		return "f"
	case cell.isRevealed:
		return "."
	default:
		return "#"
	}
}

// deserialize applies the mine and flag markers of a snapshot character.
// Revealed state is applied separately, once adjacency counts are known.
func (cell *Cell) deserialize(c rune) (revealed bool, ok bool) {
	switch c {
	case '*':
		cell.isMine = true
		cell.isLosingMine = true
		return true, true
	case 'F':
		cell.isMine = true
		cell.isFlagged = true
	case 'O':
		cell.isMine = true
	case 'f':
		cell.isFlagged = true
	case '.':
		return true, true
	case '#':
	default:
		return false, false
	}
	return false, true
}

func (cell *Cell) Pos() Pos {
	return Pos{Row: cell.row, Col: cell.col}
}

func (cell *Cell) Row() int {
	return cell.row
}

func (cell *Cell) Col() int {
	return cell.col
}

func (cell *Cell) IsMine() bool {
	return cell.isMine
}

func (cell *Cell) IsRevealed() bool {
	return cell.isRevealed
}

func (cell *Cell) IsFlagged() bool {
	return cell.isFlagged
}

// NumMines is the number of mines among the cell's neighbors
func (cell *Cell) NumMines() int {
	return int(cell.numMines)
}

// SelfNeighbors calls visit with the cell itself, then each of its neighbors
func (cell *Cell) SelfNeighbors(visit func(*Cell)) {
	visit(cell)
	cell.Neighbors(visit)
}

// Neighbors calls visit with each in-bounds neighbor of the cell
func (cell *Cell) Neighbors(visit func(*Cell)) {
	board := cell.board

	isAtTopBorder := cell.row < 1
	isAtBottomBorder := cell.row >= board.rows-1

	if cell.col >= 1 {
		visit(board.CellAt(cell.row, cell.col-1))

		if !isAtTopBorder {
			visit(board.CellAt(cell.row-1, cell.col-1))
		}
		if !isAtBottomBorder {
			visit(board.CellAt(cell.row+1, cell.col-1))
		}
	}

	if cell.col < board.cols-1 {
		visit(board.CellAt(cell.row, cell.col+1))

		if !isAtTopBorder {
			visit(board.CellAt(cell.row-1, cell.col+1))
		}
		if !isAtBottomBorder {
			visit(board.CellAt(cell.row+1, cell.col+1))
		}
	}

	if !isAtTopBorder {
		visit(board.CellAt(cell.row-1, cell.col))
	}
	if !isAtBottomBorder {
		visit(board.CellAt(cell.row+1, cell.col))
	}
}

func (cell *Cell) setMine() {
	if cell.isMine {
		return
	}
	cell.isMine = true
	cell.Neighbors(func(neighbor *Cell) {
		neighbor.numMines++
	})
}

func (cell *Cell) toggleFlagged() {
	cell.isFlagged = !cell.isFlagged

	if cell.isFlagged {
		cell.board.numFlags++
	} else {
		cell.board.numFlags--
	}
}

// reveal marks the cell revealed. A revealed cell is never considered flagged.
func (cell *Cell) reveal() {
	if cell.isRevealed {
		return
	}

	if cell.isFlagged {
		cell.isFlagged = false
		cell.board.numFlags--
	}
	cell.isRevealed = true

	if !cell.isMine {
		cell.board.numRevealed++
	}
}

func (cell *Cell) idx() int {
	return cell.row*cell.board.cols + cell.col
}
