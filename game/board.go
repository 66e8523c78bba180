package game

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/they4kman/duelsweep/util/collections"
)

var (
	// ErrTooManyMines is a configuration error: the mines cannot fit outside
	// the safe zone of a first reveal.
	ErrTooManyMines   = errors.New("too many mines for board")
	ErrInvalidSize    = errors.New("board dimensions must be positive")
	ErrMinesPlaced    = errors.New("mines already placed")
	ErrMinesNotPlaced = errors.New("mines not placed yet")
	ErrOutOfBounds    = errors.New("cell out of bounds")
)

type Board struct {
	rows, cols int // in number of cells
	numMines   int
	cells      [][]Cell

	minesPlaced bool
	state       BoardState
	numFlags    int
	numRevealed int // revealed non-mine cells

	seed int64
	rand *rand.Rand
}

// RevealedCell is a cell uncovered by a reveal, with its adjacent mine count
type RevealedCell struct {
	Pos
	NumMines int
}

type RevealResult struct {
	Pos     Pos
	Outcome Outcome
	// Adjacent mine count of the targeted cell; zero for mines
	NumMines int
	// Cells uncovered by this reveal, in flood order, the targeted cell first.
	// Empty if the reveal changed nothing.
	Revealed []RevealedCell
}

// ValidateDimensions checks that a board of the given size can always honour
// a safe first reveal.
func ValidateDimensions(rows, cols, numMines int) error {
	if rows <= 0 || cols <= 0 {
		return errors.Wrapf(ErrInvalidSize, "%dx%d", rows, cols)
	}
	if numMines < 0 {
		return errors.Wrapf(ErrTooManyMines, "negative mine count %d", numMines)
	}
	if numMines > rows*cols-maxSafeZone {
		return errors.Wrapf(ErrTooManyMines, "%d mines on a %dx%d board", numMines, rows, cols)
	}
	return nil
}

// NewBoard creates a board with no mines placed. Mines are placed by the
// first call to PlaceMines.
func NewBoard(rows, cols, numMines int, seed int64) (*Board, error) {
	if err := ValidateDimensions(rows, cols, numMines); err != nil {
		return nil, err
	}
	return createBoard(rows, cols, numMines, seed), nil
}

func createBoard(rows, cols, numMines int, seed int64) *Board {
	board := &Board{
		state:    Ongoing,
		rows:     rows,
		cols:     cols,
		numMines: numMines,
		cells:    make([][]Cell, rows),
		seed:     seed,
		rand:     rand.New(rand.NewSource(seed)),
	}

	for row := 0; row < rows; row++ {
		board.cells[row] = make([]Cell, cols)

		for col := 0; col < cols; col++ {
			cell := &board.cells[row][col]
			cell.board = board
			cell.row, cell.col = row, col
		}
	}

	return board
}

func (board *Board) Rows() int {
	return board.rows
}

func (board *Board) Cols() int {
	return board.cols
}

func (board *Board) NumCells() int {
	return board.rows * board.cols
}

func (board *Board) NumMines() int {
	return board.numMines
}

func (board *Board) Seed() int64 {
	return board.seed
}

func (board *Board) Rand() *rand.Rand {
	return board.rand
}

func (board *Board) State() BoardState {
	return board.state
}

func (board *Board) MinesPlaced() bool {
	return board.minesPlaced
}

// NumRevealed is the number of revealed non-mine cells
func (board *Board) NumRevealed() int {
	return board.numRevealed
}

// RemainingMines is the mine count minus the number of flags
func (board *Board) RemainingMines() int {
	return board.numMines - board.numFlags
}

func (board *Board) CellAt(row, col int) *Cell {
	if row >= 0 && col >= 0 && row < board.rows && col < board.cols {
		return &board.cells[row][col]
	}
	return nil
}

// Cells calls visit with every cell, row by row
func (board *Board) Cells(visit func(*Cell)) {
	for row := range board.cells {
		for col := range board.cells[row] {
			visit(&board.cells[row][col])
		}
	}
}

// Mines returns the positions of all mines, row by row
func (board *Board) Mines() []Pos {
	mines := make([]Pos, 0, board.numMines)
	board.Cells(func(cell *Cell) {
		if cell.isMine {
			mines = append(mines, cell.Pos())
		}
	})
	return mines
}

// PlaceMines randomly places the board's mines anywhere except the safe zone:
// the given cell and its neighbors.
func (board *Board) PlaceMines(safeRow, safeCol int) error {
	if board.minesPlaced {
		return ErrMinesPlaced
	}

	safeCell := board.CellAt(safeRow, safeCol)
	if safeCell == nil {
		return errors.Wrapf(ErrOutOfBounds, "safe cell (%d, %d)", safeRow, safeCol)
	}

	safeZone := collections.NewSet[int]()
	safeCell.SelfNeighbors(func(cell *Cell) {
		safeZone.Add(cell.idx())
	})

	// Store candidate cells, to shuffle later and fill mines
	candidates := make([]*Cell, 0, board.NumCells()-len(safeZone))
	board.Cells(func(cell *Cell) {
		if !safeZone.Contains(cell.idx()) {
			candidates = append(candidates, cell)
		}
	})

	if board.numMines > len(candidates) {
		return errors.Wrapf(ErrTooManyMines, "%d mines, %d placeable cells", board.numMines, len(candidates))
	}

	board.rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, cell := range candidates[:board.numMines] {
		cell.setMine()
	}

	board.minesPlaced = true
	return nil
}

// PlantMines places mines at exactly the given positions, as received from
// the authoritative side of a match.
func (board *Board) PlantMines(mines []Pos) error {
	if board.minesPlaced {
		return ErrMinesPlaced
	}

	cells := make([]*Cell, 0, len(mines))
	for _, pos := range mines {
		cell := board.CellAt(pos.Row, pos.Col)
		if cell == nil {
			return errors.Wrapf(ErrOutOfBounds, "mine %v", pos)
		}
		cells = append(cells, cell)
	}

	numMines := 0
	for _, cell := range cells {
		if !cell.isMine {
			cell.setMine()
			numMines++
		}
	}

	board.numMines = numMines
	board.minesPlaced = true
	return nil
}

// Reveal uncovers a cell. Revealing a mine loses the game; revealing a cell
// without neighboring mines also reveals the connected region of such cells
// and its border. Flagged or already-revealed cells are left untouched.
func (board *Board) Reveal(row, col int) (RevealResult, error) {
	cell := board.CellAt(row, col)
	if cell == nil {
		return RevealResult{}, errors.Wrapf(ErrOutOfBounds, "reveal (%d, %d)", row, col)
	}
	if !board.minesPlaced {
		return RevealResult{}, ErrMinesNotPlaced
	}

	result := RevealResult{Pos: cell.Pos()}

	switch {
	case cell.isFlagged:
		result.Outcome = OutcomeNone
		return result, nil
	case cell.isMine:
		result.Outcome = OutcomeMine
		if !cell.isRevealed {
			cell.reveal()
			cell.isLosingMine = true
			result.Revealed = []RevealedCell{{Pos: cell.Pos()}}
			board.lose()
		}
		return result, nil
	}

	result.Outcome = OutcomeSafe
	result.NumMines = cell.NumMines()
	if cell.isRevealed {
		return result, nil
	}

	flood(cell, func(cell *Cell) {
		cell.reveal()
		result.Revealed = append(result.Revealed, RevealedCell{
			Pos:      cell.Pos(),
			NumMines: cell.NumMines(),
		})
	})

	if board.IsWon() {
		board.win()
	}

	return result, nil
}

// RevealAllMines reveals every unrevealed mine, returning their positions
func (board *Board) RevealAllMines() []Pos {
	var revealed []Pos
	board.Cells(func(cell *Cell) {
		if cell.isMine && !cell.isRevealed {
			cell.reveal()
			revealed = append(revealed, cell.Pos())
		}
	})
	return revealed
}

// ToggleFlag flips the flag on an unrevealed cell and returns whether the
// cell is now flagged. Revealed cells are left as they are.
func (board *Board) ToggleFlag(row, col int) (bool, error) {
	cell := board.CellAt(row, col)
	if cell == nil {
		return false, errors.Wrapf(ErrOutOfBounds, "flag (%d, %d)", row, col)
	}

	if !cell.isRevealed {
		cell.toggleFlagged()
	}
	return cell.isFlagged, nil
}

// IsWon reports whether every non-mine cell has been revealed
func (board *Board) IsWon() bool {
	return board.minesPlaced && board.numRevealed == board.NumCells()-board.numMines
}

func (board *Board) win() {
	board.state = Won
}

func (board *Board) lose() {
	board.state = Lost
}
