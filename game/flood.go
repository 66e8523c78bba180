package game

import (
	"github.com/gammazero/deque"

	"github.com/they4kman/duelsweep/util/collections"
)

type Visitor func(*Cell)

// flood visits cell and spreads through the neighbors of every visited cell
// that has no neighboring mines. Mines, flagged cells and already-revealed
// cells are never visited, and each cell is visited at most once.
func flood(cell *Cell, visit Visitor) {
	visited := collections.NewSet(cell.idx())

	var visitQueue deque.Deque
	visitQueue.PushBack(cell)

	for visitQueue.Len() > 0 {
		cell := visitQueue.PopFront().(*Cell)
		visit(cell)

		if cell.numMines != 0 {
			continue
		}

		cell.Neighbors(func(neighbor *Cell) {
			if neighbor.isMine || neighbor.isRevealed || neighbor.isFlagged {
				return
			}
			if visited.Contains(neighbor.idx()) {
				return
			}
			visited.Add(neighbor.idx())
			visitQueue.PushBack(neighbor)
		})
	}
}
