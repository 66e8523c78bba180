package game

// Director plays a board automatically
type Director interface {
	/**
	 * Initialize the director
	 */
	Init(*Board)

	/**
	 * Choose the next cell to reveal, if any remain
	 */
	Act() (Pos, bool)
}
