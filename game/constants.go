package game

type Outcome int
type BoardState int

const (
	// OutcomeNone is returned when a reveal touched a flagged cell
	OutcomeNone Outcome = iota
	OutcomeSafe
	OutcomeMine
)

func (outcome Outcome) String() string {
	switch outcome {
	case OutcomeSafe:
		return "safe"
	case OutcomeMine:
		return "mine"
	default:
		return "none"
	}
}

const (
	Lost BoardState = iota
	Won
	Ongoing
)

func (state BoardState) String() string {
	switch state {
	case Lost:
		return "loss"
	case Won:
		return "win"
	default:
		return "ongoing"
	}
}

const (
	DefaultRows     = 9
	DefaultCols     = 9
	DefaultNumMines = 10

	// Largest possible safe zone: the first-revealed cell plus its 8 neighbors
	maxSafeZone = 9
)
