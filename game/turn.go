package game

import (
	"fmt"

	"github.com/pkg/errors"
)

type TurnState int

const (
	// Waiting for the second player to arrive
	Waiting TurnState = iota
	Playing
	GameOver
)

func (state TurnState) String() string {
	switch state {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	default:
		return "game over"
	}
}

// NoPlayer is the current player while no turn is in progress
const NoPlayer = -1

// Tracker is the alternating-turn state machine of a two-player match,
// along with each player's cumulative score.
type Tracker struct {
	state   TurnState
	current int
	scores  [2]int
}

func NewTracker() *Tracker {
	return &Tracker{state: Waiting, current: NoPlayer}
}

// Start hands the first turn to player 0
func (tracker *Tracker) Start() {
	if tracker.state != Waiting {
		return
	}
	tracker.state = Playing
	tracker.current = 0
}

func (tracker *Tracker) State() TurnState {
	return tracker.state
}

// Current returns the player whose turn it is, or NoPlayer
func (tracker *Tracker) Current() int {
	if tracker.state != Playing {
		return NoPlayer
	}
	return tracker.current
}

func (tracker *Tracker) IsTurn(player int) bool {
	return tracker.state == Playing && tracker.current == player
}

// Award adds points to a player's score
func (tracker *Tracker) Award(player, points int) {
	tracker.scores[player] += points
}

// Advance passes the turn to the other player
func (tracker *Tracker) Advance() {
	if tracker.state == Playing {
		tracker.current = 1 - tracker.current
	}
}

func (tracker *Tracker) End() {
	tracker.state = GameOver
}

func (tracker *Tracker) Scores() [2]int {
	return tracker.scores
}

// Leader returns the player with the higher score, or NoPlayer on a tie
func (tracker *Tracker) Leader() int {
	switch {
	case tracker.scores[0] > tracker.scores[1]:
		return 0
	case tracker.scores[1] > tracker.scores[0]:
		return 1
	default:
		return NoPlayer
	}
}

type ScoreMode int

const (
	// ScoreClicked awards only the clicked cell's adjacent mine count
	ScoreClicked ScoreMode = iota
	// ScoreCascade awards the adjacent mine counts of every newly revealed cell
	ScoreCascade
)

var ScoreModes = map[string]ScoreMode{
	"clicked": ScoreClicked,
	"cascade": ScoreCascade,
}

func (mode ScoreMode) String() string {
	for name, m := range ScoreModes {
		if m == mode {
			return name
		}
	}
	return fmt.Sprint(int(mode))
}

func ParseScoreMode(value string) (ScoreMode, error) {
	if mode, isValid := ScoreModes[value]; isValid {
		return mode, nil
	}
	return 0, errors.Errorf("invalid score mode %q", value)
}

// Points returns the score earned by a reveal
func (mode ScoreMode) Points(result RevealResult) int {
	if result.Outcome != OutcomeSafe || len(result.Revealed) == 0 {
		return 0
	}

	if mode == ScoreClicked {
		return result.NumMines
	}

	points := 0
	for _, cell := range result.Revealed {
		points += cell.NumMines
	}
	return points
}
