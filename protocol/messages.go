package protocol

type Command string

const (
	CmdLeftClick  Command = "left_click"
	CmdRightClick Command = "right_click"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindSetID
	KindGameStart
	KindMines
	KindDisconnect
	KindLeftClick
	KindRightClick
)

// Coord is a [row, col] pair
type Coord [2]int

// CellResult is a revealed cell as [row, col, adjacent mine count]
type CellResult [3]int

// Server -> peer

// SetID assigns the peer its slot, 0 or 1
type SetID struct {
	SetID int `json:"set_id"`
}

type GameStart struct {
	GameStart bool `json:"game_start"`
}

// Mines carries the authoritative mine positions, once they are placed
type Mines struct {
	Mines []Coord `json:"mines"`
}

type Disconnect struct {
	Disconnect bool `json:"disconnect"`
}

// RevealOutcome is a reveal request relayed to both peers, annotated with
// its authoritative result.
type RevealOutcome struct {
	Cmd        Command      `json:"cmd"`
	X          int          `json:"x"`
	Y          int          `json:"y"`
	FirstClick bool         `json:"first_click"`
	Player     int          `json:"player"`
	Outcome    string       `json:"outcome"`
	Adjacent   int          `json:"adjacent"`
	Revealed   []CellResult `json:"revealed"`
	Scores     [2]int       `json:"scores"`
	// Player to move next; absent once the game is over
	Turn     *int    `json:"turn,omitempty"`
	GameOver bool    `json:"game_over"`
	Won      bool    `json:"won,omitempty"`
	Winner   *int    `json:"winner,omitempty"`
	Draw     bool    `json:"draw,omitempty"`
	AllMines []Coord `json:"all_mines,omitempty"`
}

// Peer -> server

// Click is a reveal (left_click) or flag toggle (right_click) request
type Click struct {
	Cmd Command `json:"cmd"`
	X   int     `json:"x"`
	Y   int     `json:"y"`
}

// Message is any decoded line, in either direction. Fields absent from the
// line are left zero; Kind tells which message it is.
type Message struct {
	// The line as received, without its terminator
	Raw []byte `json:"-"`

	SetID      *int    `json:"set_id"`
	GameStart  bool    `json:"game_start"`
	Mines      []Coord `json:"mines"`
	Disconnect bool    `json:"disconnect"`

	Cmd        Command      `json:"cmd"`
	X          *int         `json:"x"`
	Y          *int         `json:"y"`
	FirstClick bool         `json:"first_click"`
	Player     *int         `json:"player"`
	Outcome    string       `json:"outcome"`
	Adjacent   int          `json:"adjacent"`
	Revealed   []CellResult `json:"revealed"`
	Scores     [2]int       `json:"scores"`
	Turn       *int         `json:"turn"`
	GameOver   bool         `json:"game_over"`
	Won        bool         `json:"won"`
	Winner     *int         `json:"winner"`
	Draw       bool         `json:"draw"`
	AllMines   []Coord      `json:"all_mines"`
}

func (msg *Message) Kind() Kind {
	switch {
	case msg.Mines != nil:
		return KindMines
	case msg.SetID != nil:
		return KindSetID
	case msg.GameStart:
		return KindGameStart
	case msg.Disconnect:
		return KindDisconnect
	case msg.Cmd == CmdLeftClick:
		return KindLeftClick
	case msg.Cmd == CmdRightClick:
		return KindRightClick
	default:
		return KindUnknown
	}
}

// Coords returns the message's x and y, if it carries both
func (msg *Message) Coords() (x, y int, ok bool) {
	if msg.X == nil || msg.Y == nil {
		return 0, 0, false
	}
	return *msg.X, *msg.Y, true
}
