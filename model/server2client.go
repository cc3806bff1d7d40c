package model

type ServerMessage struct {
	Setup   []BoardSetup
	Changes []StateChange
}

type BoardSetup struct {
	GameID  string
	Table   string
	Variant Variant
	Path    []CellID
	Jumps   map[CellID]CellID
	Starts  [2]CellID
	Center  CellID
	Cells   []Cell
	Players map[int32]Player
}

type Event string

const (
	EventReset     Event = "reset"
	EventRolling   Event = "rolling"
	EventRolled    Event = "rolled"
	EventDiscarded Event = "discarded"
	EventMoved     Event = "moved"
	EventWon       Event = "won"
)

// StateChange is published to renderers after every engine mutation.
type StateChange struct {
	GameID           string
	Event            Event
	ActivePlayer     int32
	DieValue         int
	PlayerPositions  map[int32]CellID
	HighlightedCells []CellID
	GameOver         bool
	Winner           *int32
	Captured         *int32
}

type Action string

const (
	ActionStart   Action = "start"
	ActionRoll    Action = "roll"
	ActionConfirm Action = "confirm"
	ActionReset   Action = "reset"
)

type ClientMessage struct {
	Action Action
}
