package model

type CellID int

type Variant string

const (
	VariantRing       Variant = "ring"
	VariantGridLoop   Variant = "grid-loop"
	VariantNestedRing Variant = "nested-ring"
)

type Tag int

const (
	TagNone Tag = iota
	TagStartRed
	TagStartBlue
	TagCenter
)

type Cell struct {
	ID       CellID
	Ring     int
	Slot     int
	Row, Col int
	JumpsTo  *CellID
	Tag      Tag
}

type Player struct {
	Id       int32
	Color    string
	Position CellID
	Start    CellID
	// Ring is the ring depth, only tracked on nested-ring boards.
	Ring int
	// Anchor is the cell that closes a lap on the current ring.
	Anchor CellID
}

type Board struct {
	Variant Variant
	Cells   map[CellID]*Cell
	Path    []CellID
	Jumps   map[CellID]CellID
	Starts  [2]CellID
	Center  CellID
	Rings   int
	Graph   *Graph
}

type GameState struct {
	Current int
	Die     int
	Started bool
	Winner  *int32
	Target  *CellID
}
