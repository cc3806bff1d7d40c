package model

type loop struct {
	cells  []CellID
	cyclic bool
}

// Graph is the successor structure tokens move along. A board has one or
// more loops; a token always advances on the loop holding its current cell.
type Graph struct {
	loops []loop
	where map[CellID][2]int
	jumps map[CellID]CellID
	rings map[CellID]int
	first map[int]CellID
}

func newGraph(jumps map[CellID]CellID) *Graph {
	return &Graph{
		loops: make([]loop, 0),
		where: make(map[CellID][2]int),
		jumps: jumps,
		rings: make(map[CellID]int),
		first: make(map[int]CellID),
	}
}

func (g *Graph) addLoop(cells []CellID, cyclic bool) {
	for i, id := range cells {
		g.where[id] = [2]int{len(g.loops), i}
	}
	g.loops = append(g.loops, loop{cells: cells, cyclic: cyclic})
}

func (g *Graph) addRing(ring int, cells []CellID) {
	for _, id := range cells {
		g.rings[id] = ring
	}
	if len(cells) > 0 {
		g.first[ring] = cells[0]
	}
}

// Advance returns the cell reached from `from` after `steps` moves, with the
// jump table already applied. On a finite loop ok is false when the move
// would run past the last cell.
func (g *Graph) Advance(from CellID, steps int) (CellID, bool) {
	pos, found := g.where[from]
	if !found || steps < 0 {
		return 0, false
	}
	l := g.loops[pos[0]]
	i := pos[1] + steps
	if l.cyclic {
		i %= len(l.cells)
	} else if i >= len(l.cells) {
		return 0, false
	}
	return g.Jump(l.cells[i]), true
}

// Jump applies the jump table once.
func (g *Graph) Jump(id CellID) CellID {
	if dst, found := g.jumps[id]; found {
		return dst
	}
	return id
}

// Inward returns the first cell of the ring inside `ring`. Ring 1 leads to
// the center.
func (g *Graph) Inward(ring int) (CellID, bool) {
	if ring <= 0 {
		return 0, false
	}
	id, found := g.first[ring-1]
	return id, found
}

func (g *Graph) RingOf(id CellID) int {
	return g.rings[id]
}

func (g *Graph) Contains(id CellID) bool {
	_, found := g.where[id]
	return found
}
