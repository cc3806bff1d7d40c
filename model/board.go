package model

import (
	"errors"
	"fmt"
	"sort"
)

var ErrShape = errors.New("invalid board shape")

type Shape struct {
	Variant    Variant
	Rings      int
	Rows, Cols int
	// Jumps nil means the default table, an empty map means no jumps.
	Jumps map[CellID]CellID
	// Starts is optional; when set it must hold exactly two path cells.
	Starts []CellID
}

var DefaultJumps = map[CellID]CellID{43: 25}

// FirstOfRing is the id of the first cell of a ring, numbering ring-then-angle
// from the center (id 0).
func FirstOfRing(ring int) CellID {
	if ring <= 0 {
		return 0
	}
	return CellID(1 + 3*ring*(ring-1))
}

func Build(shape Shape) (*Board, error) {
	var b *Board
	var err error
	switch shape.Variant {
	case VariantRing, VariantNestedRing:
		b, err = buildRings(shape)
	case VariantGridLoop:
		b, err = buildGrid(shape)
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrShape, shape.Variant)
	}
	if err != nil {
		return nil, err
	}
	if err := b.applyStarts(shape.Starts); err != nil {
		return nil, err
	}
	return b, nil
}

func buildRings(shape Shape) (*Board, error) {
	if shape.Rings < 1 {
		return nil, fmt.Errorf("%w: rings must be at least 1, got %d", ErrShape, shape.Rings)
	}
	cells := map[CellID]*Cell{0: {ID: 0, Tag: TagCenter}}
	rings := make([][]CellID, shape.Rings+1)
	rings[0] = []CellID{0}
	id := CellID(1)
	for r := 1; r <= shape.Rings; r++ {
		count := r * 6
		for i := 0; i < count; i++ {
			cells[id] = &Cell{ID: id, Ring: r, Slot: i}
			rings[r] = append(rings[r], id)
			id++
		}
	}
	jumps, err := checkJumps(shape.Jumps, cells, 0, true)
	if err != nil {
		return nil, err
	}
	b := &Board{
		Variant: shape.Variant,
		Cells:   cells,
		Jumps:   jumps,
		Center:  0,
		Rings:   shape.Rings,
		Graph:   newGraph(jumps),
	}
	for r, ids := range rings {
		b.Graph.addRing(r, ids)
	}
	if shape.Variant == VariantRing {
		// one finite path spiralling inward, the center is its last cell
		path := make([]CellID, 0, len(cells))
		for i := int(id) - 1; i >= 0; i-- {
			path = append(path, CellID(i))
		}
		b.Path = path
		b.Graph.addLoop(path, false)
	} else {
		path := make([]CellID, 0, len(cells))
		for r := shape.Rings; r >= 1; r-- {
			path = append(path, rings[r]...)
			b.Graph.addLoop(rings[r], true)
		}
		path = append(path, 0)
		b.Graph.addLoop([]CellID{0}, false)
		b.Path = path
	}
	outer := FirstOfRing(shape.Rings)
	b.Starts = [2]CellID{outer, outer + CellID(shape.Rings*3)}
	return b, nil
}

func buildGrid(shape Shape) (*Board, error) {
	rows, cols := shape.Rows, shape.Cols
	if rows < 3 || cols < 3 {
		return nil, fmt.Errorf("%w: grid must be at least 3x3, got %dx%d", ErrShape, rows, cols)
	}
	matrix := make([][]*Cell, 0)
	cells := make(map[CellID]*Cell)
	for r := 0; r < rows; r++ {
		row := make([]*Cell, 0)
		for c := 0; c < cols; c++ {
			cell := &Cell{ID: CellID(r*cols + c), Row: r, Col: c}
			row = append(row, cell)
			cells[cell.ID] = cell
		}
		matrix = append(matrix, row)
	}
	// border, clockwise from top-left
	path := make([]CellID, 0, 2*(rows+cols)-4)
	for c := 0; c < cols; c++ {
		path = append(path, matrix[0][c].ID)
	}
	for r := 1; r < rows; r++ {
		path = append(path, matrix[r][cols-1].ID)
	}
	for c := cols - 2; c >= 0; c-- {
		path = append(path, matrix[rows-1][c].ID)
	}
	for r := rows - 2; r >= 1; r-- {
		path = append(path, matrix[r][0].ID)
	}
	center := matrix[rows/2][cols/2]
	center.Tag = TagCenter

	var requested map[CellID]CellID
	if shape.Jumps != nil {
		requested = shape.Jumps
	} else {
		requested = map[CellID]CellID{}
	}
	onPath := make(map[CellID]*Cell, len(path)+1)
	for _, id := range path {
		onPath[id] = cells[id]
	}
	onPath[center.ID] = center
	jumps, err := checkJumps(requested, onPath, center.ID, false)
	if err != nil {
		return nil, err
	}
	b := &Board{
		Variant: VariantGridLoop,
		Cells:   cells,
		Path:    path,
		Jumps:   jumps,
		Center:  center.ID,
		Graph:   newGraph(jumps),
		Starts:  [2]CellID{path[0], path[len(path)/2]},
	}
	b.Graph.addLoop(path, true)
	return b, nil
}

// checkJumps validates a jump table against the cells a token can stand on.
// With useDefaults, a nil table falls back to DefaultJumps, keeping only the
// entries whose cells exist.
func checkJumps(requested map[CellID]CellID, cells map[CellID]*Cell, center CellID, useDefaults bool) (map[CellID]CellID, error) {
	jumps := make(map[CellID]CellID)
	if requested == nil && useDefaults {
		for from, to := range DefaultJumps {
			_, okFrom := cells[from]
			_, okTo := cells[to]
			if okFrom && okTo {
				jumps[from] = to
			}
		}
	} else {
		for from, to := range requested {
			if _, ok := cells[from]; !ok {
				return nil, fmt.Errorf("%w: jump source %d is not on the board", ErrShape, from)
			}
			if _, ok := cells[to]; !ok {
				return nil, fmt.Errorf("%w: jump destination %d is not on the board", ErrShape, to)
			}
			if from == center {
				return nil, fmt.Errorf("%w: the center cannot be a jump source", ErrShape)
			}
			jumps[from] = to
		}
	}
	for from, to := range jumps {
		dst := to
		cells[from].JumpsTo = &dst
	}
	return jumps, nil
}

func (b *Board) applyStarts(starts []CellID) error {
	if len(starts) != 0 {
		if len(starts) != 2 {
			return fmt.Errorf("%w: need two start cells, got %d", ErrShape, len(starts))
		}
		for _, id := range starts {
			if !b.Graph.Contains(id) || id == b.Center {
				return fmt.Errorf("%w: start cell %d is not on the path", ErrShape, id)
			}
		}
		if starts[0] == starts[1] {
			return fmt.Errorf("%w: start cells must differ", ErrShape)
		}
		b.Starts = [2]CellID{starts[0], starts[1]}
	}
	b.Cells[b.Starts[0]].Tag = TagStartRed
	b.Cells[b.Starts[1]].Tag = TagStartBlue
	return nil
}

// CellList returns a copy of every cell ordered by id.
func (b *Board) CellList() []Cell {
	out := make([]Cell, 0, len(b.Cells))
	for _, c := range b.Cells {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
