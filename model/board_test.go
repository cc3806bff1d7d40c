package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(from, to int) []CellID {
	out := make([]CellID, 0)
	if from <= to {
		for i := from; i <= to; i++ {
			out = append(out, CellID(i))
		}
		return out
	}
	for i := from; i >= to; i-- {
		out = append(out, CellID(i))
	}
	return out
}

func TestFirstOfRing(t *testing.T) {
	assert.Equal(t, CellID(0), FirstOfRing(0))
	assert.Equal(t, CellID(1), FirstOfRing(1))
	assert.Equal(t, CellID(7), FirstOfRing(2))
	assert.Equal(t, CellID(19), FirstOfRing(3))
	assert.Equal(t, CellID(37), FirstOfRing(4))
}

func TestBuildDeterministic(t *testing.T) {
	shapes := []Shape{
		{Variant: VariantRing, Rings: 4},
		{Variant: VariantNestedRing, Rings: 4},
		{Variant: VariantGridLoop, Rows: 5, Cols: 7},
	}
	for _, shape := range shapes {
		t.Run(string(shape.Variant), func(t *testing.T) {
			a, err := Build(shape)
			require.NoError(t, err)
			b, err := Build(shape)
			require.NoError(t, err)
			assert.Equal(t, a.Path, b.Path)
			assert.Equal(t, a.Starts, b.Starts)
			assert.Equal(t, a.Center, b.Center)
			assert.Equal(t, a.Jumps, b.Jumps)
		})
	}
}

func TestBuildRing(t *testing.T) {
	b, err := Build(Shape{Variant: VariantRing, Rings: 3})
	require.NoError(t, err)

	assert.Len(t, b.Cells, 37)
	assert.Equal(t, ids(36, 0), b.Path)
	assert.Equal(t, CellID(0), b.Center)
	assert.Equal(t, [2]CellID{19, 28}, b.Starts)
	assert.Empty(t, b.Jumps, "43 does not exist on three rings")

	assert.Equal(t, TagCenter, b.Cells[0].Tag)
	assert.Equal(t, TagStartRed, b.Cells[19].Tag)
	assert.Equal(t, TagStartBlue, b.Cells[28].Tag)
	assert.Equal(t, 3, b.Cells[36].Ring)
	assert.Equal(t, 17, b.Cells[36].Slot)
	assert.Equal(t, 1, b.Cells[6].Ring)

	for r := 1; r <= 3; r++ {
		count := 0
		for _, c := range b.Cells {
			if c.Ring == r {
				count++
			}
		}
		assert.Equal(t, r*6, count, "ring %d", r)
	}
}

func TestBuildNestedRing(t *testing.T) {
	b, err := Build(Shape{Variant: VariantNestedRing, Rings: 4})
	require.NoError(t, err)

	expected := append(ids(37, 60), ids(19, 36)...)
	expected = append(expected, ids(7, 18)...)
	expected = append(expected, ids(1, 6)...)
	expected = append(expected, 0)
	assert.Equal(t, expected, b.Path)
	assert.Equal(t, [2]CellID{37, 49}, b.Starts)
	assert.Equal(t, map[CellID]CellID{43: 25}, b.Jumps)
	require.NotNil(t, b.Cells[43].JumpsTo)
	assert.Equal(t, CellID(25), *b.Cells[43].JumpsTo)
}

func TestBuildGridLoop(t *testing.T) {
	b, err := Build(Shape{Variant: VariantGridLoop, Rows: 5, Cols: 5})
	require.NoError(t, err)

	assert.Equal(t, []CellID{0, 1, 2, 3, 4, 9, 14, 19, 24, 23, 22, 21, 20, 15, 10, 5}, b.Path)
	assert.Equal(t, CellID(12), b.Center)
	assert.Equal(t, [2]CellID{0, 24}, b.Starts)
	assert.Empty(t, b.Jumps)
	assert.Len(t, b.Cells, 25)
	assert.Equal(t, TagCenter, b.Cells[12].Tag)

	b, err = Build(Shape{Variant: VariantGridLoop, Rows: 3, Cols: 4})
	require.NoError(t, err)
	assert.Len(t, b.Path, 2*(3+4)-4)
	assert.Equal(t, CellID(6), b.Center)
	assert.Equal(t, [2]CellID{0, 11}, b.Starts)
}

func TestBuildJumpsAndStarts(t *testing.T) {
	b, err := Build(Shape{Variant: VariantNestedRing, Rings: 4, Jumps: map[CellID]CellID{}})
	require.NoError(t, err)
	assert.Empty(t, b.Jumps)

	b, err = Build(Shape{
		Variant: VariantGridLoop, Rows: 5, Cols: 5,
		Jumps:  map[CellID]CellID{3: 12},
		Starts: []CellID{1, 21},
	})
	require.NoError(t, err)
	assert.Equal(t, map[CellID]CellID{3: 12}, b.Jumps)
	assert.Equal(t, [2]CellID{1, 21}, b.Starts)
	assert.Equal(t, TagStartRed, b.Cells[1].Tag)
	assert.Equal(t, TagNone, b.Cells[0].Tag)
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]Shape{
		"unknown variant":     {Variant: "hex", Rings: 2},
		"no rings":            {Variant: VariantRing},
		"grid too small":      {Variant: VariantGridLoop, Rows: 2, Cols: 5},
		"jump source missing": {Variant: VariantRing, Rings: 2, Jumps: map[CellID]CellID{99: 1}},
		"jump dest missing":   {Variant: VariantRing, Rings: 2, Jumps: map[CellID]CellID{3: 99}},
		"jump from center":    {Variant: VariantNestedRing, Rings: 2, Jumps: map[CellID]CellID{0: 3}},
		"grid jump off loop":  {Variant: VariantGridLoop, Rows: 5, Cols: 5, Jumps: map[CellID]CellID{6: 1}},
		"one start":           {Variant: VariantRing, Rings: 2, Starts: []CellID{7}},
		"start at center":     {Variant: VariantGridLoop, Rows: 5, Cols: 5, Starts: []CellID{0, 12}},
		"same starts":         {Variant: VariantRing, Rings: 2, Starts: []CellID{7, 7}},
	}
	for name, shape := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(shape)
			assert.ErrorIs(t, err, ErrShape)
		})
	}
}

func TestCellList(t *testing.T) {
	b, err := Build(Shape{Variant: VariantNestedRing, Rings: 4})
	require.NoError(t, err)

	cells := b.CellList()
	require.Len(t, cells, 61)
	for i, c := range cells {
		assert.Equal(t, CellID(i), c.ID)
	}
	assert.Equal(t, TagCenter, cells[0].Tag)
	assert.Equal(t, TagStartRed, cells[37].Tag)
	assert.Equal(t, TagStartBlue, cells[49].Tag)
	require.NotNil(t, cells[43].JumpsTo)
	assert.Equal(t, CellID(25), *cells[43].JumpsTo)

	cells[0].Tag = TagNone
	assert.Equal(t, TagCenter, b.Cells[0].Tag, "CellList returns copies")
}
