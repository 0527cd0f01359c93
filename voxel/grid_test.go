package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridLazySections(t *testing.T) {
	g := NewGrid()
	assert.True(t, g.Empty())
	assert.Equal(t, 0, g.SectionCount())

	g.Set(1, 2, 3, Air)
	assert.Equal(t, 0, g.SectionCount(), "writing air must not allocate")

	g.Set(1, 40, 3, Stone)
	assert.Equal(t, 1, g.SectionCount())
	assert.NotNil(t, g.Section(2))
	assert.Equal(t, Stone, g.At(1, 40, 3))
	assert.Equal(t, Air, g.At(1, 41, 3))
	assert.False(t, g.Empty())
}

func TestGridVerticalBounds(t *testing.T) {
	g := NewGrid()
	g.Set(0, -1, 0, Stone)
	g.Set(0, Height, 0, Stone)
	assert.Equal(t, 0, g.SectionCount())
	assert.Equal(t, Air, g.At(0, -1, 0))
	assert.Equal(t, Air, g.At(0, Height, 0))

	g.Set(0, Height-1, 0, Dirt)
	assert.Equal(t, Dirt, g.At(0, Height-1, 0))
}

func TestGridHorizontalWrap(t *testing.T) {
	g := NewGrid()
	g.Set(3, 5, 7, Sand)
	assert.Equal(t, Sand, g.At(3+Size, 5, 7-Size))
}

func TestGridEqual(t *testing.T) {
	a, b := NewGrid(), NewGrid()
	assert.True(t, a.Equal(b))

	a.Set(1, 1, 1, Stone)
	assert.False(t, a.Equal(b))
	assert.False(t, b.Equal(a))

	b.Set(1, 1, 1, Stone)
	assert.True(t, a.Equal(b))

	// an allocated all-air section equals a missing one
	c := NewGrid()
	c.SetSection(5, new(Section))
	assert.True(t, c.Equal(NewGrid()))
	assert.True(t, c.Empty())
}

func TestNeighborsResolve(t *testing.T) {
	center, east, north := NewGrid(), NewGrid(), NewGrid()
	center.Set(0, 0, 0, Stone)
	east.Set(0, 0, 0, Dirt)
	north.Set(15, 0, 15, Sand)

	var n Neighbors
	n[1][1] = center
	n[2][1] = east
	n[1][0] = north

	assert.Same(t, center, n.Center())
	assert.Equal(t, Stone, n.At(0, 0, 0))
	assert.Equal(t, Dirt, n.At(Size, 0, 0))
	assert.Equal(t, Sand, n.At(15, 0, -1))
	assert.Equal(t, Air, n.At(-1, 0, 0), "missing neighbor reads as air")
	assert.Equal(t, Air, n.At(0, -1, 0))
	assert.Equal(t, Air, n.At(0, Height, 0))
}

func TestCatalog(t *testing.T) {
	cat := DefaultCatalog()
	assert.Equal(t, int(Unknown)+1, cat.Len())
	assert.Equal(t, "stone", cat.Name(Stone))
	assert.Equal(t, Color{0.2, 0.8, 0.1}, cat.Color(Grass))
	assert.Equal(t, cat.Color(Unknown), cat.Color(Block(999)))

	b, ok := cat.Lookup("water")
	assert.True(t, ok)
	assert.Equal(t, Water, b)

	assert.Equal(t, [3]uint8{255, 255, 255}, cat.Color(Snow).Bytes())
	assert.Equal(t, [3]uint8{0, 0, 0}, cat.Color(Air).Bytes())
	assert.False(t, Solid(Air))
	assert.True(t, Solid(Stone))
}
