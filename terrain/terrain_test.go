package terrain

import (
	"context"
	"testing"
	"time"

	"github.com/astei/anvilmesh/voxel"
	"github.com/astei/anvilmesh/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(g *Generator, cx, cz int) *voxel.Grid {
	grid := voxel.NewGrid()
	g.Fill(cx, cz, grid)
	return grid
}

func TestDeterministic(t *testing.T) {
	for _, c := range []world.Coord{{X: 0, Z: 0}, {X: -3, Z: 7}, {X: 40, Z: -41}} {
		assert.True(t, chunk(New(42), c.X, c.Z).Equal(chunk(New(42), c.X, c.Z)), "chunk %v", c)
	}

	differs := false
	for cx := 0; cx < 8 && !differs; cx++ {
		differs = !chunk(New(1), cx, 0).Equal(chunk(New(2), cx, 0))
	}
	assert.True(t, differs)
}

func TestColumns(t *testing.T) {
	g := New(7)
	for cx := -2; cx <= 2; cx++ {
		grid := chunk(g, cx, 3)
		for x := 0; x < voxel.Size; x++ {
			for z := 0; z < voxel.Size; z++ {
				h := g.Height(cx*voxel.Size+x, 3*voxel.Size+z)
				require.True(t, h >= 1 && h < voxel.Height, "height %d", h)

				assert.Equal(t, voxel.Stone, grid.At(x, 0, z))
				assert.Equal(t, surface(h), grid.At(x, h, z))
				for y := h + 1; y <= SeaLevel; y++ {
					require.Equal(t, voxel.Water, grid.At(x, y, z))
				}
				top := grid.At(x, max(h+1, SeaLevel+1), z)
				assert.Contains(t, []voxel.Block{voxel.Air, voxel.Wood, voxel.Leaves}, top)
			}
		}
	}
}

func TestSurface(t *testing.T) {
	assert.Equal(t, voxel.Sand, surface(SeaLevel-5))
	assert.Equal(t, voxel.Sand, surface(SeaLevel+1))
	assert.Equal(t, voxel.Grass, surface(SeaLevel+2))
	assert.Equal(t, voxel.Snow, surface(SnowLine))
}

func TestTreesStayInsideChunk(t *testing.T) {
	g := New(3)
	trees := 0
	for cx := 0; cx < 16; cx++ {
		grid := chunk(g, cx, 0)
		for x := 0; x < voxel.Size; x++ {
			for z := 0; z < voxel.Size; z++ {
				h := g.Height(cx*voxel.Size+x, z)
				if grid.At(x, h+1, z) != voxel.Wood {
					continue
				}
				trees++
				assert.True(t, x >= 2 && x <= 13 && z >= 2 && z <= 13)
				assert.Equal(t, voxel.Leaves, grid.At(x, h+6, z))
			}
		}
	}
	t.Logf("%d trees", trees)
}

func TestServesWorld(t *testing.T) {
	g := New(11)
	w := world.New(g, world.Options{Workers: 4})
	for cx := -1; cx <= 1; cx++ {
		for cz := -1; cz <= 1; cz++ {
			require.True(t, w.Request(cx, cz))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, w.WaitIdle(ctx))

	c := w.Resident(-1, 1)
	require.NotNil(t, c)
	assert.True(t, chunk(g, -1, 1).Equal(c.Grid()))
	m := w.Mesh(c)
	assert.False(t, m.Empty())
	assert.Greater(t, m.Quads, 0)
	c.Unref()

	assert.Equal(t, 9, w.Stats().Resident)
	require.NoError(t, w.Close(ctx))
}
