// Package terrain generates a deterministic Perlin-noise landscape. A Generator serves chunks
// through the same contract as region files, so it can stand in for a saved world.
package terrain

import (
	"github.com/aquilax/go-perlin"
	"github.com/astei/anvilmesh/voxel"
	"github.com/astei/anvilmesh/world"
)

const (
	SeaLevel  = 62
	SnowLine  = 100
	BaseLevel = 64
	Amplitude = 40
)

// Generator is safe for concurrent use; it holds only read-only noise tables.
type Generator struct {
	seed  int64
	noise *perlin.Perlin
	// Scale is the horizontal stretch of the height field in blocks.
	Scale float64
}

func New(seed int64) *Generator {
	return &Generator{
		seed:  seed,
		noise: perlin.NewPerlin(2, 2, 3, seed),
		Scale: 96,
	}
}

// Height returns the surface height of world column (x, z).
func (g *Generator) Height(x, z int) int {
	n := g.noise.Noise2D(float64(x)/g.Scale, float64(z)/g.Scale)
	h := BaseLevel + int(n*Amplitude)
	if h < 1 {
		return 1
	}
	if h > voxel.Height-8 {
		return voxel.Height - 8
	}
	return h
}

// Fill writes chunk (cx, cz) into grid.
func (g *Generator) Fill(cx, cz int, grid *voxel.Grid) {
	var heights [voxel.Size][voxel.Size]int
	for x := 0; x < voxel.Size; x++ {
		for z := 0; z < voxel.Size; z++ {
			h := g.Height(cx*voxel.Size+x, cz*voxel.Size+z)
			heights[x][z] = h
			g.column(grid, x, z, h)
		}
	}
	// trees go in after the terrain so that leaves only ever replace air
	for x := 0; x < voxel.Size; x++ {
		for z := 0; z < voxel.Size; z++ {
			h := heights[x][z]
			if g.tree(cx*voxel.Size+x, cz*voxel.Size+z, x, z, h) {
				plantTree(grid, x, h+1, z)
			}
		}
	}
}

func (g *Generator) column(grid *voxel.Grid, x, z, h int) {
	for y := 0; y < h-3; y++ {
		grid.Set(x, y, z, voxel.Stone)
	}
	for y := max(h-3, 0); y < h; y++ {
		grid.Set(x, y, z, voxel.Dirt)
	}
	grid.Set(x, h, z, surface(h))
	for y := h + 1; y <= SeaLevel; y++ {
		grid.Set(x, y, z, voxel.Water)
	}
}

func surface(h int) voxel.Block {
	switch {
	case h <= SeaLevel+1:
		return voxel.Sand
	case h >= SnowLine:
		return voxel.Snow
	}
	return voxel.Grass
}

// tree reports whether a tree grows on column (wx, wz). Trees stay clear of the chunk border so
// that their leaves never cross into a neighbor.
func (g *Generator) tree(wx, wz, x, z, h int) bool {
	if surface(h) != voxel.Grass {
		return false
	}
	if x < 2 || x > voxel.Size-3 || z < 2 || z > voxel.Size-3 {
		return false
	}
	return g.hash(wx, wz)%61 == 0
}

func (g *Generator) hash(x, z int) uint64 {
	v := uint64(g.seed) ^ uint64(int64(x))*0x9e3779b97f4a7c15 ^ uint64(int64(z))*0xc2b2ae3d27d4eb4f
	v ^= v >> 31
	v *= 0xbf58476d1ce4e5b9
	v ^= v >> 27
	return v
}

func plantTree(grid *voxel.Grid, x, y, z int) {
	const trunk = 4
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for dz := -1; dz <= 1; dz++ {
				if grid.At(x+dx, y+trunk+dy, z+dz) == voxel.Air {
					grid.Set(x+dx, y+trunk+dy, z+dz, voxel.Leaves)
				}
			}
		}
	}
	for dy := 0; dy < trunk; dy++ {
		grid.Set(x, y+dy, z, voxel.Wood)
	}
}

// OpenRegion returns a RegionSource generating the chunks of region (rx, rz).
func (g *Generator) OpenRegion(rx, rz int) (world.RegionSource, error) {
	return &region{gen: g, rx: rx, rz: rz}, nil
}

func (g *Generator) Close() error {
	return nil
}

type region struct {
	gen    *Generator
	rx, rz int
}

func (r *region) LoadChunk(lx, lz int, grid *voxel.Grid) error {
	r.gen.Fill(r.rx*32+lx, r.rz*32+lz, grid)
	return nil
}

func (r *region) Close() error {
	return nil
}
