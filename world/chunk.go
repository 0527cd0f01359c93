package world

import (
	"sync"
	"sync/atomic"

	"github.com/astei/anvilmesh/mesh"
	"github.com/astei/anvilmesh/voxel"
)

// Chunk is a resident chunk column. It is reference counted: the world's handle table holds one
// reference while the chunk is resident, and Resident, Snapshot and Neighbors hand out more.
// Dropping the last reference detaches the chunk from its region.
type Chunk struct {
	X, Z int

	world  *World
	region *Region
	grid   *voxel.Grid
	refs   atomic.Int32
	// guarded by World.regionsMu
	dead bool

	meshMu sync.Mutex
	mesh   *mesh.Mesh
}

func newChunk(w *World, r *Region, cx, cz int) *Chunk {
	c := &Chunk{
		X:      cx,
		Z:      cz,
		world:  w,
		region: r,
		grid:   voxel.NewGrid(),
	}
	c.refs.Store(1)
	return c
}

// Grid returns the chunk's blocks. No in-place edits are expected once the chunk is resident.
func (c *Chunk) Grid() *voxel.Grid {
	return c.grid
}

func (c *Chunk) Region() *Region {
	return c.region
}

// Ref takes another reference to c.
func (c *Chunk) Ref() *Chunk {
	if c.refs.Add(1) <= 1 {
		panic("world: Ref on a destroyed chunk")
	}
	return c
}

// Unref drops a reference; the last one destroys the chunk.
func (c *Chunk) Unref() {
	switch n := c.refs.Add(-1); {
	case n == 0:
		c.world.destroy(c)
	case n < 0:
		panic("world: Unref on a destroyed chunk")
	}
}

func (c *Chunk) Refs() int {
	return int(c.refs.Load())
}

// Mesh returns the cached mesh, or nil if none was built yet.
func (c *Chunk) Mesh() *mesh.Mesh {
	c.meshMu.Lock()
	defer c.meshMu.Unlock()
	return c.mesh
}

// SetMesh replaces the cached mesh.
func (c *Chunk) SetMesh(m *mesh.Mesh) {
	c.meshMu.Lock()
	c.mesh = m
	c.meshMu.Unlock()
}
