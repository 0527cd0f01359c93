package world

import (
	"github.com/astei/anvilmesh/mesh"
	"github.com/astei/anvilmesh/voxel"
	"go.uber.org/zap"
)

// Neighborhood is a chunk together with whichever of its eight lateral neighbors are resident.
// It holds a reference to every chunk it contains until Close.
type Neighborhood struct {
	grids voxel.Neighbors
	held  []*Chunk
}

func (n *Neighborhood) Grids() *voxel.Neighbors {
	return &n.grids
}

// Len reports how many chunks the neighborhood holds, the center included.
func (n *Neighborhood) Len() int {
	return len(n.held)
}

func (n *Neighborhood) Close() {
	for _, c := range n.held {
		c.Unref()
	}
	n.held = nil
}

// Neighbors gathers c and its resident neighbors. Missing neighbors read as air.
func (w *World) Neighbors(c *Chunk) *Neighborhood {
	n := &Neighborhood{held: []*Chunk{c.Ref()}}
	n.grids[1][1] = c.grid
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if nc := w.Resident(c.X+dx, c.Z+dz); nc != nil {
				n.grids[dx+1][dz+1] = nc.grid
				n.held = append(n.held, nc)
			}
		}
	}
	return n
}

// Mesh returns c's cached mesh, building it on first use.
func (w *World) Mesh(c *Chunk) *mesh.Mesh {
	if m := c.Mesh(); m != nil {
		return m
	}
	return w.Remesh(c)
}

// Remesh rebuilds c's mesh against its current neighbors and replaces the cached one.
func (w *World) Remesh(c *Chunk) *mesh.Mesh {
	n := w.Neighbors(c)
	defer n.Close()
	m := w.mesher.Build(n.Grids())
	c.SetMesh(m)
	w.metrics.meshes.Inc()
	w.log.Debug("chunk meshed",
		zap.Int("cx", c.X), zap.Int("cz", c.Z),
		zap.Int("meshlets", len(m.Meshlets)), zap.Int("quads", m.Quads))
	return m
}

// Vertices builds the flat vertex stream for c. It is not cached.
func (w *World) Vertices(c *Chunk) []mesh.Vertex {
	n := w.Neighbors(c)
	defer n.Close()
	return w.mesher.BuildFlat(n.Grids())
}

// ScheduleMesh remeshes c on the worker pool and calls done with the result. c stays referenced
// until done returns.
func (w *World) ScheduleMesh(c *Chunk, done func(*Chunk, *mesh.Mesh)) error {
	c.Ref()
	err := w.pool.Schedule(func() {
		defer c.Unref()
		m := w.Remesh(c)
		if done != nil {
			done(c, m)
		}
	})
	if err != nil {
		c.Unref()
		return ErrClosed
	}
	return nil
}
