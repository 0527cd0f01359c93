package mesh

import (
	"github.com/astei/anvilmesh/voxel"
	"github.com/willf/bitset"
)

// Quad is a maximal rectangle of same-block faces pointing the same way.
type Quad struct {
	Face Face
	// X, Y, Z is the voxel owning the face at the rectangle's minimum corner.
	X, Y, Z int
	// W runs along the face's width axis, H along its height axis.
	W, H  int
	Block voxel.Block
	Color voxel.Color
}

// Corners returns the six triangle corners of the quad, in winding order.
func (q Quad) Corners() (out [6][3]int) {
	t := &faces[q.Face]
	base := [3]int{q.X, q.Y, q.Z}
	if q.Face.Plus() {
		base[q.Face.Axis()]++
	}
	for i, c := range t.corners {
		p := base
		p[t.wAxis] += c.w * q.W
		p[t.hAxis] += c.h * q.H
		out[i] = p
	}
	return
}

// TexCoords returns per-corner texture coordinates scaled by the quad extent.
func (q Quad) TexCoords() (out [6][2]float32) {
	for i, c := range faces[q.Face].corners {
		out[i] = [2]float32{float32(c.w * q.W), float32(c.h * q.H)}
	}
	return
}

var dims = [3]int{voxel.Size, voxel.Height, voxel.Size}

// sweep axes as (d0, d1, d2): face normal, height, width
var passes = [3][3]int{
	{0, 1, 2},
	{1, 0, 2},
	{2, 1, 0},
}

// Extractor turns a chunk and its neighborhood into greedy-merged quads.
type Extractor struct {
	cat *voxel.Catalog
}

func NewExtractor(cat *voxel.Catalog) *Extractor {
	return &Extractor{cat: cat}
}

func (e *Extractor) Catalog() *voxel.Catalog {
	return e.cat
}

// Quads collects every quad of the center chunk of n.
func (e *Extractor) Quads(n *voxel.Neighbors) []Quad {
	var quads []Quad
	e.Extract(n, func(q Quad) {
		quads = append(quads, q)
	})
	return quads
}

// Extract calls emit for every quad of the center chunk of n, axis by axis. A chunk owns the faces
// of its own solid voxels, including those lying on its far border planes; faces of solid
// neighbor voxels are left to the neighbor.
func (e *Extractor) Extract(n *voxel.Neighbors, emit func(Quad)) {
	if n.Center() == nil {
		return
	}
	for _, p := range passes {
		e.sweep(n, p[0], p[1], p[2], emit)
	}
}

func (e *Extractor) sweep(n *voxel.Neighbors, d0, d1, d2 int, emit func(Quad)) {
	n0, n1, n2 := dims[d0], dims[d1], dims[d2]
	mask := make([]voxel.Block, n1*n2)
	plus := bitset.New(uint(n1 * n2))

	for c0 := 0; c0 <= n0; c0++ {
		filled := false
		var cur, prev [3]int
		for j := 0; j < n1; j++ {
			for i := 0; i < n2; i++ {
				cur[d0], cur[d1], cur[d2] = c0, j, i
				prev = cur
				prev[d0]--

				a := n.At(prev[0], prev[1], prev[2])
				b := n.At(cur[0], cur[1], cur[2])
				idx := j*n2 + i
				switch {
				case voxel.Solid(a) == voxel.Solid(b):
				case voxel.Solid(b) && c0 < n0:
					mask[idx] = b
					filled = true
				case voxel.Solid(a) && c0 > 0:
					mask[idx] = a
					plus.Set(uint(idx))
					filled = true
				}
			}
		}
		if filled {
			e.merge(mask, plus, c0, d0, d1, d2, emit)
		}
	}
}

// merge greedily consumes the mask: width along d2 first, then height along d1. Cells merge only
// when block id and face sign both match. The mask is left cleared.
func (e *Extractor) merge(mask []voxel.Block, plus *bitset.BitSet, c0, d0, d1, d2 int, emit func(Quad)) {
	n1, n2 := dims[d1], dims[d2]
	same := func(idx int, b voxel.Block, p bool) bool {
		return mask[idx] == b && plus.Test(uint(idx)) == p
	}

	for j := 0; j < n1; j++ {
		for i := 0; i < n2; {
			idx := j*n2 + i
			b := mask[idx]
			if b == voxel.Air {
				i++
				continue
			}
			p := plus.Test(uint(idx))

			w := 1
			for i+w < n2 && same(idx+w, b, p) {
				w++
			}
			h := 1
		grow:
			for j+h < n1 {
				row := (j+h)*n2 + i
				for k := 0; k < w; k++ {
					if !same(row+k, b, p) {
						break grow
					}
				}
				h++
			}

			var pos [3]int
			pos[d0], pos[d1], pos[d2] = c0, j, i
			if p {
				pos[d0]--
			}
			emit(Quad{
				Face:  faceOf(d0, p),
				X:     pos[0],
				Y:     pos[1],
				Z:     pos[2],
				W:     w,
				H:     h,
				Block: b,
				Color: e.cat.Color(b),
			})

			for l := 0; l < h; l++ {
				row := (j+l)*n2 + i
				for k := 0; k < w; k++ {
					mask[row+k] = voxel.Air
					plus.Clear(uint(row + k))
				}
			}
			i += w
		}
	}
}
