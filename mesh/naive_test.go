package mesh

import "github.com/astei/anvilmesh/voxel"

// unitFace is one voxel face: the voxel owning it and the direction it points.
type unitFace struct {
	X, Y, Z int
	Face    Face
}

// naiveFaces is the per-voxel culling oracle: every face of a solid center voxel whose neighbor
// across that face is not solid.
func naiveFaces(n *voxel.Neighbors) map[unitFace]bool {
	out := map[unitFace]bool{}
	for x := 0; x < voxel.Size; x++ {
		for y := 0; y < voxel.Height; y++ {
			for z := 0; z < voxel.Size; z++ {
				if !voxel.Solid(n.At(x, y, z)) {
					continue
				}
				for f := NegX; f <= PosZ; f++ {
					d := f.Normal()
					if !voxel.Solid(n.At(x+d[0], y+d[1], z+d[2])) {
						out[unitFace{x, y, z, f}] = true
					}
				}
			}
		}
	}
	return out
}

// expand splits a quad back into the unit faces it covers.
func expand(q Quad) []unitFace {
	t := faces[q.Face]
	var out []unitFace
	for a := 0; a < q.W; a++ {
		for b := 0; b < q.H; b++ {
			p := [3]int{q.X, q.Y, q.Z}
			p[t.wAxis] += a
			p[t.hAxis] += b
			out = append(out, unitFace{p[0], p[1], p[2], q.Face})
		}
	}
	return out
}
