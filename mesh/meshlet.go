package mesh

import (
	"encoding/binary"

	"github.com/astei/anvilmesh/voxel"
)

const (
	MaxVertices  = 64
	MaxTriangles = 126

	// MeshletSize is the encoded size of one Meshlet record.
	MeshletSize = MaxVertices*3*2 + MaxTriangles*3 + MaxTriangles*3 + 2*4
)

// Meshlet is a fixed-capacity bundle of deduplicated vertices and the triangles indexing them.
// Slots past VertexCount and TriangleCount are zero and carry no meaning.
type Meshlet struct {
	Vertices      [MaxVertices][3]uint16
	Triangles     [MaxTriangles][3]uint8
	Colors        [MaxTriangles][3]uint8
	VertexCount   uint32
	TriangleCount uint32
}

// Mesh is the ordered meshlet sequence of one chunk.
type Mesh struct {
	Meshlets []Meshlet
	// Vertices is the total vertex count over all meshlets.
	Vertices int
	Quads    int
}

func (m *Mesh) Triangles() (n int) {
	for i := range m.Meshlets {
		n += int(m.Meshlets[i].TriangleCount)
	}
	return
}

func (m *Mesh) Empty() bool {
	return len(m.Meshlets) == 0
}

// Bytes encodes every meshlet back to back using the little-endian record layout: positions,
// index triples, colors, vertex count, triangle count.
func (m *Mesh) Bytes() []byte {
	buf := make([]byte, 0, len(m.Meshlets)*MeshletSize)
	for i := range m.Meshlets {
		buf = m.Meshlets[i].AppendBinary(buf)
	}
	return buf
}

func (ml *Meshlet) AppendBinary(buf []byte) []byte {
	for _, v := range ml.Vertices {
		buf = binary.LittleEndian.AppendUint16(buf, v[0])
		buf = binary.LittleEndian.AppendUint16(buf, v[1])
		buf = binary.LittleEndian.AppendUint16(buf, v[2])
	}
	for _, t := range ml.Triangles {
		buf = append(buf, t[0], t[1], t[2])
	}
	for _, c := range ml.Colors {
		buf = append(buf, c[0], c[1], c[2])
	}
	buf = binary.LittleEndian.AppendUint32(buf, ml.VertexCount)
	buf = binary.LittleEndian.AppendUint32(buf, ml.TriangleCount)
	return buf
}

// Packer accumulates quads into meshlets. Vertex dedup is scoped to the open meshlet; a quad that
// could overflow it seals the meshlet first and starts a fresh one with an empty dedup table.
type Packer struct {
	mesh  Mesh
	cur   Meshlet
	index map[[3]uint16]uint8
}

func NewPacker() *Packer {
	return &Packer{index: make(map[[3]uint16]uint8, MaxVertices)}
}

// Add appends the two triangles of q.
func (p *Packer) Add(q Quad) {
	if p.cur.VertexCount+4 > MaxVertices || p.cur.TriangleCount+2 > MaxTriangles {
		p.seal()
	}

	corners := q.Corners()
	color := q.Color.Bytes()
	for t := 0; t < 2; t++ {
		var tri [3]uint8
		for k := 0; k < 3; k++ {
			tri[k] = p.vertex(corners[t*3+k])
		}
		p.cur.Triangles[p.cur.TriangleCount] = tri
		p.cur.Colors[p.cur.TriangleCount] = color
		p.cur.TriangleCount++
	}
	p.mesh.Quads++
}

func (p *Packer) vertex(c [3]int) uint8 {
	pos := [3]uint16{uint16(c[0]), uint16(c[1]), uint16(c[2])}
	if i, ok := p.index[pos]; ok {
		return i
	}
	i := uint8(p.cur.VertexCount)
	p.cur.Vertices[i] = pos
	p.cur.VertexCount++
	p.index[pos] = i
	return i
}

func (p *Packer) seal() {
	if p.cur.TriangleCount == 0 {
		return
	}
	p.mesh.Meshlets = append(p.mesh.Meshlets, p.cur)
	p.mesh.Vertices += int(p.cur.VertexCount)
	p.cur = Meshlet{}
	for k := range p.index {
		delete(p.index, k)
	}
}

// Finish seals the open meshlet and returns the mesh. The packer must not be reused.
func (p *Packer) Finish() *Mesh {
	p.seal()
	m := p.mesh
	return &m
}

// Pack builds meshlets from quads in order.
func Pack(quads []Quad) *Mesh {
	p := NewPacker()
	for _, q := range quads {
		p.Add(q)
	}
	return p.Finish()
}

// Mesher runs extraction and packing in one pass without materializing the quad list.
type Mesher struct {
	ex *Extractor
}

func NewMesher(cat *voxel.Catalog) *Mesher {
	return &Mesher{ex: NewExtractor(cat)}
}

func (m *Mesher) Extractor() *Extractor {
	return m.ex
}

// Build meshes the center chunk of n into meshlets.
func (m *Mesher) Build(n *voxel.Neighbors) *Mesh {
	p := NewPacker()
	m.ex.Extract(n, p.Add)
	return p.Finish()
}

// BuildFlat meshes the center chunk of n into a flat vertex stream.
func (m *Mesher) BuildFlat(n *voxel.Neighbors) []Vertex {
	var verts []Vertex
	m.ex.Extract(n, func(q Quad) {
		verts = AppendQuad(verts, q)
	})
	return verts
}
