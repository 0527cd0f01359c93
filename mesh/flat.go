package mesh

import (
	"encoding/binary"
	"math"
)

// VertexSize is the encoded size of a Vertex: 26 bytes of fields and 2 bytes of tail padding.
const VertexSize = 28

// Vertex is one corner of the flat, non-indexed vertex stream.
type Vertex struct {
	X, Y, Z int32
	U, V    float32
	// Normal components encoded as axis*127+128.
	N [3]uint8
	C [3]uint8
}

func packNormal(axis int) uint8 {
	return uint8(axis*127 + 128)
}

// AppendQuad appends the six vertices of q.
func AppendQuad(dst []Vertex, q Quad) []Vertex {
	n := q.Face.Normal()
	normal := [3]uint8{packNormal(n[0]), packNormal(n[1]), packNormal(n[2])}
	color := q.Color.Bytes()
	tex := q.TexCoords()
	for i, c := range q.Corners() {
		dst = append(dst, Vertex{
			X: int32(c[0]), Y: int32(c[1]), Z: int32(c[2]),
			U: tex[i][0], V: tex[i][1],
			N: normal,
			C: color,
		})
	}
	return dst
}

// Flatten expands quads into a flat vertex stream, six vertices per quad.
func Flatten(quads []Quad) []Vertex {
	out := make([]Vertex, 0, len(quads)*6)
	for _, q := range quads {
		out = AppendQuad(out, q)
	}
	return out
}

// EncodeVertices lays vertices out back to back in the upload format.
func EncodeVertices(verts []Vertex) []byte {
	buf := make([]byte, len(verts)*VertexSize)
	for i, v := range verts {
		b := buf[i*VertexSize:]
		binary.LittleEndian.PutUint32(b[0:], uint32(v.X))
		binary.LittleEndian.PutUint32(b[4:], uint32(v.Y))
		binary.LittleEndian.PutUint32(b[8:], uint32(v.Z))
		binary.LittleEndian.PutUint32(b[12:], math.Float32bits(v.U))
		binary.LittleEndian.PutUint32(b[16:], math.Float32bits(v.V))
		copy(b[20:23], v.N[:])
		copy(b[23:26], v.C[:])
	}
	return buf
}
