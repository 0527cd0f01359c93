// Package gpu is the upload side of meshing: a Device takes byte payloads with usage flags and
// hands back buffers. The meshing code never talks to a graphics API directly.
package gpu

import (
	"errors"
	"strings"

	"github.com/astei/anvilmesh/mesh"
)

var ErrReleased = errors.New("gpu: buffer already released")

// Usage flags describe how an uploaded buffer will be bound.
type Usage uint32

const (
	UsageVertex Usage = 1 << iota
	UsageTransferDst
	UsageStorage
)

func (u Usage) String() string {
	var parts []string
	for _, f := range []struct {
		bit  Usage
		name string
	}{{UsageVertex, "vertex"}, {UsageTransferDst, "transfer-dst"}, {UsageStorage, "storage"}} {
		if u&f.bit != 0 {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

type Buffer interface {
	Size() int
	Usage() Usage
	Release() error
}

type Device interface {
	Upload(data []byte, usage Usage) (Buffer, error)
}

// UploadMesh uploads the meshlet records of m. They are bound as vertex data like the flat stream,
// and as a storage buffer for meshlet pipelines. An empty mesh uploads nothing and returns a nil
// buffer.
func UploadMesh(dev Device, m *mesh.Mesh) (Buffer, error) {
	if m == nil || m.Empty() {
		return nil, nil
	}
	return dev.Upload(m.Bytes(), UsageVertex|UsageStorage|UsageTransferDst)
}

// UploadVertices uploads a flat vertex stream. An empty stream uploads nothing and returns a nil
// buffer.
func UploadVertices(dev Device, verts []mesh.Vertex) (Buffer, error) {
	if len(verts) == 0 {
		return nil, nil
	}
	return dev.Upload(mesh.EncodeVertices(verts), UsageVertex|UsageTransferDst)
}
