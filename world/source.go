package world

import "github.com/astei/anvilmesh/voxel"

// Source supplies chunk data by region.
type Source interface {
	// OpenRegion opens the backing data of region (rx, rz). A nil RegionSource with a nil error
	// means the region has no stored data and all of its chunks are air.
	OpenRegion(rx, rz int) (RegionSource, error)
	Close() error
}

// RegionSource decodes the chunks of one region.
type RegionSource interface {
	// LoadChunk fills g with the chunk at region-local (lx, lz). A chunk with no stored data
	// leaves g untouched and is not an error.
	LoadChunk(lx, lz int, g *voxel.Grid) error
	Close() error
}

// Coord is a pair of chunk or region coordinates.
type Coord struct {
	X, Z int
}

// RegionCoord maps a chunk coordinate to its region coordinate, rounding toward negative infinity.
func RegionCoord(c int) int {
	if c < 0 {
		return (c - 31) / 32
	}
	return c / 32
}

// LocalCoord maps a chunk coordinate to its offset inside the region.
func LocalCoord(c int) int {
	return c & 31
}
