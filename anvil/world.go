package anvil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/astei/anvilmesh/voxel"
	"github.com/astei/anvilmesh/world"
)

// World is a directory of Anvil region files, named r.<rx>.<rz>.mca.
type World struct {
	Dir string
}

// Open returns the world stored in dir. Region files are opened lazily.
func Open(dir string) (*World, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("anvil: %s is not a directory", dir)
	}
	return &World{Dir: dir}, nil
}

func RegionFileName(rx, rz int) string {
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

// OpenRegion opens region (rx, rz). A missing file is not an error: the region reads as air.
func (w *World) OpenRegion(rx, rz int) (world.RegionSource, error) {
	file, err := os.Open(filepath.Join(w.Dir, RegionFileName(rx, rz)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", file.Name(), err)
	}
	return &Region{X: rx, Z: rz, reader: reader}, nil
}

// Regions lists the coordinates of every region file in the directory, sorted by X then Z.
func (w *World) Regions() ([]world.Coord, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, err
	}
	var out []world.Coord
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".mca") {
			continue
		}
		var c world.Coord
		if _, err := fmt.Sscanf(name, "r.%d.%d.mca", &c.X, &c.Z); err != nil {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Z < out[j].Z
	})
	return out, nil
}

// Chunks lists the absolute coordinates of every stored chunk, region by region.
func (w *World) Chunks() ([]world.Coord, error) {
	regions, err := w.Regions()
	if err != nil {
		return nil, err
	}
	var out []world.Coord
	for _, rc := range regions {
		rs, err := w.OpenRegion(rc.X, rc.Z)
		if err != nil {
			return nil, err
		}
		r, ok := rs.(*Region)
		if !ok {
			continue
		}
		for lz := 0; lz < 32; lz++ {
			for lx := 0; lx < 32; lx++ {
				if r.reader.ChunkExists(lx, lz) {
					out = append(out, world.Coord{X: rc.X*32 + lx, Z: rc.Z*32 + lz})
				}
			}
		}
		if err := r.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *World) Close() error {
	return nil
}

// Region decodes the chunks of one open region file.
type Region struct {
	X, Z   int
	reader *Reader
}

func (r *Region) Reader() *Reader {
	return r.reader
}

func (r *Region) LoadChunk(lx, lz int, g *voxel.Grid) error {
	payload, err := r.reader.ReadChunk(lx, lz)
	if errors.Is(err, ErrNoChunk) {
		return nil
	}
	if err != nil {
		return err
	}
	if closer, ok := payload.(io.Closer); ok {
		defer closer.Close()
	}
	return DecodeChunk(payload, g)
}

func (r *Region) Close() error {
	return r.reader.Close()
}
