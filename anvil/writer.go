package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/astei/anvilmesh/voxel"
	"github.com/klauspost/compress/zlib"
)

var ErrChunkTooLarge = errors.New("anvil: chunk exceeds 255 sectors")

// Writer assembles one region file in memory. Chunks are stored zlib compressed.
type Writer struct {
	chunks    [regionChunks][]byte
	timestamp uint32
}

func NewWriter() *Writer {
	return &Writer{timestamp: uint32(time.Now().Unix())}
}

// SetChunk stores the raw NBT of the chunk at region-local (x, z).
func (w *Writer) SetChunk(x, z int, payload []byte) error {
	if x < 0 || x >= 32 || z < 0 || z >= 32 {
		return fmt.Errorf("anvil: local coordinate %d,%d out of range", x, z)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	var header struct {
		Length      int32
		Compression Compression
	}
	header.Length = int32(compressed.Len() + 1)
	header.Compression = CompressionZlib

	var sector bytes.Buffer
	if err := binary.Write(&sector, binary.BigEndian, header); err != nil {
		return err
	}
	compressed.WriteTo(&sector)
	if pad := sector.Len() % sectorSize; pad != 0 {
		sector.Write(make([]byte, sectorSize-pad))
	}
	if sector.Len()/sectorSize > 0xff {
		return ErrChunkTooLarge
	}
	w.chunks[x+z*32] = sector.Bytes()
	return nil
}

// SetGrid encodes g as chunk (cx, cz) and stores it at its region-local slot.
func (w *Writer) SetGrid(cx, cz int, g *voxel.Grid) error {
	payload, err := EncodeChunk(cx, cz, g)
	if err != nil {
		return err
	}
	return w.SetChunk(cx&31, cz&31, payload)
}

func (w *Writer) Len() (n int) {
	for _, c := range w.chunks {
		if c != nil {
			n++
		}
	}
	return
}

// WriteTo writes the location table, the timestamp table and every chunk's sectors.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var locations, timestamps [regionChunks]uint32
	next := uint32(2)
	for i, c := range w.chunks {
		if c == nil {
			continue
		}
		count := uint32(len(c) / sectorSize)
		locations[i] = next<<8 | count
		timestamps[i] = w.timestamp
		next += count
	}

	var written int64
	for _, table := range [][regionChunks]uint32{locations, timestamps} {
		if err := binary.Write(out, binary.BigEndian, table); err != nil {
			return written, err
		}
		written += sectorSize
	}
	for _, c := range w.chunks {
		if c == nil {
			continue
		}
		n, err := out.Write(c)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// WriteFile writes the region to dir under its canonical name, replacing any existing file.
func (w *Writer) WriteFile(dir string, rx, rz int) (err error) {
	file, err := os.Create(filepath.Join(dir, RegionFileName(rx, rz)))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = w.WriteTo(file)
	return err
}
