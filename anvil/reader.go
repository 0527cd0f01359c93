package anvil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/astei/anvilmesh/voxel"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"
)

const regionChunks = 1024
const sectorSize = 4096

var ErrNoChunk = errors.New("anvil: chunk not found")
var ErrInvalidChunkLength = fmt.Errorf("anvil: invalid chunk length: %w", voxel.ErrCorrupt)
var ErrInvalidCompression = fmt.Errorf("anvil: invalid compression format: %w", voxel.ErrCorrupt)

type Compression byte

const (
	CompressionGzip Compression = 1
	CompressionZlib Compression = 2
	CompressionNone Compression = 3
)

// Reader reads chunks out of one Anvil region file. It is safe for concurrent use.
type Reader struct {
	Name string

	mu          sync.Mutex
	source      io.ReadSeeker
	sectorTable [regionChunks]uint32
	present     *bitset.BitSet
}

// NewReader creates a Reader. The ownership of the source is transferred to the reader.
func NewReader(source io.ReadSeeker) (*Reader, error) {
	r := &Reader{
		source:  source,
		present: bitset.New(regionChunks),
	}
	if file, ok := source.(*os.File); ok {
		r.Name = file.Name()
	}
	if err := r.readSectorTable(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) readSectorTable() error {
	if _, err := r.source.Seek(0, io.SeekStart); err != nil {
		return err
	}
	raw := make([]byte, sectorSize)
	if _, err := io.ReadFull(r.source, raw); err != nil {
		return fmt.Errorf("anvil: reading location table: %w", err)
	}
	if err := binary.Read(bytes.NewReader(raw), binary.BigEndian, r.sectorTable[:]); err != nil {
		return err
	}
	for i, offset := range r.sectorTable {
		if offset>>8 != 0 {
			r.present.Set(uint(i))
		}
	}
	return nil
}

// ReadChunk returns the decompressed NBT payload of the chunk at region-local (x, z).
func (r *Reader) ReadChunk(x, z int) (io.Reader, error) {
	if x < 0 || x >= 32 || z < 0 || z >= 32 {
		return nil, fmt.Errorf("anvil: local coordinate %d,%d out of range", x, z)
	}
	offset := r.sectorTable[x+z*32]
	sectorNumber := offset >> 8
	occupiedSectors := offset & 0xff
	if sectorNumber == 0 {
		return nil, ErrNoChunk
	}

	sectorData := make([]byte, occupiedSectors*sectorSize)
	r.mu.Lock()
	_, err := r.source.Seek(int64(sectorNumber)*sectorSize, io.SeekStart)
	if err == nil {
		_, err = io.ReadFull(r.source, sectorData)
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sectorReader := bytes.NewReader(sectorData)
	var header struct {
		Length      int32
		Compression Compression
	}
	if err := binary.Read(sectorReader, binary.BigEndian, &header); err != nil {
		return nil, ErrInvalidChunkLength
	}
	if header.Length < 1 || header.Length > int32(len(sectorData)-4) {
		return nil, ErrInvalidChunkLength
	}

	// the length covers the compression byte
	stream := io.LimitReader(sectorReader, int64(header.Length-1))
	switch header.Compression {
	case CompressionGzip:
		return gzip.NewReader(stream)
	case CompressionZlib:
		return zlib.NewReader(stream)
	case CompressionNone:
		return stream, nil
	default:
		return nil, ErrInvalidCompression
	}
}

func (r *Reader) ChunkExists(x, z int) bool {
	return r.present.Test(uint(x + z*32))
}

// Count reports how many chunks the region stores.
func (r *Reader) Count() int {
	return int(r.present.Count())
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
