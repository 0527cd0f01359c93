package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrArchiveClosed  = errors.New("gpu: archive closed")
	ErrRecordTooLarge = errors.New("gpu: archive record too large")
)

// MaxRecordSize bounds both sizes in a record header. A chunk's meshlets stay far below it.
const MaxRecordSize = 64 << 20

// ArchiveDevice records uploads to a stream instead of a graphics device. Each upload becomes one
// record: usage, compressed length and raw length as big-endian uint32s, then a zstd frame.
type ArchiveDevice struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *zstd.Encoder
	records int
	raw     int64
	packed  int64
	closed  bool
}

func NewArchiveDevice(w io.Writer) (*ArchiveDevice, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &ArchiveDevice{w: w, enc: enc}, nil
}

func (d *ArchiveDevice) Upload(data []byte, usage Usage) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrArchiveClosed
	}

	if len(data) > MaxRecordSize {
		return nil, ErrRecordTooLarge
	}
	compressed := d.enc.EncodeAll(data, nil)
	var header struct {
		Usage        uint32
		Compressed   uint32
		Uncompressed uint32
	}
	header.Usage = uint32(usage)
	header.Compressed = uint32(len(compressed))
	header.Uncompressed = uint32(len(data))
	if err := binary.Write(d.w, binary.BigEndian, header); err != nil {
		return nil, err
	}
	if _, err := d.w.Write(compressed); err != nil {
		return nil, err
	}
	d.records++
	d.raw += int64(len(data))
	d.packed += int64(len(compressed))
	return &archivedBuffer{size: len(data), usage: usage}, nil
}

type ArchiveStats struct {
	Records      int
	Uncompressed int64
	Compressed   int64
}

func (d *ArchiveDevice) Stats() ArchiveStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return ArchiveStats{Records: d.records, Uncompressed: d.raw, Compressed: d.packed}
}

// Close stops accepting uploads. It does not close the underlying writer.
func (d *ArchiveDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.enc.Close()
}

type archivedBuffer struct {
	size     int
	usage    Usage
	released bool
}

func (b *archivedBuffer) Size() int    { return b.size }
func (b *archivedBuffer) Usage() Usage { return b.usage }

func (b *archivedBuffer) Release() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	return nil
}

// Record is one upload read back from an archive.
type Record struct {
	Usage Usage
	Data  []byte
}

// ReadArchive decodes every record of an archive stream.
func ReadArchive(r io.Reader) ([]Record, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxRecordSize))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	for {
		var header struct {
			Usage        uint32
			Compressed   uint32
			Uncompressed uint32
		}
		if err := binary.Read(r, binary.BigEndian, &header); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, fmt.Errorf("gpu: record %d header: %w", len(out), err)
		}
		if header.Compressed > MaxRecordSize || header.Uncompressed > MaxRecordSize {
			return out, fmt.Errorf("gpu: record %d: %d/%d bytes: %w", len(out), header.Compressed, header.Uncompressed, ErrRecordTooLarge)
		}
		compressed := make([]byte, header.Compressed)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return out, fmt.Errorf("gpu: record %d: %w", len(out), err)
		}
		data, err := dec.DecodeAll(compressed, make([]byte, 0, header.Uncompressed))
		if err != nil {
			return out, fmt.Errorf("gpu: record %d: %w", len(out), err)
		}
		if len(data) != int(header.Uncompressed) {
			return out, fmt.Errorf("gpu: record %d: %d bytes, header says %d", len(out), len(data), header.Uncompressed)
		}
		out = append(out, Record{Usage: Usage(header.Usage), Data: data})
	}
}
