package anvil

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"

	"github.com/Tnze/go-mc/nbt"
	"github.com/astei/anvilmesh/voxel"
)

const (
	// DataVersion1_18 is the last data version storing sections under "Level".
	DataVersion1_18 = 2825
	// DataVersionNoStraddle is the first data version whose packed indices never span two longs.
	DataVersionNoStraddle = 2504
)

type chunkRoot struct {
	DataVersion int32        `nbt:"DataVersion"`
	Level       chunkLevel   `nbt:"Level"`
	Sections    []rawSection `nbt:"sections"`
}

type chunkLevel struct {
	X        int32        `nbt:"xPos"`
	Z        int32        `nbt:"zPos"`
	Sections []rawSection `nbt:"Sections"`
}

type rawSection struct {
	Y int8 `nbt:"Y"`

	// pre-flattening
	Blocks []byte `nbt:"Blocks"`

	// 1.13 to 1.17
	Palette     []paletteEntry `nbt:"Palette"`
	BlockStates []int64        `nbt:"BlockStates"`

	// 1.18 onwards
	States blockStates `nbt:"block_states"`
}

type blockStates struct {
	Palette []paletteEntry `nbt:"palette"`
	Data    []int64        `nbt:"data"`
}

type paletteEntry struct {
	Name string `nbt:"Name"`
}

// DecodeChunk reads one chunk's NBT from r into g. The payload is buffered whole first: the NBT
// decoder expects every Read to fill its buffer, which decompressors do not promise.
func DecodeChunk(r io.Reader, g *voxel.Grid) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("anvil: reading chunk payload: %v: %w", err, voxel.ErrCorrupt)
	}
	var root chunkRoot
	if err := nbt.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return fmt.Errorf("anvil: decoding chunk nbt: %v: %w", err, voxel.ErrCorrupt)
	}

	modern := root.DataVersion > DataVersion1_18
	sections := root.Level.Sections
	if modern {
		sections = root.Sections
	}
	straddle := root.DataVersion < DataVersionNoStraddle

	for i := range sections {
		s := &sections[i]
		if s.Y < 0 || int(s.Y) >= voxel.Sections {
			continue
		}
		var err error
		switch {
		case s.Blocks != nil:
			err = decodeLegacy(g, int(s.Y), s.Blocks)
		case modern:
			err = decodePalette(g, int(s.Y), s.States.Palette, s.States.Data, straddle)
		default:
			err = decodePalette(g, int(s.Y), s.Palette, s.BlockStates, straddle)
		}
		if err != nil {
			return fmt.Errorf("section %d: %w", s.Y, err)
		}
	}
	return nil
}

func decodeLegacy(g *voxel.Grid, sy int, blocks []byte) error {
	if len(blocks) < len(voxel.Section{}) {
		return fmt.Errorf("anvil: %d legacy blocks: %w", len(blocks), voxel.ErrCorrupt)
	}
	var sec voxel.Section
	solid := false
	for i := range sec {
		if b := BlockByLegacyID(blocks[i]); b != voxel.Air {
			sec[i] = b
			solid = true
		}
	}
	if solid {
		g.SetSection(sy, &sec)
	}
	return nil
}

// BitsPerEntry is the packed index width for a palette of n entries.
func BitsPerEntry(n int) int {
	b := bits.Len(uint(n - 1))
	if b < 4 {
		return 4
	}
	return b
}

func decodePalette(g *voxel.Grid, sy int, palette []paletteEntry, data []int64, straddle bool) error {
	if len(palette) == 0 {
		return nil
	}
	ids := make([]voxel.Block, len(palette))
	solid := false
	for i, p := range palette {
		ids[i] = BlockByName(p.Name)
		solid = solid || ids[i] != voxel.Air
	}
	if !solid {
		return nil
	}

	var sec voxel.Section
	if len(palette) == 1 && len(data) == 0 {
		for i := range sec {
			sec[i] = ids[0]
		}
		g.SetSection(sy, &sec)
		return nil
	}

	width := BitsPerEntry(len(palette))
	need := wordsNeeded(width, straddle)
	if len(data) < need {
		return fmt.Errorf("anvil: %d longs for %d-bit indices, need %d: %w", len(data), width, need, voxel.ErrCorrupt)
	}

	mask := uint64(1)<<width - 1
	perLong := 64 / width
	for i := range sec {
		var v uint64
		if straddle {
			bit := i * width
			word, off := bit/64, bit%64
			v = uint64(data[word]) >> off
			if off+width > 64 {
				v |= uint64(data[word+1]) << (64 - off)
			}
		} else {
			v = uint64(data[i/perLong]) >> ((i % perLong) * width)
		}
		v &= mask
		if v >= uint64(len(ids)) {
			return fmt.Errorf("anvil: palette index %d of %d: %w", v, len(ids), voxel.ErrCorrupt)
		}
		sec[i] = ids[v]
	}
	g.SetSection(sy, &sec)
	return nil
}

func wordsNeeded(width int, straddle bool) int {
	n := len(voxel.Section{})
	if straddle {
		return (n*width + 63) / 64
	}
	perLong := 64 / width
	return (n + perLong - 1) / perLong
}
