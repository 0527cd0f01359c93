package anvil

import (
	"bytes"

	"github.com/astei/anvilmesh/nbt"
	"github.com/astei/anvilmesh/voxel"
)

// DataVersion is the data version written by EncodeChunk.
const DataVersion = 2860

type encodedChunk struct {
	DataVersion int32            `nbt:"DataVersion"`
	X           int32            `nbt:"xPos"`
	Z           int32            `nbt:"zPos"`
	Y           int32            `nbt:"yPos"`
	Status      string           `nbt:"Status"`
	Sections    []encodedSection `nbt:"sections"`
}

type encodedSection struct {
	Y int8 `nbt:"Y"`
	// palette plus, unless the section is uniform, packed data
	States map[string]interface{} `nbt:"block_states"`
}

// EncodeChunk writes g as the NBT of chunk (cx, cz) in the post-1.18 layout. All-air sections
// are left out.
func EncodeChunk(cx, cz int, g *voxel.Grid) ([]byte, error) {
	chunk := encodedChunk{
		DataVersion: DataVersion,
		X:           int32(cx),
		Z:           int32(cz),
		Status:      "minecraft:full",
	}
	for y := 0; y < voxel.Sections; y++ {
		s := g.Section(y)
		if s == nil || *s == (voxel.Section{}) {
			continue
		}
		chunk.Sections = append(chunk.Sections, encodedSection{
			Y:      int8(y),
			States: encodeStates(s),
		})
	}

	var buf bytes.Buffer
	if err := nbt.NewEncoder(&buf).Encode(chunk); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeStates(s *voxel.Section) map[string]interface{} {
	index := make(map[voxel.Block]uint64)
	var palette []paletteEntry
	values := make([]uint64, len(s))
	for i, b := range s {
		v, ok := index[b]
		if !ok {
			v = uint64(len(palette))
			index[b] = v
			palette = append(palette, paletteEntry{Name: BlockName(b)})
		}
		values[i] = v
	}

	states := map[string]interface{}{"palette": palette}
	if len(palette) == 1 {
		return states
	}

	width := BitsPerEntry(len(palette))
	perLong := 64 / width
	data := make([]int64, wordsNeeded(width, false))
	for i, v := range values {
		data[i/perLong] |= int64(v << ((i % perLong) * width))
	}
	states["data"] = data
	return states
}
