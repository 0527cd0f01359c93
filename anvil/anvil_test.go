package anvil

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/astei/anvilmesh/nbt"
	"github.com/astei/anvilmesh/voxel"
	"github.com/astei/anvilmesh/world"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGrid() *voxel.Grid {
	g := voxel.NewGrid()
	for x := 0; x < voxel.Size; x++ {
		for z := 0; z < voxel.Size; z++ {
			g.Set(x, 0, z, voxel.Stone)
			g.Set(x, 1, z, voxel.Dirt)
			if (x+z)%3 == 0 {
				g.Set(x, 2, z, voxel.Grass)
			}
		}
	}
	g.Set(5, 100, 7, voxel.Water)
	g.Set(6, 100, 7, voxel.Unknown)
	// a uniform section
	for i := 0; i < voxel.Size; i++ {
		for j := 0; j < voxel.Size; j++ {
			for k := 0; k < voxel.Size; k++ {
				g.Set(i, 16*10+j, k, voxel.Sand)
			}
		}
	}
	return g
}

func regionBytes(t *testing.T, w *Writer) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := w.WriteTo(&buf)
	require.NoError(t, err)
	require.EqualValues(t, buf.Len(), n)
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	in := sampleGrid()
	w := NewWriter()
	require.NoError(t, w.SetGrid(-3, 40, in))
	require.NoError(t, w.SetGrid(0, 0, voxel.NewGrid()))
	assert.Equal(t, 2, w.Len())

	r, err := NewReader(bytes.NewReader(regionBytes(t, w)))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.ChunkExists(29, 8))
	assert.False(t, r.ChunkExists(1, 1))

	region := &Region{reader: r}
	out := voxel.NewGrid()
	require.NoError(t, region.LoadChunk(29, 8, out))
	assert.True(t, in.Equal(out))
	assert.Equal(t, voxel.Unknown, out.At(6, 100, 7))

	empty := voxel.NewGrid()
	require.NoError(t, region.LoadChunk(0, 0, empty))
	assert.True(t, empty.Empty())

	// absent chunks leave the grid alone
	require.NoError(t, region.LoadChunk(1, 1, empty))
	assert.True(t, empty.Empty())
	require.NoError(t, region.Close())
}

func TestWorldDirectory(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()
	require.NoError(t, w.SetGrid(-1, -1, sampleGrid()))
	require.NoError(t, w.WriteFile(dir, -1, -1))
	require.NoError(t, NewWriter().WriteFile(dir, 2, 0))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level.dat"), []byte{0}, 0o644))

	aw, err := Open(dir)
	require.NoError(t, err)
	regions, err := aw.Regions()
	require.NoError(t, err)
	assert.Equal(t, []world.Coord{{X: -1, Z: -1}, {X: 2, Z: 0}}, regions)

	rs, err := aw.OpenRegion(-1, -1)
	require.NoError(t, err)
	require.NotNil(t, rs)
	g := voxel.NewGrid()
	require.NoError(t, rs.LoadChunk(31, 31, g))
	assert.True(t, sampleGrid().Equal(g))
	require.NoError(t, rs.Close())

	chunks, err := aw.Chunks()
	require.NoError(t, err)
	assert.Equal(t, []world.Coord{{X: -1, Z: -1}}, chunks)

	missing, err := aw.OpenRegion(7, 7)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = Open(filepath.Join(dir, "level.dat"))
	assert.Error(t, err)
}

func TestWorldSource(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter()
	g := voxel.NewGrid()
	g.Set(0, 0, 0, voxel.Planks)
	require.NoError(t, w.SetGrid(33, 1, g))
	require.NoError(t, w.WriteFile(dir, 1, 0))

	aw, err := Open(dir)
	require.NoError(t, err)
	ww := world.New(aw, world.Options{Workers: 2})
	require.True(t, ww.Request(33, 1))
	require.True(t, ww.Request(-100, 5))
	require.NoError(t, ww.WaitIdle(context.Background()))

	c := ww.Resident(33, 1)
	require.NotNil(t, c)
	assert.Equal(t, voxel.Planks, c.Grid().At(0, 0, 0))
	assert.Equal(t, 6, ww.Mesh(c).Quads)
	c.Unref()

	c = ww.Resident(-100, 5)
	require.NotNil(t, c)
	assert.True(t, c.Grid().Empty())
	c.Unref()
	require.NoError(t, ww.Close(context.Background()))
}

type legacyChunk struct {
	Level struct {
		Sections []legacySection `nbt:"Sections"`
	} `nbt:"Level"`
}

type legacySection struct {
	Y      int8   `nbt:"Y"`
	Blocks []byte `nbt:"Blocks"`
}

func encode(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, nbt.NewEncoder(&buf).Encode(v))
	return &buf
}

func TestDecodeLegacy(t *testing.T) {
	blocks := make([]byte, 4096)
	// index is y<<8 | z<<4 | x
	blocks[3<<8|2<<4|1] = 1
	blocks[0<<8|0<<4|15] = 12
	blocks[15<<8|15<<4|0] = 200

	var chunk legacyChunk
	chunk.Level.Sections = []legacySection{
		{Y: 1, Blocks: blocks},
		{Y: 2, Blocks: make([]byte, 4096)},
		{Y: -1, Blocks: blocks},
	}
	g := voxel.NewGrid()
	require.NoError(t, DecodeChunk(encode(t, chunk), g))

	assert.Equal(t, voxel.Stone, g.At(1, 16+3, 2))
	assert.Equal(t, voxel.Sand, g.At(15, 16, 0))
	assert.Equal(t, voxel.Unknown, g.At(0, 16+15, 15))
	assert.Equal(t, voxel.Air, g.At(2, 16+3, 1))
	assert.Equal(t, 1, g.SectionCount())
}

type flatteningChunk struct {
	DataVersion int32 `nbt:"DataVersion"`
	Level       struct {
		Sections []flatteningSection `nbt:"Sections"`
	} `nbt:"Level"`
}

type flatteningSection struct {
	Y           int8           `nbt:"Y"`
	Palette     []paletteEntry `nbt:"Palette"`
	BlockStates []int64        `nbt:"BlockStates"`
}

var seventeen = []paletteEntry{
	{"minecraft:air"}, {"minecraft:stone"}, {"minecraft:cobblestone"}, {"minecraft:dirt"},
	{"minecraft:grass_block"}, {"minecraft:tall_grass"}, {"minecraft:sand"}, {"minecraft:sandstone"},
	{"minecraft:gravel"}, {"minecraft:oak_planks"}, {"minecraft:water"}, {"minecraft:oak_leaves"},
	{"minecraft:oak_log"}, {"minecraft:snow_block"}, {"minecraft:lava"}, {"minecraft:cave_air"},
	{"minecraft:amethyst_block"},
}

func packStraddled(values []uint64, width int) []int64 {
	out := make([]int64, (len(values)*width+63)/64)
	for i, v := range values {
		bit := i * width
		out[bit/64] |= int64(v << (bit % 64))
		if bit%64+width > 64 {
			out[bit/64+1] |= int64(v >> (64 - bit%64))
		}
	}
	return out
}

func packAligned(values []uint64, width int) []int64 {
	per := 64 / width
	out := make([]int64, (len(values)+per-1)/per)
	for i, v := range values {
		out[i/per] |= int64(v << ((i % per) * width))
	}
	return out
}

func TestDecodePalette(t *testing.T) {
	values := make([]uint64, 4096)
	for i := range values {
		values[i] = uint64(i*7) % uint64(len(seventeen))
	}
	expect := func(t *testing.T, g *voxel.Grid) {
		for i, v := range values {
			x, z, y := i&15, (i>>4)&15, i>>8
			require.Equal(t, BlockByName(seventeen[v].Name), g.At(x, 32+y, z), "index %d", i)
		}
	}

	cases := []struct {
		name    string
		version int32
		pack    func([]uint64, int) []int64
	}{
		{"straddled", 1976, packStraddled},
		{"aligned", 2586, packAligned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var chunk flatteningChunk
			chunk.DataVersion = tc.version
			chunk.Level.Sections = []flatteningSection{{
				Y:           2,
				Palette:     seventeen,
				BlockStates: tc.pack(values, 5),
			}}
			g := voxel.NewGrid()
			require.NoError(t, DecodeChunk(encode(t, chunk), g))
			expect(t, g)
		})
	}
}

type modernChunk struct {
	DataVersion int32           `nbt:"DataVersion"`
	Sections    []modernSection `nbt:"sections"`
}

type modernSection struct {
	Y      int8                   `nbt:"Y"`
	States map[string]interface{} `nbt:"block_states"`
}

func TestDecodeModern(t *testing.T) {
	values := make([]uint64, 4096)
	for i := range values {
		values[i] = uint64(i % 2)
	}
	chunk := modernChunk{
		DataVersion: 3465,
		Sections: []modernSection{
			{Y: -4, States: map[string]interface{}{"palette": []paletteEntry{{"minecraft:stone"}}}},
			{Y: 0, States: map[string]interface{}{"palette": []paletteEntry{{"minecraft:air"}}}},
			{Y: 1, States: map[string]interface{}{"palette": []paletteEntry{{"minecraft:gravel"}}}},
			{Y: 2, States: map[string]interface{}{
				"palette": []paletteEntry{{"minecraft:air"}, {"minecraft:snow_block"}},
				"data":    packAligned(values, 4),
			}},
			{Y: 24, States: map[string]interface{}{"palette": []paletteEntry{{"minecraft:stone"}}}},
		},
	}
	g := voxel.NewGrid()
	require.NoError(t, DecodeChunk(encode(t, chunk), g))

	assert.Nil(t, g.Section(0))
	assert.Equal(t, voxel.Gravel, g.At(0, 16, 0))
	assert.Equal(t, voxel.Gravel, g.At(15, 31, 15))
	assert.Equal(t, voxel.Air, g.At(0, 32, 0))
	assert.Equal(t, voxel.Snow, g.At(1, 32, 0))
	assert.Equal(t, 2, g.SectionCount())
}

func TestDecodeCorrupt(t *testing.T) {
	cases := map[string]interface{}{
		"short data": modernChunk{DataVersion: 3000, Sections: []modernSection{{Y: 0, States: map[string]interface{}{
			"palette": []paletteEntry{{"minecraft:air"}, {"minecraft:stone"}},
			"data":    []int64{1, 2, 3},
		}}}},
		"index out of range": modernChunk{DataVersion: 3000, Sections: []modernSection{{Y: 0, States: map[string]interface{}{
			"palette": []paletteEntry{{"minecraft:air"}, {"minecraft:stone"}},
			"data":    packAligned(append(make([]uint64, 4095), 9), 4),
		}}}},
		"short legacy": legacyChunk{Level: struct {
			Sections []legacySection `nbt:"Sections"`
		}{Sections: []legacySection{{Y: 0, Blocks: []byte{1, 2}}}}},
	}
	for name, chunk := range cases {
		t.Run(name, func(t *testing.T) {
			err := DecodeChunk(encode(t, chunk), voxel.NewGrid())
			assert.ErrorIs(t, err, voxel.ErrCorrupt)
		})
	}

	err := DecodeChunk(bytes.NewReader([]byte{nbt.TagCompound, 0}), voxel.NewGrid())
	assert.ErrorIs(t, err, voxel.ErrCorrupt)
}

func TestDecodeShortReads(t *testing.T) {
	in := sampleGrid()
	data, err := EncodeChunk(4, 4, in)
	require.NoError(t, err)

	out := voxel.NewGrid()
	require.NoError(t, DecodeChunk(iotest.OneByteReader(bytes.NewReader(data)), out))
	assert.Equal(t, in.SectionCount(), out.SectionCount())
	assert.True(t, in.Equal(out))
}

func TestReadChunkStreamDecodes(t *testing.T) {
	in := sampleGrid()
	w := NewWriter()
	require.NoError(t, w.SetGrid(1, 2, in))
	r, err := NewReader(bytes.NewReader(regionBytes(t, w)))
	require.NoError(t, err)

	stream, err := r.ReadChunk(1, 2)
	require.NoError(t, err)
	out := voxel.NewGrid()
	require.NoError(t, DecodeChunk(stream, out))
	assert.Equal(t, 3, out.SectionCount())
	assert.True(t, in.Equal(out))
}

func TestBitsPerEntry(t *testing.T) {
	for n, want := range map[int]int{1: 4, 2: 4, 16: 4, 17: 5, 32: 5, 33: 6, 256: 8, 257: 9} {
		assert.Equal(t, want, BitsPerEntry(n), "palette of %d", n)
	}
}

// rawRegion builds a region holding one chunk at slot 0 with the given compression byte.
func rawRegion(compression Compression, payload []byte) []byte {
	sector := make([]byte, 4, sectorSize)
	binary.BigEndian.PutUint32(sector, uint32(len(payload)+1))
	sector = append(sector, byte(compression))
	sector = append(sector, payload...)
	sector = append(sector, make([]byte, sectorSize-len(sector))...)

	out := make([]byte, 2*sectorSize)
	binary.BigEndian.PutUint32(out, 2<<8|1)
	return append(out, sector...)
}

func TestReaderCompression(t *testing.T) {
	g := voxel.NewGrid()
	g.Set(3, 3, 3, voxel.Lava)
	payload, err := EncodeChunk(0, 0, g)
	require.NoError(t, err)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	for name, raw := range map[string][]byte{
		"gzip": rawRegion(CompressionGzip, gz.Bytes()),
		"none": rawRegion(CompressionNone, payload),
	} {
		t.Run(name, func(t *testing.T) {
			r, err := NewReader(bytes.NewReader(raw))
			require.NoError(t, err)
			out := voxel.NewGrid()
			require.NoError(t, (&Region{reader: r}).LoadChunk(0, 0, out))
			assert.True(t, g.Equal(out))
		})
	}

	r, err := NewReader(bytes.NewReader(rawRegion(Compression(9), payload)))
	require.NoError(t, err)
	_, err = r.ReadChunk(0, 0)
	assert.ErrorIs(t, err, ErrInvalidCompression)
	assert.ErrorIs(t, err, voxel.ErrCorrupt)

	_, err = NewReader(bytes.NewReader(make([]byte, 100)))
	assert.Error(t, err)
}

func TestBlockNames(t *testing.T) {
	assert.Equal(t, voxel.Air, BlockByName("minecraft:cave_air"))
	assert.Equal(t, voxel.Stone, BlockByName("minecraft:deepslate"))
	assert.Equal(t, voxel.Unknown, BlockByName("minecraft:amethyst_block"))
	assert.Equal(t, voxel.Unknown, BlockByLegacyID(250))
	for b := voxel.Block(1); b <= voxel.Unknown; b++ {
		assert.Equal(t, b, BlockByName(BlockName(b)), "block %d", b)
	}
}
