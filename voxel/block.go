package voxel

import "errors"

// ErrCorrupt marks chunk data that violates the format's invariants (bit widths, palette indices,
// lengths). Callers are not expected to recover from it.
var ErrCorrupt = errors.New("voxel: corrupt chunk data")

// Block is an index into a Catalog. Zero is air.
type Block uint16

const (
	Air Block = iota
	Stone
	CobbleStone
	Dirt
	Grass
	TallGrass
	Sand
	SandStone
	Gravel
	Planks
	Water
	Leaves
	Wood
	Snow
	Lava
	WhiteTerracotta
	Quartz
	Dandelion
	MossyCobbleStone
	Test
	Unknown
)

// Color is a normalized RGB triple.
type Color struct {
	R, G, B float32
}

// Bytes scales the color to 0-255 per channel.
func (c Color) Bytes() [3]uint8 {
	return [3]uint8{channel(c.R), channel(c.G), channel(c.B)}
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v * 255)
}

type CatalogEntry struct {
	Name  string
	Color Color
}

// Catalog maps block ids to their name and color. It is immutable once built; every mesher gets
// its own reference instead of reading a package-level table.
type Catalog struct {
	entries []CatalogEntry
	byName  map[string]Block
}

func NewCatalog(entries ...CatalogEntry) *Catalog {
	cat := &Catalog{
		entries: append([]CatalogEntry(nil), entries...),
		byName:  make(map[string]Block, len(entries)),
	}
	for i, e := range cat.entries {
		cat.byName[e.Name] = Block(i)
	}
	return cat
}

// DefaultCatalog returns the built-in block table. Entry order matches the Block constants.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		CatalogEntry{"air", Color{0, 0, 0}},
		CatalogEntry{"stone", Color{0.49, 0.49, 0.49}},
		CatalogEntry{"cobblestone", Color{0.52, 0.52, 0.52}},
		CatalogEntry{"dirt", Color{0.25, 0.25, 0}},
		CatalogEntry{"grass", Color{0.2, 0.8, 0.1}},
		CatalogEntry{"tall_grass", Color{0.2, 0.9, 0.1}},
		CatalogEntry{"sand", Color{0.8, 0.8, 0}},
		CatalogEntry{"sandstone", Color{0.84, 0.8, 0.61}},
		CatalogEntry{"gravel", Color{0.9, 0.9, 0.9}},
		CatalogEntry{"planks", Color{0.8, 0.5, 0}},
		CatalogEntry{"water", Color{0, 0.2, 0.8}},
		CatalogEntry{"leaves", Color{0.1, 0.4, 0.1}},
		CatalogEntry{"wood", Color{0.3, 0.1, 0}},
		CatalogEntry{"snow", Color{1, 1, 1}},
		CatalogEntry{"lava", Color{1, 0.2, 0}},
		CatalogEntry{"white_terracotta", Color{0.82, 0.7, 0.63}},
		CatalogEntry{"quartz", Color{0.92, 0.9, 0.87}},
		CatalogEntry{"dandelion", Color{1, 0.94, 0.2}},
		CatalogEntry{"mossy_cobblestone", Color{0.45, 0.47, 0.41}},
		CatalogEntry{"test", Color{1, 0, 0}},
		CatalogEntry{"unknown", Color{1, 0, 1}},
	)
}

func (cat *Catalog) Len() int {
	return len(cat.entries)
}

// Color returns the color of b. Ids outside the table render with the last entry's color.
func (cat *Catalog) Color(b Block) Color {
	if int(b) < len(cat.entries) {
		return cat.entries[b].Color
	}
	if len(cat.entries) == 0 {
		return Color{}
	}
	return cat.entries[len(cat.entries)-1].Color
}

func (cat *Catalog) Name(b Block) string {
	if int(b) < len(cat.entries) {
		return cat.entries[b].Name
	}
	return ""
}

func (cat *Catalog) Lookup(name string) (Block, bool) {
	b, ok := cat.byName[name]
	return b, ok
}

// Solid reports whether b produces geometry.
func Solid(b Block) bool {
	return b != Air
}
