package voxel

const (
	// Size is the horizontal extent of a chunk and the edge length of a section.
	Size = 16
	// Height is the vertical extent of a chunk.
	Height = 384
	// Sections is the number of vertically stacked sections in a Grid.
	Sections = Height / Size
)

type Section [Size * Size * Size]Block

func sectionIndex(x, y, z int) int {
	return (y&15)<<8 | (z&15)<<4 | (x & 15)
}

func (s *Section) At(x, y, z int) Block {
	return s[sectionIndex(x, y, z)]
}

func (s *Section) Set(x, y, z int, b Block) {
	s[sectionIndex(x, y, z)] = b
}

// Grid holds the blocks of one chunk column. Sections are allocated on first write; a nil
// section reads as air.
type Grid struct {
	sections [Sections]*Section
}

func NewGrid() *Grid {
	return &Grid{}
}

// At returns the block at the given chunk-local position. Horizontal coordinates wrap to the
// chunk; vertical coordinates outside [0, Height) are air.
func (g *Grid) At(x, y, z int) Block {
	if y < 0 || y >= Height {
		return Air
	}
	s := g.sections[y/Size]
	if s == nil {
		return Air
	}
	return s.At(x, y, z)
}

// Set stores b at the given position; writes outside the vertical range are ignored.
func (g *Grid) Set(x, y, z int, b Block) {
	if y < 0 || y >= Height {
		return
	}
	s := g.sections[y/Size]
	if s == nil {
		if b == Air {
			return
		}
		s = new(Section)
		g.sections[y/Size] = s
	}
	s.Set(x, y, z, b)
}

// Section returns section i or nil if it is unallocated or out of range.
func (g *Grid) Section(i int) *Section {
	if i < 0 || i >= Sections {
		return nil
	}
	return g.sections[i]
}

// SetSection replaces section i. A nil section clears it back to air.
func (g *Grid) SetSection(i int, s *Section) {
	if i < 0 || i >= Sections {
		return
	}
	g.sections[i] = s
}

// SectionCount reports how many sections are allocated.
func (g *Grid) SectionCount() (n int) {
	for _, s := range g.sections {
		if s != nil {
			n++
		}
	}
	return
}

// Empty reports whether every block is air.
func (g *Grid) Empty() bool {
	for _, s := range g.sections {
		if s != nil && *s != (Section{}) {
			return false
		}
	}
	return true
}

// Equal compares block contents; an unallocated section equals an all-air one.
func (g *Grid) Equal(other *Grid) bool {
	for i := range g.sections {
		a, b := g.sections[i], other.sections[i]
		switch {
		case a == nil && b == nil:
		case a == nil:
			if *b != (Section{}) {
				return false
			}
		case b == nil:
			if *a != (Section{}) {
				return false
			}
		case *a != *b:
			return false
		}
	}
	return true
}

// Neighbors is the 3x3 footprint around a chunk, indexed [dx+1][dz+1]. The center must be the
// chunk being meshed; any other entry may be nil, meaning "not loaded" and read as air.
type Neighbors [3][3]*Grid

// At resolves a block relative to the center chunk, reaching into the neighbor table for x or z
// outside [0, Size).
func (n *Neighbors) At(x, y, z int) Block {
	if y < 0 || y >= Height {
		return Air
	}
	g := n[slot(x)][slot(z)]
	if g == nil {
		return Air
	}
	return g.At(x&(Size-1), y, z&(Size-1))
}

// Center returns the grid being meshed.
func (n *Neighbors) Center() *Grid {
	return n[1][1]
}

func slot(c int) int {
	switch {
	case c < 0:
		return 0
	case c >= Size:
		return 2
	}
	return 1
}
