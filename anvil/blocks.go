package anvil

import (
	"strings"

	"github.com/astei/anvilmesh/voxel"
)

var byName = map[string]voxel.Block{
	"stone":             voxel.Stone,
	"granite":           voxel.Stone,
	"diorite":           voxel.Stone,
	"andesite":          voxel.Stone,
	"deepslate":         voxel.Stone,
	"tuff":              voxel.Stone,
	"bedrock":           voxel.Stone,
	"cobblestone":       voxel.CobbleStone,
	"dirt":              voxel.Dirt,
	"coarse_dirt":       voxel.Dirt,
	"farmland":          voxel.Dirt,
	"grass_block":       voxel.Grass,
	"grass":             voxel.TallGrass,
	"short_grass":       voxel.TallGrass,
	"tall_grass":        voxel.TallGrass,
	"fern":              voxel.TallGrass,
	"sand":              voxel.Sand,
	"sandstone":         voxel.SandStone,
	"gravel":            voxel.Gravel,
	"oak_planks":        voxel.Planks,
	"spruce_planks":     voxel.Planks,
	"birch_planks":      voxel.Planks,
	"water":             voxel.Water,
	"oak_leaves":        voxel.Leaves,
	"spruce_leaves":     voxel.Leaves,
	"birch_leaves":      voxel.Leaves,
	"jungle_leaves":     voxel.Leaves,
	"oak_log":           voxel.Wood,
	"spruce_log":        voxel.Wood,
	"birch_log":         voxel.Wood,
	"jungle_log":        voxel.Wood,
	"snow":              voxel.Snow,
	"snow_block":        voxel.Snow,
	"lava":              voxel.Lava,
	"white_terracotta":  voxel.WhiteTerracotta,
	"quartz_block":      voxel.Quartz,
	"dandelion":         voxel.Dandelion,
	"mossy_cobblestone": voxel.MossyCobbleStone,
	"redstone_block":    voxel.Test,
}

// canonical is the name written for each block id.
var canonical = map[voxel.Block]string{
	voxel.Air:              "minecraft:air",
	voxel.Stone:            "minecraft:stone",
	voxel.CobbleStone:      "minecraft:cobblestone",
	voxel.Dirt:             "minecraft:dirt",
	voxel.Grass:            "minecraft:grass_block",
	voxel.TallGrass:        "minecraft:tall_grass",
	voxel.Sand:             "minecraft:sand",
	voxel.SandStone:        "minecraft:sandstone",
	voxel.Gravel:           "minecraft:gravel",
	voxel.Planks:           "minecraft:oak_planks",
	voxel.Water:            "minecraft:water",
	voxel.Leaves:           "minecraft:oak_leaves",
	voxel.Wood:             "minecraft:oak_log",
	voxel.Snow:             "minecraft:snow_block",
	voxel.Lava:             "minecraft:lava",
	voxel.WhiteTerracotta:  "minecraft:white_terracotta",
	voxel.Quartz:           "minecraft:quartz_block",
	voxel.Dandelion:        "minecraft:dandelion",
	voxel.MossyCobbleStone: "minecraft:mossy_cobblestone",
	voxel.Test:             "minecraft:redstone_block",
}

// legacy maps pre-flattening numeric block ids.
var legacy = [256]voxel.Block{
	1:   voxel.Stone,
	2:   voxel.Grass,
	3:   voxel.Dirt,
	4:   voxel.CobbleStone,
	5:   voxel.Planks,
	7:   voxel.Stone,
	8:   voxel.Water,
	9:   voxel.Water,
	10:  voxel.Lava,
	11:  voxel.Lava,
	12:  voxel.Sand,
	13:  voxel.Gravel,
	17:  voxel.Wood,
	18:  voxel.Leaves,
	24:  voxel.SandStone,
	31:  voxel.TallGrass,
	37:  voxel.Dandelion,
	48:  voxel.MossyCobbleStone,
	78:  voxel.Snow,
	80:  voxel.Snow,
	155: voxel.Quartz,
	159: voxel.WhiteTerracotta,
	161: voxel.Leaves,
	162: voxel.Wood,
}

// BlockByName maps a namespaced block name to a block id. Names ending in "air" are air; other
// names without an entry are Unknown.
func BlockByName(name string) voxel.Block {
	name = strings.TrimPrefix(name, "minecraft:")
	if strings.HasSuffix(name, "air") {
		return voxel.Air
	}
	if b, ok := byName[name]; ok {
		return b
	}
	return voxel.Unknown
}

// BlockByLegacyID maps a pre-flattening block id.
func BlockByLegacyID(id uint8) voxel.Block {
	if id == 0 {
		return voxel.Air
	}
	if b := legacy[id]; b != voxel.Air {
		return b
	}
	return voxel.Unknown
}

// BlockName returns the name written for b. Ids without a name of their own, Unknown included,
// are written as a block that reads back as Unknown.
func BlockName(b voxel.Block) string {
	if name, ok := canonical[b]; ok {
		return name
	}
	return "minecraft:magenta_wool"
}
