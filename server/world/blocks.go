package world

// airRID is the runtime ID of the air block. Air is always registered first
// so that zeroed storage reads as air.
var airRID uint32

// The base vocabulary of blocks. Generators and tests resolve these by name
// through MustBlockRuntimeID; anything beyond this set is registered by the
// application embedding the world.
func init() {
	solid := BlockProperties{LightFilter: 15, Solid: true}

	airRID = RegisterBlock(BlockState{Name: "minecraft:air"}, BlockProperties{Replaceable: true})
	RegisterBlock(BlockState{Name: "minecraft:stone"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:bedrock"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:dirt"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:grass_block"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:sand"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:sandstone"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:gravel"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:snow_block"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:coal_ore"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:iron_ore"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:gold_ore"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:diamond_ore"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:water"}, BlockProperties{LightFilter: 2, Replaceable: true})
	RegisterBlock(BlockState{Name: "minecraft:lava"}, BlockProperties{LightEmission: 15, LightFilter: 15})
	RegisterBlock(BlockState{Name: "minecraft:oak_log"}, solid)
	RegisterBlock(BlockState{Name: "minecraft:oak_leaves"}, BlockProperties{LightFilter: 1})
	RegisterBlock(BlockState{Name: "minecraft:short_grass"}, BlockProperties{Replaceable: true})
	RegisterBlock(BlockState{Name: "minecraft:dandelion"}, BlockProperties{})
	RegisterBlock(BlockState{Name: "minecraft:poppy"}, BlockProperties{})
	RegisterBlock(BlockState{Name: "minecraft:cactus"}, BlockProperties{})
	RegisterBlock(BlockState{Name: "minecraft:dead_bush"}, BlockProperties{})
	RegisterBlock(BlockState{Name: "minecraft:glowstone"}, BlockProperties{LightEmission: 15, LightFilter: 15, Solid: true})
	RegisterBlock(BlockState{Name: "minecraft:torch"}, BlockProperties{LightEmission: 14})
}

// MustBlockRuntimeID resolves the runtime ID of a block state with no
// properties by name. It panics if the block was never registered and is
// meant for static lookups of the base vocabulary.
func MustBlockRuntimeID(name string) uint32 {
	rid, ok := BlockRuntimeID(BlockState{Name: name})
	if !ok {
		panic("world: no block registered under name " + name)
	}
	return rid
}
