package chunk

// FilteringBlocks is a map of light filtering levels (opacity) indexed by
// block runtime ID. It is built by the block registry once all blocks are
// registered and is consulted by value during light propagation: 15 means the
// block is fully opaque, 0 means light passes through unhindered.
var FilteringBlocks []uint8

// LightBlocks is a map of light emission levels indexed by block runtime ID.
// It is built by the block registry once all blocks are registered.
var LightBlocks []uint8

// lightType distinguishes the two lights propagated through chunks.
type lightType uint8

const (
	// BlockLight is light emitted by blocks such as torches or lava.
	BlockLight lightType = iota
	// SkyLight is light coming from the sky, seeded at the top of each
	// column.
	SkyLight
)

// lightNode is a node pushed on the propagation queue. It holds the position
// of the cell that received a new light value and the value itself. Nodes are
// ephemeral and never persisted.
type lightNode struct {
	x, z  int
	y     int16
	level uint8
	lt    lightType
}

// lightQueue is a FIFO queue of light nodes used for the BFS relaxation.
type lightQueue struct {
	nodes []lightNode
	head  int
}

// push adds a node to the back of the queue.
func (q *lightQueue) push(n lightNode) {
	q.nodes = append(q.nodes, n)
}

// pop takes a node from the front of the queue. The bool returned is false
// if the queue was empty.
func (q *lightQueue) pop() (lightNode, bool) {
	if q.head >= len(q.nodes) {
		// Reset the backing slice so that the capacity is reused for the
		// next relaxation round.
		q.nodes, q.head = q.nodes[:0], 0
		return lightNode{}, false
	}
	n := q.nodes[q.head]
	q.head++
	return n, true
}

// filterLevel returns the light filtering level of the block runtime ID
// passed, defaulting to full opacity for IDs out of range of the registry
// table.
func filterLevel(rid uint32) uint8 {
	if int(rid) < len(FilteringBlocks) {
		return FilteringBlocks[rid]
	}
	return 15
}

// emissionLevel returns the light emission level of the block runtime ID
// passed.
func emissionLevel(rid uint32) uint8 {
	if int(rid) < len(LightBlocks) {
		return LightBlocks[rid]
	}
	return 0
}
