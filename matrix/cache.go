package matrix

// The two cache strategies trade memory for lookup latency in opposite
// dictionary-size regimes. Both are correctness-transparent: for every
// in-range id pair they return the same value as Matrix.Cost.

// fullCache materializes the entire table as native int16 cells, removing
// the per-lookup byte decoding. Suited to small id spaces; for large
// dictionaries the resident table usually outweighs the benefit because
// real traffic touches only a small fraction of the id pairs.
type fullCache struct {
	numLeft int
	cells   []int16
}

// NewFullCache precomputes every cell of m.
func NewFullCache(m *Matrix) CostSource {
	c := &fullCache{
		numLeft: m.numLeft,
		cells:   make([]int16, m.numLeft*m.numRight),
	}
	for left := 0; left < m.numLeft; left++ {
		for right := 0; right < m.numRight; right++ {
			c.cells[right+m.numLeft*left] = m.Cost(uint16(right), uint16(left))
		}
	}
	tracer().Infof("full matrix cache: %dx%d cells resident", m.numLeft, m.numRight)
	return c
}

func (c *fullCache) Cost(right, left uint16) int16 {
	return c.cells[int(right)+c.numLeft*int(left)]
}

// fastCache precomputes a dense sub-table covering a caller-selected set of
// frequent ids and falls back to the direct table for everything else. The
// selection heuristic lives with the caller and carries no stability
// contract; only value-transparency is guaranteed.
type fastCache struct {
	direct    *Matrix
	rightSlot []int32 // id -> slot, -1 if uncached
	leftSlot  []int32
	width     int // cached right ids per row
	cells     []int16
}

// NewFastCache precomputes the cross product of the given right and left
// ids. Duplicate and out-of-range ids are ignored.
func NewFastCache(m *Matrix, rightIDs, leftIDs []uint16) CostSource {
	c := &fastCache{
		direct:    m,
		rightSlot: newSlotMap(m.numRight),
		leftSlot:  newSlotMap(m.numLeft),
	}
	rights := assignSlots(c.rightSlot, rightIDs)
	lefts := assignSlots(c.leftSlot, leftIDs)
	c.width = len(rights)
	c.cells = make([]int16, len(rights)*len(lefts))
	for ls, left := range lefts {
		for rs, right := range rights {
			c.cells[ls*c.width+rs] = m.Cost(right, left)
		}
	}
	tracer().Infof("fast matrix cache: %dx%d of %dx%d pairs resident",
		len(rights), len(lefts), m.numRight, m.numLeft)
	return c
}

func (c *fastCache) Cost(right, left uint16) int16 {
	rs := c.rightSlot[right]
	ls := c.leftSlot[left]
	if rs < 0 || ls < 0 {
		return c.direct.Cost(right, left)
	}
	return c.cells[int(ls)*c.width+int(rs)]
}

func newSlotMap(n int) []int32 {
	m := make([]int32, n)
	for i := range m {
		m[i] = -1
	}
	return m
}

func assignSlots(slots []int32, ids []uint16) []uint16 {
	kept := make([]uint16, 0, len(ids))
	for _, id := range ids {
		if int(id) >= len(slots) || slots[id] >= 0 {
			continue
		}
		slots[id] = int32(len(kept))
		kept = append(kept, id)
	}
	return kept
}
