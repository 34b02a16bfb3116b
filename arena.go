package sparse

// elementArena hands out elements from fixed-size blocks. A block is never
// reallocated, so pointers into it remain valid while the matrix grows.
type elementArena struct {
	blocks    [][]Element
	next      int // next free slot in the last block
	blockSize int
	allocated int
}

func newElementArena(firstBlock, blockSize int) *elementArena {
	if firstBlock < 1 {
		firstBlock = DefaultElementsPerAllocation
	}
	if blockSize < 1 {
		blockSize = DefaultElementsPerAllocation
	}

	return &elementArena{
		blocks:    [][]Element{make([]Element, firstBlock)},
		blockSize: blockSize,
	}
}

func (a *elementArena) alloc(row, col int64) *Element {
	last := a.blocks[len(a.blocks)-1]
	if a.next >= len(last) {
		last = make([]Element, a.blockSize)
		a.blocks = append(a.blocks, last)
		a.next = 0
	}

	element := &last[a.next]
	a.next++
	a.allocated++

	element.Row = row
	element.Col = col
	return element
}

func (a *elementArena) count() int {
	return a.allocated
}

func (a *elementArena) release() {
	a.blocks = nil
	a.next = 0
	a.allocated = 0
}
