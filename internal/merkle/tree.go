package merkle

import (
	"errors"
	"fmt"
)

// MaxHeight bounds tree height so capacities fit in a uint64 index.
const MaxHeight = 32

var (
	// ErrIndexOutOfRange is a programmer error: a leaf index beyond capacity.
	ErrIndexOutOfRange = errors.New("merkle: leaf index out of range")
	// ErrInclusionMismatch means a witness and leaf do not recompute the root.
	ErrInclusionMismatch = errors.New("merkle: witness does not reconcile with root")
	ErrInvalidHeight     = errors.New("merkle: invalid tree height")
)

// IndexError carries the offending index for ErrIndexOutOfRange.
type IndexError struct {
	Index    uint64
	Capacity uint64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("merkle: leaf index %d out of range [0, %d)", e.Index, e.Capacity)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// Tree is a sparse fixed-height Merkle tree. Level 0 holds leaves and level
// Height holds the root; absent nodes take the zero hash of their level.
// Not safe for concurrent use.
type Tree struct {
	height int
	nodes  []map[uint64]Hash
	zeros  []Hash
}

// New creates an empty tree with 2^height leaves.
func New(height int) (*Tree, error) {
	if height < 1 || height > MaxHeight {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHeight, height)
	}
	t := &Tree{
		height: height,
		nodes:  make([]map[uint64]Hash, height+1),
		zeros:  zeroLadder(height),
	}
	for i := range t.nodes {
		t.nodes[i] = make(map[uint64]Hash)
	}
	return t, nil
}

func zeroLadder(height int) []Hash {
	zeros := make([]Hash, height+1)
	zeros[0] = Zero
	for i := 1; i <= height; i++ {
		zeros[i] = HashPair(zeros[i-1], zeros[i-1])
	}
	return zeros
}

func (t *Tree) Height() int { return t.height }

func (t *Tree) Capacity() uint64 { return uint64(1) << t.height }

func (t *Tree) checkIndex(index uint64) error {
	if index >= t.Capacity() {
		return &IndexError{Index: index, Capacity: t.Capacity()}
	}
	return nil
}

func (t *Tree) node(level int, index uint64) Hash {
	if h, ok := t.nodes[level][index]; ok {
		return h
	}
	return t.zeros[level]
}

// SetLeaf writes a leaf and recomputes its path to the root.
func (t *Tree) SetLeaf(index uint64, leaf Hash) error {
	if err := t.checkIndex(index); err != nil {
		return err
	}
	t.nodes[0][index] = leaf
	idx := index
	for level := 1; level <= t.height; level++ {
		idx >>= 1
		left := t.node(level-1, idx*2)
		right := t.node(level-1, idx*2+1)
		t.nodes[level][idx] = HashPair(left, right)
	}
	return nil
}

func (t *Tree) Leaf(index uint64) (Hash, error) {
	if err := t.checkIndex(index); err != nil {
		return Hash{}, err
	}
	return t.node(0, index), nil
}

func (t *Tree) Root() Hash {
	return t.node(t.height, 0)
}

// Witness returns the authentication path for index.
func (t *Tree) Witness(index uint64) (Witness, error) {
	if err := t.checkIndex(index); err != nil {
		return Witness{}, err
	}
	siblings := make([]Hash, t.height)
	idx := index
	for level := 0; level < t.height; level++ {
		siblings[level] = t.node(level, idx^1)
		idx >>= 1
	}
	return Witness{Index: index, Siblings: siblings}, nil
}

// Clone returns an independent copy.
func (t *Tree) Clone() *Tree {
	c := &Tree{height: t.height, zeros: t.zeros, nodes: make([]map[uint64]Hash, len(t.nodes))}
	for i, level := range t.nodes {
		c.nodes[i] = make(map[uint64]Hash, len(level))
		for k, v := range level {
			c.nodes[i][k] = v
		}
	}
	return c
}
