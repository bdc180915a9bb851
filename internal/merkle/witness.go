package merkle

import "fmt"

// Witness is the sibling path from a leaf to the root. Bit i of Index says
// whether the node at level i is a right child.
type Witness struct {
	Index    uint64 `json:"index"`
	Siblings []Hash `json:"siblings"`
}

func (w Witness) Height() int { return len(w.Siblings) }

// CalculateRoot folds leaf up the path.
func (w Witness) CalculateRoot(leaf Hash) Hash {
	cur := leaf
	idx := w.Index
	for _, sib := range w.Siblings {
		if idx&1 == 0 {
			cur = HashPair(cur, sib)
		} else {
			cur = HashPair(sib, cur)
		}
		idx >>= 1
	}
	return cur
}

// Check returns ErrInclusionMismatch unless leaf recomputes root.
func (w Witness) Check(root, leaf Hash) error {
	if len(w.Siblings) == 0 {
		return fmt.Errorf("%w: empty witness", ErrInclusionMismatch)
	}
	if w.Index>>uint(len(w.Siblings)) != 0 {
		return fmt.Errorf("%w: index %d exceeds witness height %d", ErrInclusionMismatch, w.Index, len(w.Siblings))
	}
	if got := w.CalculateRoot(leaf); got != root {
		return fmt.Errorf("%w: leaf %d computes %s, want %s", ErrInclusionMismatch, w.Index, got, root)
	}
	return nil
}

// Verify reports whether leaf is included under root at w.Index.
func Verify(root Hash, w Witness, leaf Hash) bool {
	return w.Check(root, leaf) == nil
}
