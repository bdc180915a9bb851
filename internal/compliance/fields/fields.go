package fields

import (
	"errors"
	"fmt"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

var (
	ErrSlotAlreadySet = errors.New("slot already set")
	ErrSlotUnset      = errors.New("slot not set")
	ErrUndeclaredSlot = errors.New("slot not declared by schema")
)

// Fields is the populated slot set of one entity. Every declared slot must
// be set exactly once before a tree can be built from it.
type Fields struct {
	schema *models.Schema
	values []string
	set    []bool
}

func New(schema *models.Schema) *Fields {
	return &Fields{
		schema: schema,
		values: make([]string, len(schema.Slots)),
		set:    make([]bool, len(schema.Slots)),
	}
}

func (f *Fields) Schema() *models.Schema { return f.schema }

// Set stores an already-normalized value. Slots past the tree capacity fail
// with merkle.ErrIndexOutOfRange.
func (f *Fields) Set(slot models.Slot, value string) error {
	if int(slot) >= f.schema.Capacity() {
		return &merkle.IndexError{Index: uint64(slot), Capacity: uint64(f.schema.Capacity())}
	}
	if int(slot) >= len(f.values) {
		return fmt.Errorf("%s slot %d: %w", f.schema.Type, slot, ErrUndeclaredSlot)
	}
	if f.set[slot] {
		return fmt.Errorf("%s slot %d: %w", f.schema.Type, slot, ErrSlotAlreadySet)
	}
	f.values[slot] = Truncate(value)
	f.set[slot] = true
	return nil
}

// Get returns the value at slot, or "" for an undeclared slot.
func (f *Fields) Get(slot models.Slot) string {
	if int(slot) >= len(f.values) {
		return ""
	}
	return f.values[slot]
}

// Complete reports the first unset slot, if any.
func (f *Fields) Complete() error {
	for i, ok := range f.set {
		if !ok {
			return fmt.Errorf("%s slot %d (%s): %w", f.schema.Type, i, f.schema.Slots[i].Name, ErrSlotUnset)
		}
	}
	return nil
}

// Values returns a copy of the slot values in slot order.
func (f *Fields) Values() []string {
	return append([]string(nil), f.values...)
}

// Tree is an entity's field tree. It is built fresh for every verification
// and never persisted.
type Tree struct {
	fields *Fields
	tree   *merkle.Tree
}

// BuildTree lays every slot out as a leaf of a fixed-height tree.
func BuildTree(f *Fields) (*Tree, error) {
	if err := f.Complete(); err != nil {
		return nil, err
	}
	t, err := merkle.New(f.schema.TreeHeight)
	if err != nil {
		return nil, err
	}
	for i, v := range f.values {
		if err := t.SetLeaf(uint64(i), Leaf(v)); err != nil {
			return nil, fmt.Errorf("build %s tree: %w", f.schema.Type, err)
		}
	}
	return &Tree{fields: f, tree: t}, nil
}

func (t *Tree) Root() merkle.Hash { return t.tree.Root() }

func (t *Tree) Fields() *Fields { return t.fields }

// Witness returns the authentication path for slot.
func (t *Tree) Witness(slot models.Slot) (merkle.Witness, error) {
	return t.tree.Witness(uint64(slot))
}

// Disclosure reveals one slot of a signed tree together with its inclusion
// path.
type Disclosure struct {
	Slot    models.Slot    `json:"slot"`
	Name    string         `json:"name"`
	Value   string         `json:"value"`
	Witness merkle.Witness `json:"witness"`
}

// Disclose reveals the named slots. Unknown slots fail the whole call.
func (t *Tree) Disclose(slots ...models.Slot) ([]Disclosure, error) {
	out := make([]Disclosure, 0, len(slots))
	for _, slot := range slots {
		spec, ok := t.fields.schema.Spec(slot)
		if !ok {
			return nil, fmt.Errorf("%s slot %d: %w", t.fields.schema.Type, slot, ErrUndeclaredSlot)
		}
		w, err := t.Witness(slot)
		if err != nil {
			return nil, err
		}
		out = append(out, Disclosure{Slot: slot, Name: spec.Name, Value: t.fields.Get(slot), Witness: w})
	}
	return out, nil
}

// VerifyDisclosure checks that d is a leaf of root at its declared slot.
func VerifyDisclosure(root merkle.Hash, d Disclosure) error {
	if d.Witness.Index != uint64(d.Slot) {
		return fmt.Errorf("slot %d: witness is for index %d: %w", d.Slot, d.Witness.Index, merkle.ErrInclusionMismatch)
	}
	if Truncate(d.Value) != d.Value {
		return fmt.Errorf("slot %d: value exceeds %d characters: %w", d.Slot, MaxValueLength, merkle.ErrInclusionMismatch)
	}
	return d.Witness.Check(root, Leaf(d.Value))
}
