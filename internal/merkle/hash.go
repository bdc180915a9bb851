// Package merkle implements the fixed-height binary Merkle tree shared by the
// per-entity field trees and the registry tree. Nodes are MiMC (BN254) hashes
// so roots and witnesses can be checked inside a gnark circuit.
package merkle

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Size is the byte length of a hash: one canonical BN254 scalar.
const Size = fr.Bytes

// Hash is a canonical big-endian BN254 scalar field element.
type Hash [Size]byte

// Zero is the value of an unset leaf.
var Zero Hash

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Zero
}

func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// Element returns h as a field element.
func (h Hash) Element() fr.Element {
	var e fr.Element
	e.SetBytes(h[:])
	return e
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 0x-prefixed or bare hex string and rejects values
// outside the scalar field.
func ParseHash(s string) (Hash, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Hash{}, fmt.Errorf("merkle: decode hash: %w", err)
	}
	if len(raw) != Size {
		return Hash{}, fmt.Errorf("merkle: hash must be %d bytes, got %d", Size, len(raw))
	}
	var e fr.Element
	if err := e.SetBytesCanonical(raw); err != nil {
		return Hash{}, fmt.Errorf("merkle: hash not in field: %w", err)
	}
	return FromElement(e), nil
}

// FromElement encodes a field element as a Hash.
func FromElement(e fr.Element) Hash {
	return Hash(e.Bytes())
}

// HashElements is the MiMC sponge over the given elements.
func HashElements(elems ...fr.Element) Hash {
	h := mimc.NewMiMC()
	for i := range elems {
		b := elems[i].Bytes()
		// canonical by construction, Write cannot fail
		_, _ = h.Write(b[:])
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// HashPair hashes two child nodes into their parent.
func HashPair(left, right Hash) Hash {
	return HashElements(left.Element(), right.Element())
}
