// Package oracle binds a trusted issuer's signature to an entity tree root.
// Only roots are signed, never individual fields, so any subset of fields
// can later be disclosed under the same signature.
package oracle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"

	"zkregistry/internal/merkle"
)

// SeedSize is the length of an oracle key seed.
const SeedSize = 32

var (
	ErrSignatureMismatch = errors.New("oracle: signature does not verify against root")
	ErrInvalidSeed       = errors.New("oracle: invalid key seed")
	ErrInvalidPublicKey  = errors.New("oracle: invalid public key")
)

// Signature is a serialized EdDSA (BN254 twisted Edwards) signature.
type Signature []byte

func (s Signature) String() string { return "0x" + hex.EncodeToString(s) }

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	b, err := decodeHex(string(text))
	if err != nil {
		return fmt.Errorf("oracle: signature: %w", err)
	}
	*s = b
	return nil
}

// PublicKey is the oracle's verification key.
type PublicKey struct {
	key eddsa.PublicKey
}

func (p PublicKey) Bytes() []byte { return p.key.Bytes() }

func (p PublicKey) String() string { return "0x" + hex.EncodeToString(p.Bytes()) }

func (p PublicKey) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Equal compares two keys in constant time.
func (p PublicKey) Equal(other PublicKey) bool { return p.key.Equal(&other.key) }

// ParsePublicKey decodes a hex (optionally 0x-prefixed) compressed key.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := decodeHex(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	var p PublicKey
	if _, err := p.key.SetBytes(b); err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return p, nil
}

// Signer holds the oracle private key.
type Signer struct {
	priv *eddsa.PrivateKey
	pub  PublicKey
}

// NewSigner derives a key pair deterministically from a 32-byte seed.
func NewSigner(seed []byte) (*Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidSeed, SeedSize, len(seed))
	}
	priv, err := eddsa.GenerateKey(bytes.NewReader(seed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return &Signer{priv: priv, pub: PublicKey{key: priv.PublicKey}}, nil
}

// NewSignerFromHex parses a hex seed, as stored in ORACLE_SEED.
func NewSignerFromHex(seed string) (*Signer, error) {
	b, err := decodeHex(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	return NewSigner(b)
}

// GenerateSeed reads a fresh seed from r.
func GenerateSeed(r io.Reader) ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("generate oracle seed: %w", err)
	}
	return seed, nil
}

func (s *Signer) PublicKey() PublicKey { return s.pub }

// Bind signs root.
func (s *Signer) Bind(root merkle.Hash) (Signature, error) {
	sig, err := s.priv.Sign(root.Bytes(), mimc.NewMiMC())
	if err != nil {
		return nil, fmt.Errorf("oracle: sign root: %w", err)
	}
	return sig, nil
}

// Verify checks sig over root under the signer's own key.
func (s *Signer) Verify(sig Signature, root merkle.Hash) error {
	return Check(sig, root, s.pub)
}

// Verify reports whether sig is a valid signature of root under pub.
// Malformed signatures are simply invalid.
func Verify(sig Signature, root merkle.Hash, pub PublicKey) bool {
	ok, err := pub.key.Verify(sig, root.Bytes(), mimc.NewMiMC())
	return err == nil && ok
}

// Check is Verify returning ErrSignatureMismatch on failure.
func Check(sig Signature, root merkle.Hash, pub PublicKey) error {
	if !Verify(sig, root, pub) {
		return fmt.Errorf("%w: root %s", ErrSignatureMismatch, root)
	}
	return nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return hex.DecodeString(s)
}
