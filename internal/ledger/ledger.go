// Package ledger submits registry root updates to an append-only ledger.
// The ledger keeps a single head root per registry; every submission must
// name the current head as its previous root and carry the next nonce.
package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"zkregistry/internal/merkle"
	"zkregistry/pkg/platform/sentinel"
)

type Status string

const (
	// StatusPending means the ledger accepted the update. Confirmation is
	// tracked outside this service.
	StatusPending Status = "pending"
)

var (
	// ErrStaleRoot is returned when PreviousRoot is not the current head.
	ErrStaleRoot = fmt.Errorf("stale previous root: %w", sentinel.ErrConflict)
	// ErrNonceUsed is returned when Nonce is not the next expected value.
	ErrNonceUsed = fmt.Errorf("nonce already used: %w", sentinel.ErrAlreadyUsed)
	// ErrLeaseHeld is returned when another submitter holds the lease.
	ErrLeaseHeld = errors.New("submitter lease held elsewhere")
)

// RootUpdate moves the ledger head from PreviousRoot to NewRoot.
type RootUpdate struct {
	PreviousRoot merkle.Hash
	NewRoot      merkle.Hash
	// Identity is the registry entry whose change produced NewRoot.
	Identity merkle.Hash
	Nonce    uint64
}

// Hash is the Keccak-256 transaction hash of the update.
func (u RootUpdate) Hash() string {
	h := sha3.NewLegacyKeccak256()
	h.Write(u.PreviousRoot.Bytes())
	h.Write(u.NewRoot.Bytes())
	h.Write(u.Identity.Bytes())
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], u.Nonce)
	h.Write(nonce[:])
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

type Receipt struct {
	ID          uuid.UUID `json:"id"`
	Hash        string    `json:"hash"`
	Status      Status    `json:"status"`
	Nonce       uint64    `json:"nonce"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Head is the latest accepted root. A fresh ledger has a zero root and
// nonce 0; the first submission carries nonce 1.
type Head struct {
	Root  merkle.Hash `json:"root"`
	Nonce uint64      `json:"nonce"`
}

// Next builds the update that moves this head to root.
func (h Head) Next(root, identity merkle.Hash) RootUpdate {
	return RootUpdate{
		PreviousRoot: h.Root,
		NewRoot:      root,
		Identity:     identity,
		Nonce:        h.Nonce + 1,
	}
}

// Ledger is the ledger submission capability.
type Ledger interface {
	Head(ctx context.Context) (Head, error)
	Submit(ctx context.Context, u RootUpdate) (Receipt, error)
}

// check validates u against head.
func check(head Head, u RootUpdate) error {
	if u.Nonce != head.Nonce+1 {
		return fmt.Errorf("%w: got %d, want %d", ErrNonceUsed, u.Nonce, head.Nonce+1)
	}
	if u.PreviousRoot != head.Root {
		return fmt.Errorf("%w: head is %s", ErrStaleRoot, head.Root)
	}
	return nil
}

func newReceipt(u RootUpdate, now time.Time) Receipt {
	return Receipt{
		ID:          uuid.New(),
		Hash:        u.Hash(),
		Status:      StatusPending,
		Nonce:       u.Nonce,
		SubmittedAt: now,
	}
}
