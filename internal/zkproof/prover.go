package zkproof

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/merkle"
)

const (
	SystemGroth16 = "groth16"
	SystemNative  = "native"
)

var (
	ErrProofInvalid     = errors.New("zkproof: proof does not verify")
	ErrStatementInvalid = errors.New("zkproof: statement does not match compliance data")
	ErrUnsupportedTree  = errors.New("zkproof: unsupported tree height")
)

// Statement is the public input of a proof.
type Statement struct {
	Root    merkle.Hash                  `json:"root"`
	Leaves  [models.NumRoles]merkle.Hash `json:"leaves"`
	Indices [models.NumRoles]models.Slot `json:"indices"`
}

// StatementFor derives the statement a proof about data must carry.
func StatementFor(data models.ComplianceData) (Statement, error) {
	schema, err := models.SchemaFor(data.EntityType)
	if err != nil {
		return Statement{}, err
	}
	st := Statement{Root: data.MerkleRoot}
	for _, r := range models.Roles() {
		st.Leaves[r] = fields.Leaf(data.Value(r))
		st.Indices[r] = schema.Projection[r]
	}
	return st, nil
}

// Proof is an opaque proof together with the statement it proves.
type Proof struct {
	System    string    `json:"system"`
	Statement Statement `json:"statement"`
	Data      []byte    `json:"data"`
}

// Prover is the proof capability used by verification.
type Prover interface {
	Prove(ctx context.Context, tree *fields.Tree) (*Proof, error)
	Verify(ctx context.Context, data models.ComplianceData, proof *Proof) error
}

func witnessPaths(tree *fields.Tree) (Statement, [models.NumRoles]merkle.Witness, error) {
	var paths [models.NumRoles]merkle.Witness
	schema := tree.Fields().Schema()
	if schema.TreeHeight != TreeHeight {
		return Statement{}, paths, fmt.Errorf("%w: %d", ErrUnsupportedTree, schema.TreeHeight)
	}
	st := Statement{Root: tree.Root()}
	for _, r := range models.Roles() {
		slot := schema.Projection[r]
		w, err := tree.Witness(slot)
		if err != nil {
			return Statement{}, paths, fmt.Errorf("witness for %s: %w", r, err)
		}
		st.Leaves[r] = fields.Leaf(tree.Fields().Get(slot))
		st.Indices[r] = slot
		paths[r] = w
	}
	return st, paths, nil
}

func checkStatement(data models.ComplianceData, proof *Proof) error {
	want, err := StatementFor(data)
	if err != nil {
		return err
	}
	if proof == nil || proof.Statement != want {
		return ErrStatementInvalid
	}
	return nil
}

// NativeProver produces witness bundles checked outside any circuit. It is
// used when SNARK proving is disabled.
type NativeProver struct{}

func (NativeProver) Prove(ctx context.Context, tree *fields.Tree) (*Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, paths, err := witnessPaths(tree)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return nil, err
	}
	return &Proof{System: SystemNative, Statement: st, Data: data}, nil
}

func (NativeProver) Verify(ctx context.Context, data models.ComplianceData, proof *Proof) error {
	if err := checkStatement(data, proof); err != nil {
		return err
	}
	if proof.System != SystemNative {
		return fmt.Errorf("%w: system %q", ErrProofInvalid, proof.System)
	}
	var paths [models.NumRoles]merkle.Witness
	if err := json.Unmarshal(proof.Data, &paths); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	st := proof.Statement
	for k := range paths {
		if paths[k].Index != uint64(st.Indices[k]) {
			return fmt.Errorf("%w: path %d is for index %d", ErrProofInvalid, k, paths[k].Index)
		}
		if err := paths[k].Check(st.Root, st.Leaves[k]); err != nil {
			return fmt.Errorf("%w: %v", ErrProofInvalid, err)
		}
	}
	return nil
}

// Groth16Prover proves inclusion with a groth16 SNARK over BN254. The
// circuit is compiled and set up once, on first use.
type Groth16Prover struct {
	logger *slog.Logger

	once     sync.Once
	setupErr error
	ccs      constraint.ConstraintSystem
	pk       groth16.ProvingKey
	vk       groth16.VerifyingKey
}

type Option func(*Groth16Prover)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Groth16Prover) {
		p.logger = logger
	}
}

func NewGroth16Prover(opts ...Option) *Groth16Prover {
	p := &Groth16Prover{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Groth16Prover) setup() error {
	p.once.Do(func() {
		start := time.Now()
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
		if err != nil {
			p.setupErr = fmt.Errorf("compile inclusion circuit: %w", err)
			return
		}
		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			p.setupErr = fmt.Errorf("groth16 setup: %w", err)
			return
		}
		p.ccs, p.pk, p.vk = ccs, pk, vk
		if p.logger != nil {
			p.logger.Info("inclusion circuit ready",
				"constraints", ccs.GetNbConstraints(),
				"duration", time.Since(start),
			)
		}
	})
	return p.setupErr
}

func assignment(st Statement, paths *[models.NumRoles]merkle.Witness) *Circuit {
	c := &Circuit{Root: bigOf(st.Root)}
	for k := range st.Leaves {
		c.Leaves[k] = bigOf(st.Leaves[k])
		c.Indices[k] = uint64(st.Indices[k])
		for lvl := 0; lvl < TreeHeight; lvl++ {
			if paths == nil {
				c.Paths[k][lvl] = 0
				continue
			}
			c.Paths[k][lvl] = bigOf(paths[k].Siblings[lvl])
		}
	}
	return c
}

func bigOf(h merkle.Hash) *big.Int {
	return new(big.Int).SetBytes(h.Bytes())
}

func (p *Groth16Prover) Prove(ctx context.Context, tree *fields.Tree) (*Proof, error) {
	if err := p.setup(); err != nil {
		return nil, err
	}
	st, paths, err := witnessPaths(tree)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, err := frontend.NewWitness(assignment(st, &paths), ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, w)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode proof: %w", err)
	}
	return &Proof{System: SystemGroth16, Statement: st, Data: buf.Bytes()}, nil
}

func (p *Groth16Prover) Verify(ctx context.Context, data models.ComplianceData, proof *Proof) error {
	if err := checkStatement(data, proof); err != nil {
		return err
	}
	if proof.System != SystemGroth16 {
		return fmt.Errorf("%w: system %q", ErrProofInvalid, proof.System)
	}
	if err := p.setup(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	gp := groth16.NewProof(ecc.BN254)
	if _, err := gp.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProofInvalid, err)
	}
	pub, err := frontend.NewWitness(assignment(proof.Statement, nil), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("build public witness: %w", err)
	}
	if err := groth16.Verify(gp, p.vk, pub); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}
