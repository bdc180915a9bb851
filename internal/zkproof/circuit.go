// Package zkproof proves that the projected ComplianceData values are
// leaves of the signed entity tree.
package zkproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"zkregistry/internal/compliance/models"
)

// TreeHeight is the entity tree height the circuit is compiled for.
const TreeHeight = 8

// Circuit asserts that each public leaf, placed at its public index, hashes
// up to Root along its secret path.
type Circuit struct {
	Root    frontend.Variable                              `gnark:",public"`
	Leaves  [models.NumRoles]frontend.Variable             `gnark:",public"`
	Indices [models.NumRoles]frontend.Variable             `gnark:",public"`
	Paths   [models.NumRoles][TreeHeight]frontend.Variable `gnark:",secret"`
}

func (c *Circuit) Define(api frontend.API) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	for k := range c.Leaves {
		bits := api.ToBinary(c.Indices[k], TreeHeight)
		cur := c.Leaves[k]
		for lvl := 0; lvl < TreeHeight; lvl++ {
			sib := c.Paths[k][lvl]
			left := api.Select(bits[lvl], sib, cur)
			right := api.Select(bits[lvl], cur, sib)
			h.Reset()
			h.Write(left, right)
			cur = h.Sum()
		}
		api.AssertIsEqual(cur, c.Root)
	}
	return nil
}
