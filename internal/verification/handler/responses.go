package handler

import (
	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
)

// EntitiesResponse is the HTTP response for GET /v1/registry/entities.
type EntitiesResponse struct {
	Count    int                     `json:"count"`
	Entities []registry.EntityRecord `json:"entities"`
}

// WitnessResponse carries a registry record with its inclusion path under
// the current root. Valid is the server-side check of that path.
type WitnessResponse struct {
	Identity merkle.Hash           `json:"identity"`
	Root     merkle.Hash           `json:"root"`
	Record   registry.EntityRecord `json:"record"`
	Witness  merkle.Witness        `json:"witness"`
	Valid    bool                  `json:"valid"`
}

// PublicKeyResponse is the HTTP response for GET /v1/oracle/public-key.
type PublicKeyResponse struct {
	PublicKey oracle.PublicKey `json:"public_key"`
}

// VerifyDisclosureResponse is the HTTP response for
// POST /v1/disclosures/verify.
type VerifyDisclosureResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}
