package handler

import (
	"fmt"
	"strings"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/verification"
	dErrors "zkregistry/pkg/domain-errors"
	pkgstrings "zkregistry/pkg/platform/strings"
)

const maxIdentifierLength = 128

// VerifyRequest is the HTTP request body for POST /v1/verifications.
type VerifyRequest struct {
	EntityType  string   `json:"entity_type"`
	Identifiers []string `json:"identifiers"`

	parsedEntityType models.EntityType
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Identifiers) == 0 {
		return dErrors.New(dErrors.CodeValidation, "identifiers is required")
	}
	if len(r.Identifiers) > verification.MaxBatchSize {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d identifiers per batch", verification.MaxBatchSize))
	}

	t, err := parseEntityType(r.EntityType)
	if err != nil {
		return err
	}
	r.parsedEntityType = t

	for i, id := range r.Identifiers {
		id = strings.TrimSpace(id)
		if id == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("identifiers[%d] is empty", i))
		}
		if len(id) > maxIdentifierLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("identifiers[%d] must be at most %d characters", i, maxIdentifierLength))
		}
		r.Identifiers[i] = id
	}
	return nil
}

// ParsedEntityType returns the validated entity type.
func (r *VerifyRequest) ParsedEntityType() models.EntityType {
	return r.parsedEntityType
}

// DisclosureRequest is the HTTP request body for POST /v1/disclosures.
type DisclosureRequest struct {
	EntityType string   `json:"entity_type"`
	Identifier string   `json:"identifier"`
	Fields     []string `json:"fields"`

	parsedEntityType models.EntityType
}

// Validate validates and parses the request.
func (r *DisclosureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	t, err := parseEntityType(r.EntityType)
	if err != nil {
		return err
	}
	r.parsedEntityType = t

	r.Identifier = strings.TrimSpace(r.Identifier)
	if r.Identifier == "" {
		return dErrors.New(dErrors.CodeValidation, "identifier is required")
	}
	// slot names are lowercase; repeats disclose nothing new
	r.Fields = pkgstrings.DedupeAndTrimLower(r.Fields)
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields is required")
	}
	return nil
}

// ParsedEntityType returns the validated entity type.
func (r *DisclosureRequest) ParsedEntityType() models.EntityType {
	return r.parsedEntityType
}

// VerifyDisclosureRequest is the HTTP request body for
// POST /v1/disclosures/verify: a disclosure as returned by
// POST /v1/disclosures.
type VerifyDisclosureRequest struct {
	verification.Disclosure
}

// Validate checks the disclosure is structurally complete.
func (r *VerifyDisclosureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Root.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "root is required")
	}
	if len(r.Signature) == 0 {
		return dErrors.New(dErrors.CodeValidation, "signature is required")
	}
	if len(r.Fields) == 0 {
		return dErrors.New(dErrors.CodeValidation, "fields is required")
	}
	return nil
}

func parseEntityType(s string) (models.EntityType, error) {
	if strings.TrimSpace(s) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "entity_type is required")
	}
	t, err := models.ParseEntityType(s)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "entity_type must be one of gleif, corporate_registration, exim")
	}
	return t, nil
}
