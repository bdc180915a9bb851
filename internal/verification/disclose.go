package verification

import (
	"context"
	"fmt"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/oracle"
	dErrors "zkregistry/pkg/domain-errors"
)

// Disclose fetches an entity, commits to its fields and reveals the
// requested ones with inclusion paths under the oracle-signed root. The
// registry is not touched.
func (s *Service) Disclose(ctx context.Context, req DisclosureRequest) (*Disclosure, error) {
	schema, err := models.SchemaFor(req.EntityType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "unsupported entity type")
	}
	if len(req.Fields) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one field is required")
	}
	slots := make([]models.Slot, 0, len(req.Fields))
	for _, name := range req.Fields {
		slot, ok := schema.SlotByName(name)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown %s field %q", req.EntityType, name))
		}
		slots = append(slots, slot)
	}

	ctx, span := s.tracer.Start(ctx, "verification.disclose")
	defer span.End()

	c, err := s.commit(ctx, req.EntityType, req.Identifier)
	if err != nil {
		return nil, fetchError(err)
	}
	disclosed, err := c.tree.Disclose(slots...)
	if err != nil {
		return nil, err
	}
	return &Disclosure{
		EntityType: req.EntityType,
		Identifier: req.Identifier,
		Root:       c.tree.Root(),
		Signature:  c.signature,
		PublicKey:  s.signer.PublicKey(),
		Fields:     disclosed,
	}, nil
}

func fetchError(err error) error {
	if categorize(err) != CategoryDataFetch {
		return err
	}
	switch providers.GetCategory(err) {
	case providers.ErrorNotFound:
		return dErrors.Wrap(err, dErrors.CodeNotFound, "entity not found at source")
	case providers.ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "entity source timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "entity data could not be fetched")
}

// VerifyDisclosure checks d against the oracle key pub: the root must
// carry a valid signature and every field must be included under it.
func VerifyDisclosure(d *Disclosure, pub oracle.PublicKey) error {
	if !d.PublicKey.Equal(pub) {
		return fmt.Errorf("disclosure signed by %s: %w", d.PublicKey, oracle.ErrSignatureMismatch)
	}
	if err := oracle.Check(d.Signature, d.Root, pub); err != nil {
		return err
	}
	for _, f := range d.Fields {
		if err := fields.VerifyDisclosure(d.Root, f); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	return nil
}

// PublicKey returns the oracle key results are signed with.
func (s *Service) PublicKey() oracle.PublicKey { return s.signer.PublicKey() }
