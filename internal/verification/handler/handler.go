package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"zkregistry/internal/merkle"
	"zkregistry/internal/oracle"
	"zkregistry/internal/registry"
	"zkregistry/internal/verification"
	dErrors "zkregistry/pkg/domain-errors"
	"zkregistry/pkg/platform/httputil"
	"zkregistry/pkg/platform/sentinel"
	"zkregistry/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service defines the verification operations exposed over HTTP.
type Service interface {
	VerifyBatch(ctx context.Context, req verification.BatchRequest) (*verification.BatchResult, error)
	Disclose(ctx context.Context, req verification.DisclosureRequest) (*verification.Disclosure, error)
	PublicKey() oracle.PublicKey
}

// Registry is the read side of the registry aggregator.
type Registry interface {
	Snapshot() registry.Snapshot
	Records() []registry.EntityRecord
	Record(identity merkle.Hash) (registry.EntityRecord, error)
	Proof(identity merkle.Hash) (registry.EntityRecord, merkle.Witness, merkle.Hash, error)
}

// Handler wires verification and registry endpoints to their services.
type Handler struct {
	service  Service
	registry Registry
	logger   *slog.Logger
}

// New constructs a verification handler with its dependencies.
func New(service Service, reg Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:  service,
		registry: reg,
		logger:   logger,
	}
}

// RegisterPublic mounts read-only endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/v1/registry", h.HandleSnapshot)
	r.Get("/v1/registry/entities", h.HandleListEntities)
	r.Get("/v1/registry/entities/{identity}", h.HandleGetEntity)
	r.Get("/v1/registry/entities/{identity}/witness", h.HandleWitness)
	r.Get("/v1/oracle/public-key", h.HandlePublicKey)
	r.Post("/v1/disclosures/verify", h.HandleVerifyDisclosure)
}

// RegisterProtected mounts endpoints that fetch source data or change the
// registry.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/v1/verifications", h.HandleVerify)
	r.Post("/v1/disclosures", h.HandleDisclose)
}

// HandleVerify handles POST /v1/verifications requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyBatch(ctx, verification.BatchRequest{
		EntityType:  req.ParsedEntityType(),
		Identifiers: req.Identifiers,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "verification batch failed",
			"request_id", requestID,
			"subject", requestcontext.Subject(ctx),
			"entity_type", req.ParsedEntityType(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification batch completed",
		"request_id", requestID,
		"subject", requestcontext.Subject(ctx),
		"batch_id", result.BatchID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDisclose handles POST /v1/disclosures requests.
func (h *Handler) HandleDisclose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DisclosureRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	d, err := h.service.Disclose(ctx, verification.DisclosureRequest{
		EntityType: req.ParsedEntityType(),
		Identifier: req.Identifier,
		Fields:     req.Fields,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "disclosure failed",
			"request_id", requestID,
			"entity_type", req.ParsedEntityType(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// HandleVerifyDisclosure handles POST /v1/disclosures/verify requests.
// An invalid disclosure is a successful check with valid=false.
func (h *Handler) HandleVerifyDisclosure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyDisclosureRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp := VerifyDisclosureResponse{Valid: true}
	if err := verification.VerifyDisclosure(&req.Disclosure, h.service.PublicKey()); err != nil {
		resp = VerifyDisclosureResponse{Valid: false, Reason: err.Error()}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleSnapshot handles GET /v1/registry requests.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.registry.Snapshot())
}

// HandleListEntities handles GET /v1/registry/entities requests.
func (h *Handler) HandleListEntities(w http.ResponseWriter, r *http.Request) {
	records := h.registry.Records()
	httputil.WriteJSON(w, http.StatusOK, EntitiesResponse{Count: len(records), Entities: records})
}

// HandleGetEntity handles GET /v1/registry/entities/{identity} requests.
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identityParam(w, r)
	if !ok {
		return
	}
	rec, err := h.registry.Record(identity)
	if err != nil {
		httputil.WriteError(w, registryError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleWitness handles GET /v1/registry/entities/{identity}/witness
// requests.
func (h *Handler) HandleWitness(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identityParam(w, r)
	if !ok {
		return
	}
	rec, wit, root, err := h.registry.Proof(identity)
	if err != nil {
		httputil.WriteError(w, registryError(err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, WitnessResponse{
		Identity: identity,
		Root:     root,
		Record:   rec,
		Witness:  wit,
		Valid:    registry.VerifyRecord(root, wit, rec),
	})
}

// HandlePublicKey handles GET /v1/oracle/public-key requests.
func (h *Handler) HandlePublicKey(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, PublicKeyResponse{PublicKey: h.service.PublicKey()})
}

func (h *Handler) identityParam(w http.ResponseWriter, r *http.Request) (merkle.Hash, bool) {
	identity, err := merkle.ParseHash(chi.URLParam(r, "identity"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "invalid identity",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "identity must be a 32-byte hex field element"))
		return merkle.Hash{}, false
	}
	return identity, true
}

func registryError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "entity not registered")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
}
