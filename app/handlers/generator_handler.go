package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/amirphl/orochi-idgen/app/dto"
	"github.com/amirphl/orochi-idgen/bootstrap"
	"github.com/amirphl/orochi-idgen/counter"
	"github.com/amirphl/orochi-idgen/expectation"
	"github.com/amirphl/orochi-idgen/generator"
	"github.com/amirphl/orochi-idgen/session"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// GeneratorRegistry is the part of the bootstrap registry the handlers use
type GeneratorRegistry interface {
	Entries() []*bootstrap.Entry
	Lookup(key string) (*bootstrap.Entry, bool)
	Session(tenant string) session.Session
	GenerateN(ctx context.Context, key string, sess session.Session, n int) ([]any, error)
	Structures(ctx context.Context) ([]bootstrap.StructureStatus, error)
}

// GeneratorHandlerInterface defines the generator endpoints
type GeneratorHandlerInterface interface {
	ListGenerators(c fiber.Ctx) error
	ListStructures(c fiber.Ctx) error
	NextValues(c fiber.Ctx) error
}

// GeneratorHandler serves generator diagnostics and allocation
type GeneratorHandler struct {
	registry  GeneratorRegistry
	validator *validator.Validate
	maxBatch  int
	timeout   time.Duration
	logger    *log.Logger
}

// NewGeneratorHandler creates a generator handler; maxBatch bounds one allocation request
func NewGeneratorHandler(registry GeneratorRegistry, maxBatch int, logger *log.Logger) *GeneratorHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GeneratorHandler{
		registry:  registry,
		validator: validator.New(),
		maxBatch:  maxBatch,
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

func toGeneratorResponse(e *bootstrap.Entry) dto.GeneratorResponse {
	_, before := e.Generator.(generator.BeforeExecutionGenerator)
	resp := dto.GeneratorResponse{
		Key:            e.Key,
		Entity:         e.Member.Entity,
		Property:       e.Member.Property,
		Table:          e.Member.Table,
		Column:         e.Member.Column,
		Strategy:       e.Strategy,
		Events:         e.Events().String(),
		StoreGenerated: !before,
	}
	if e.Family != 0 {
		resp.Family = e.Family.String()
	}
	return resp
}

// ListGenerators lists every mapped generator
func (h *GeneratorHandler) ListGenerators(c fiber.Ctx) error {
	entries := h.registry.Entries()
	out := make([]dto.GeneratorResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toGeneratorResponse(e))
	}
	return SuccessResponse(c, fiber.StatusOK, "Generators retrieved", out)
}

// ListStructures reports the counters behind the generators with their stored values
func (h *GeneratorHandler) ListStructures(c fiber.Ctx) error {
	ctx, cancel := requestContext(h.timeout)
	defer cancel()

	statuses, err := h.registry.Structures(ctx)
	if err != nil {
		h.logger.Printf("handlers: failed to read structures: %v", err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read counters", "STRUCTURES_UNAVAILABLE", nil)
	}
	return SuccessResponse(c, fiber.StatusOK, "Structures retrieved", statuses)
}

// NextValues allocates values from one generator
func (h *GeneratorHandler) NextValues(c fiber.Ctx) error {
	key := c.Params("key")
	if _, ok := h.registry.Lookup(key); !ok {
		return ErrorResponse(c, fiber.StatusNotFound, "Generator not found", "GENERATOR_NOT_FOUND", fiber.Map{"key": key})
	}

	var req dto.NextValuesRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	if err := h.validator.Struct(&req); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationDetails(err))
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count > h.maxBatch {
		return ErrorResponse(c, fiber.StatusBadRequest, "Too many values requested", "BATCH_TOO_LARGE", fiber.Map{"max": h.maxBatch})
	}

	ctx, cancel := requestContext(h.timeout)
	defer cancel()

	values, err := h.registry.GenerateN(ctx, key, h.registry.Session(req.Tenant), req.Count)
	if err != nil {
		return h.generationError(c, key, err)
	}
	return SuccessResponse(c, fiber.StatusOK, "Values generated", dto.NextValuesResponse{
		Key:    key,
		Tenant: req.Tenant,
		Values: values,
	})
}

func (h *GeneratorHandler) generationError(c fiber.Ctx, key string, err error) error {
	switch {
	case errors.Is(err, bootstrap.ErrGeneratedByStore):
		return ErrorResponse(c, fiber.StatusConflict, "Values of this generator are produced by the store", "STORE_GENERATED", fiber.Map{"key": key})
	case generator.IsValueNotAssigned(err):
		return ErrorResponse(c, fiber.StatusConflict, "Values of this generator are assigned by the application", "ASSIGNED_GENERATOR", fiber.Map{"key": key})
	case counter.IsMissingSeedRow(err):
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Counter is not seeded", "MISSING_SEED_ROW", nil)
	case counter.IsLockAcquisition(err):
		return ErrorResponse(c, fiber.StatusServiceUnavailable, "Counter is busy, retry later", "LOCK_NOT_ACQUIRED", nil)
	case expectation.IsStaleState(err), expectation.IsTooManyRows(err):
		return ErrorResponse(c, fiber.StatusInternalServerError, "Counter update was not verified", "EXPECTATION_FAILED", nil)
	default:
		h.logger.Printf("handlers: generation failed for %s: %v", key, err)
		return ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate values", "GENERATION_FAILED", nil)
	}
}
