// Package web provides the HTTP handlers for plan management, template
// instantiation, run results, and run triggering.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/webpilot/webpilot/pkg/models"
	"github.com/webpilot/webpilot/pkg/persistence"
	"github.com/webpilot/webpilot/pkg/plan"
)

// Runner executes a plan against a page. The API server may run without one,
// in which case run triggering returns 503.
type Runner interface {
	Run(ctx context.Context, p *models.Plan, pageURL string) *models.RunResult
}

type APIHandlers struct {
	persistence persistence.Persistence
	builder     *plan.Builder
	validator   *validator.Validate
	runner      Runner
	logger      *slog.Logger
}

func NewAPIHandlers(p persistence.Persistence, runner Runner, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		builder:     plan.NewBuilder(),
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		runner:      runner,
		logger:      logger,
	}
}

func (h *APIHandlers) GetPlans(c fiber.Ctx) error {
	plans, err := h.persistence.Plans().All(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"plans":       plans,
		"total_count": len(plans),
	})
}

func (h *APIHandlers) GetPlan(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Plan ID is required")
	}

	p, err := h.persistence.Plans().ByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(p)
}

func (h *APIHandlers) CreatePlan(c fiber.Ctx) error {
	var req CreatePlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	p, err := h.builder.FromSteps(req.ID, req.Name, req.Description, req.Steps)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if req.Priority != "" {
		p.Priority = req.Priority
	}

	p.Tags = req.Tags

	if err := h.persistence.Plans().Save(c.Context(), p); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *APIHandlers) UpdatePlan(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Plan ID is required")
	}

	var req UpdatePlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.Plans().ByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Priority != nil {
		existing.Priority = *req.Priority
	}

	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	if err := h.persistence.Plans().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeletePlan(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Plan ID is required")
	}

	if err := h.persistence.Plans().Delete(c.Context(), id); err != nil {
		return handleStorageError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// RunPlan loads a plan, executes it through the configured runner, and stores
// the result. The loaded copy is reset first so stale statuses in the stored
// document never mask steps from the scheduler.
func (h *APIHandlers) RunPlan(c fiber.Ctx) error {
	if h.runner == nil {
		return serviceUnavailable(c, "no runner configured on this server")
	}

	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Plan ID is required")
	}

	var req RunPlanRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	p, err := h.persistence.Plans().ByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	p.Reset()

	result := h.runner.Run(c.Context(), p, req.URL)

	if err := h.persistence.Results().Save(c.Context(), result); err != nil {
		h.logger.Warn("failed to store run result", "run_id", result.ID, "error", err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": plan.Templates()})
}

// InstantiateTemplate materializes a catalog template into a stored plan.
func (h *APIHandlers) InstantiateTemplate(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Template name is required")
	}

	var req InstantiateTemplateRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if req.PlanID == "" {
		req.PlanID = name + "-" + uuid.New().String()[:8]
	}

	p, err := h.builder.FromTemplate(name, req.PlanID)
	if err != nil {
		if plan.IsTemplateNotFound(err) {
			return notFound(c, "Template not found")
		}

		return badRequest(c, err.Error())
	}

	if err := h.persistence.Plans().Save(c.Context(), p); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *APIHandlers) GetResults(c fiber.Ctx) error {
	results, err := h.persistence.Results().All(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"results":     results,
		"total_count": len(results),
	})
}

func (h *APIHandlers) GetResult(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Result ID is required")
	}

	result, err := h.persistence.Results().ByID(c.Context(), id)
	if err != nil {
		return handleStorageError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetPlanResults(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Plan ID is required")
	}

	if _, err := h.persistence.Plans().ByID(c.Context(), id); err != nil {
		return handleStorageError(c, err)
	}

	results, err := h.persistence.Results().ByPlan(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"plan_id":     id,
		"results":     results,
		"total_count": len(results),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "webpilot API is healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "webpilot API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
