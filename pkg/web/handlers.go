package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/nudgekit/nudgekit/pkg/analytics"
	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/registry"
	"github.com/nudgekit/nudgekit/pkg/services"
)

type APIHandlers struct {
	trackService   *services.Track
	visitorService *services.Visitor
	aggregator     *analytics.Aggregator
	validator      *validator.Validate
	registry       *registry.Registry
}

func NewAPIHandlers(
	trackService *services.Track,
	visitorService *services.Visitor,
	aggregator *analytics.Aggregator,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		trackService:   trackService,
		visitorService: visitorService,
		aggregator:     aggregator,
		validator:      validator,
		registry:       registry,
	}
}

// Track ingests one tracker event. The response reports acceptance and the
// runs the event started; node-level failures downstream never change the
// status code.
func (h *APIHandlers) Track(c fiber.Ctx) error {
	var req TrackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	runs, err := h.trackService.ProcessEvent(c.Context(), req.toEvent())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TrackResponse{Accepted: true, Runs: runs})
}

// TrackBatch ingests a batch of tracker events, processed independently.
func (h *APIHandlers) TrackBatch(c fiber.Ctx) error {
	var req BatchTrackRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	events := make([]*models.BrowserEvent, 0, len(req.Events))
	for i := range req.Events {
		events = append(events, req.Events[i].toEvent())
	}

	results, err := h.trackService.ProcessBatch(c.Context(), events)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(BatchTrackResponse{Accepted: true, Results: results})
}

func (h *APIHandlers) GetTags(c fiber.Ctx) error {
	siteID, visitorID := c.Params("siteId"), c.Params("visitorId")

	tags, err := h.visitorService.Tags(c.Context(), siteID, visitorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TagsResponse{SiteID: siteID, VisitorID: visitorID, Tags: tags})
}

func (h *APIHandlers) HasTag(c fiber.Ctx) error {
	siteID, visitorID := c.Params("siteId"), c.Params("visitorId")

	has, err := h.visitorService.HasTag(c.Context(), siteID, visitorID, c.Query("tag"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(HasTagResponse{HasTag: has})
}

func (h *APIHandlers) AddTag(c fiber.Ctx) error {
	var req AddTagRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.visitorService.AddTag(c.Context(), c.Params("siteId"), c.Params("visitorId"), req.Tag)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RemoveTag(c fiber.Ctx) error {
	err := h.visitorService.RemoveTag(c.Context(), c.Params("siteId"), c.Params("visitorId"), c.Params("tag"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetFunnel returns the recomputed step funnel for a workflow.
func (h *APIHandlers) GetFunnel(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.aggregator.Funnel(c.Context(), workflowID, dateRange)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) GetSummary(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	summary, err := h.aggregator.WorkflowSummary(c.Context(), workflowID, dateRange)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) GetActivity(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	limit, offset, err := parsePagination(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	page, err := h.aggregator.Activity(c.Context(), workflowID, limit, offset)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(page)
}

func (h *APIHandlers) GetNodePerformance(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	dateRange, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	perf, err := h.aggregator.NodePerformance(c.Context(), workflowID, dateRange)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"nodes": perf})
}

func (h *APIHandlers) GetTypeBreakdown(c fiber.Ctx) error {
	workflowID := c.Params("id")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	kind := models.EventKind(c.Query("kind", string(models.EventKindTrigger)))

	dateRange, err := parseDateRange(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	counts, err := h.aggregator.TypeBreakdown(c.Context(), workflowID, kind, dateRange)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"kind": kind, "types": counts})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, ok := h.registry.HealthCheck()

	status := "healthy"
	httpStatus := http.StatusOK

	if !ok {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":   status,
		"registry": registryCheck,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func parseDateRange(c fiber.Ctx) (models.DateRange, error) {
	var dateRange models.DateRange

	if start := c.Query("start"); start != "" {
		t, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return dateRange, services.ErrInvalidDateRange
		}

		dateRange.Start = t
	}

	if end := c.Query("end"); end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return dateRange, services.ErrInvalidDateRange
		}

		dateRange.End = t
	}

	if !dateRange.Start.IsZero() && !dateRange.End.IsZero() && dateRange.End.Before(dateRange.Start) {
		return dateRange, services.ErrInvalidDateRange
	}

	return dateRange, nil
}

func parsePagination(c fiber.Ctx) (limit, offset int, err error) {
	limit = 50

	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			return 0, 0, services.ErrInvalidPagination
		}
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, services.ErrInvalidPagination
		}
	}

	return limit, offset, nil
}
