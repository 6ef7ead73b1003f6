package controller

import (
	"errors"

	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/serverutils"
	"claudebuddy-be/internal/service"
	"claudebuddy-be/pkg/usage"

	"github.com/gofiber/fiber/v2"
)

type IInsightsController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	History(ctx *fiber.Ctx) error
	HistorySession(ctx *fiber.Ctx) error
	Projects(ctx *fiber.Ctx) error
	Session(ctx *fiber.Ctx) error
	SessionCode(ctx *fiber.Ctx) error
	Daily(ctx *fiber.Ctx) error
	Errors(ctx *fiber.Ctx) error
	Tasks(ctx *fiber.Ctx) error
	Productivity(ctx *fiber.Ctx) error
}

type insightsController struct {
	service service.IInsightsService
}

func NewInsightsController(service service.IInsightsService) IInsightsController {
	return &insightsController{service: service}
}

func (c *insightsController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/history", auth, c.History)
	r.Get("/history/session/:id", auth, c.HistorySession)

	r.Get("/projects", auth, c.Projects)
	r.Get("/sessions/:project/:session", auth, c.Session)
	r.Get("/sessions/:project/:session/code", auth, c.SessionCode)

	r.Get("/insights/daily", auth, c.Daily)
	r.Get("/insights/errors", auth, c.Errors)
	r.Get("/insights/tasks", auth, c.Tasks)
	r.Get("/productivity", auth, c.Productivity)
}

func (c *insightsController) History(ctx *fiber.Ctx) error {
	res, err := c.service.History(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *insightsController) HistorySession(ctx *fiber.Ctx) error {
	res, err := c.service.HistorySession(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return usageError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get conversation", res))
}

func (c *insightsController) Projects(ctx *fiber.Ctx) error {
	res, err := c.service.Projects(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get projects", res))
}

func (c *insightsController) Session(ctx *fiber.Ctx) error {
	res, err := c.service.Session(ctx.Context(), ctx.Params("project"), ctx.Params("session"))
	if err != nil {
		return usageError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *insightsController) SessionCode(ctx *fiber.Ctx) error {
	res, err := c.service.SessionCode(ctx.Context(), ctx.Params("project"), ctx.Params("session"))
	if err != nil {
		return usageError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session code", res))
}

func (c *insightsController) Daily(ctx *fiber.Ctx) error {
	var req dto.DailyInsightsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Daily(ctx.Context(), &req)
	if err != nil {
		return usageError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get daily insights", res))
}

func (c *insightsController) Errors(ctx *fiber.Ctx) error {
	var req dto.InsightsWindowRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Errors(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get error patterns", res))
}

func (c *insightsController) Tasks(ctx *fiber.Ctx) error {
	var req dto.InsightsWindowRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Tasks(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get task insights", res))
}

func (c *insightsController) Productivity(ctx *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Productivity(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get productivity", res))
}

func usageError(err error) error {
	switch {
	case errors.Is(err, usage.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	case errors.Is(err, usage.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}
