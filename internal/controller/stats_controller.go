package controller

import (
	"errors"

	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/internal/pkg/serverutils"
	"claudebuddy-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultLogLimit = 100

type IStatsController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Health(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
	LogDetail(ctx *fiber.Ctx) error
}

type statsController struct {
	service service.IStatsService
	logs    logger.ILogger
}

func NewStatsController(service service.IStatsService, logs logger.ILogger) IStatsController {
	return &statsController{service: service, logs: logs}
}

func (c *statsController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/health", c.Health)
	r.Get("/stats", auth, c.Stats)
	r.Get("/logs", auth, c.Logs)
	r.Get("/logs/:id", auth, c.LogDetail)
}

// Health is unauthenticated and unwrapped so probes can read it directly.
func (c *statsController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Health(ctx.Context()))
}

func (c *statsController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get stats", res))
}

func (c *statsController) Logs(ctx *fiber.Ctx) error {
	var req dto.LogListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Limit == 0 {
		req.Limit = defaultLogLimit
	}

	entries, err := c.logs.GetLogs(req.Level, req.Limit, req.Offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", entries))
}

func (c *statsController) LogDetail(ctx *fiber.Ctx) error {
	entry, err := c.logs.GetLogById(ctx.Params("id"))
	if errors.Is(err, logger.ErrLogNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get log", entry))
}
