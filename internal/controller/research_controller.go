package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/serverutils"
	"claudebuddy-be/internal/service"
	internalWS "claudebuddy-be/internal/websocket"
	"claudebuddy-be/pkg/research"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const sseKeepAlive = 15 * time.Second

type IResearchController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Start(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Reports(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Result(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type researchController struct {
	service service.IResearchService
	hub     *internalWS.Hub
}

// NewResearchController takes an optional hub; without one the websocket
// route answers 426.
func NewResearchController(service service.IResearchService, hub *internalWS.Hub) IResearchController {
	return &researchController{service: service, hub: hub}
}

func (c *researchController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/research", auth)
	h.Post("/start", c.Start)
	h.Get("/tasks", c.List)
	h.Get("/reports", c.Reports)
	h.Get("/ws", c.ServeWs)
	h.Get("/:id/status", c.Status)
	h.Get("/:id/result", c.Result)
	h.Get("/:id/stream", c.Stream)
	h.Delete("/:id", c.Cancel)
}

func (c *researchController) Start(ctx *fiber.Ctx) error {
	var req dto.StartResearchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Research task started", res))
}

func (c *researchController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get research tasks", res))
}

func (c *researchController) Reports(ctx *fiber.Ctx) error {
	var req dto.ListReportsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query parameters")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Reports(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get research reports", res))
}

func (c *researchController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.Status(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get research status", res))
}

func (c *researchController) Result(ctx *fiber.Ctx) error {
	res, err := c.service.Result(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get research result", res))
}

func (c *researchController) Cancel(ctx *fiber.Ctx) error {
	res, err := c.service.Cancel(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Research task cancellation requested", res))
}

// Stream serves the task's events as server-sent events. Reconnecting clients
// resume through Last-Event-ID; ?from= sets the cursor explicitly.
func (c *researchController) Stream(ctx *fiber.Ctx) error {
	from, err := streamCursor(ctx)
	if err != nil {
		return err
	}

	// The body writer runs after this handler returns, so the stream gets its
	// own context instead of the request's.
	streamCtx, cancel := context.WithCancel(context.Background())
	events, err := c.service.Stream(streamCtx, ctx.Params("id"), from)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		keepalive := time.NewTicker(sseKeepAlive)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				if _, err := w.WriteString(":keepalive\n\n"); err != nil {
					return
				}
			case evt, ok := <-events:
				if !ok {
					return
				}
				frame, err := formatSSE(evt)
				if err != nil {
					continue
				}
				if _, err := w.Write(frame); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
	return nil
}

func streamCursor(ctx *fiber.Ctx) (int, error) {
	if raw := ctx.Query("from"); raw != "" {
		from, err := strconv.Atoi(raw)
		if err != nil || from < 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "from must be a non-negative integer")
		}
		return from, nil
	}
	if raw := ctx.Get("Last-Event-ID"); raw != "" {
		last, err := strconv.Atoi(raw)
		if err != nil || last < 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "invalid Last-Event-ID")
		}
		return last + 1, nil
	}
	return 0, nil
}

// formatSSE renders one event as "id: <index>\ndata: <json>\n\n".
func formatSSE(evt research.Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("id: %d\ndata: %s\n\n", evt.Index, data)), nil
}

// ServeWs upgrades to a websocket that receives lifecycle notifications for
// ?task_id= or for every task when it is absent.
func (c *researchController) ServeWs(ctx *fiber.Ctx) error {
	if c.hub == nil || !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	taskID := ctx.Query("task_id")
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(c.hub, conn, taskID)
	})(ctx)
}
