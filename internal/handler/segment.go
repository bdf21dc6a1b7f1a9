package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
	"github.com/bertybuttface/sponsorblock-mirror/internal/service"
)

type SegmentHandler struct {
	svc *service.SegmentService
}

func NewSegmentHandler(svc *service.SegmentService) *SegmentHandler {
	return &SegmentHandler{svc: svc}
}

// GetByHashPrefix handles GET /api/skipSegments/:hash
func (h *SegmentHandler) GetByHashPrefix(c fiber.Ctx) error {
	prefix, msg := middleware.ValidateHashPrefix(c.Params("hash"))
	if msg != "" {
		return middleware.BadRequest(c, msg)
	}
	cats, ok := parseCategories(c)
	if !ok {
		return middleware.BadRequest(c, middleware.MsgBadCategories)
	}

	res, err := h.svc.LookupByHashPrefix(c.Context(), prefix, cats)
	if err != nil {
		return lookupError(c, err)
	}
	if res.Relayed != nil {
		return relay(c, res.Relayed)
	}
	return c.JSON(res.Sponsors)
}

// GetByVideoID handles GET /api/skipSegments?videoID=X
func (h *SegmentHandler) GetByVideoID(c fiber.Ctx) error {
	args := c.RequestCtx().QueryArgs()
	videoID, msg := middleware.ValidateVideoID(string(args.Peek("videoID")), args.Has("videoID"))
	if msg != "" {
		return middleware.BadRequest(c, msg)
	}
	cats, ok := parseCategories(c)
	if !ok {
		return middleware.BadRequest(c, middleware.MsgBadCategories)
	}

	res, err := h.svc.LookupByVideoID(c.Context(), videoID, cats)
	if err != nil {
		return lookupError(c, err)
	}
	if res.Relayed != nil {
		return relay(c, res.Relayed)
	}
	return c.JSON(res.Segments)
}

func parseCategories(c fiber.Ctx) (service.Categories, bool) {
	names, param, msg := middleware.ParseCategories(fiber.Query[string](c, "categories"))
	if msg != "" {
		return service.Categories{}, false
	}
	return service.Categories{Names: names, Param: param}, true
}

func relay(c fiber.Ctx, body []byte) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// lookupError maps a resolver failure to a response. The origin's 404 is its
// normal "nothing here" answer and is relayed as is.
func lookupError(c fiber.Ctx, err error) error {
	var statusErr *service.OriginStatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.Status == fiber.StatusNotFound:
		return c.Status(fiber.StatusNotFound).Send(statusErr.Body)
	case errors.Is(err, service.ErrOrigin):
		middleware.Logger.Warn().Err(err).Str("request_id", middleware.RequestID(c)).Msg("origin fallback failed")
		return c.Status(fiber.StatusBadGateway).SendString("Upstream request failed")
	default:
		middleware.Logger.Error().Err(err).Str("request_id", middleware.RequestID(c)).Msg("segment lookup failed")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}
}
