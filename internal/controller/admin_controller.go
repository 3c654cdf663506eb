package controller

import (
	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	hr     service.IHRDocumentService
	logger logger.ILogger
}

func NewAdminController(hr service.IHRDocumentService, log logger.ILogger) IAdminController {
	return &adminController{hr: hr, logger: log}
}

func (c *adminController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/api/admin", auth)
	h.Get("/logs", c.GetLogs)
}

// GetLogs pages through the application log, newest first. Admins only.
func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	_, email := serverutils.CurrentUser(ctx)
	if !c.hr.IsAdmin(email) {
		return fiber.NewError(fiber.StatusForbidden, "Admins only")
	}

	limit := ctx.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	page := ctx.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	entries, err := c.logger.GetLogs(ctx.Query("level"), limit, (page-1)*limit)
	if err != nil {
		return err
	}
	out := make([]dto.LogListResponse, len(entries))
	for i, e := range entries {
		out[i] = dto.LogListResponse{
			Id:        e.Id,
			Level:     e.Level,
			Module:    e.Module,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Details:   e.Details,
		}
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", out))
}
