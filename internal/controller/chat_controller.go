package controller

import (
	"context"
	"encoding/json"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"
	internalWS "echo-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Chat(ctx *fiber.Ctx) error
	PaginateFiles(ctx *fiber.Ctx) error
	SkipSelection(ctx *fiber.Ctx) error
	SessionState(ctx *fiber.Ctx) error
	NewChat(ctx *fiber.Ctx) error
	ListChats(ctx *fiber.Ctx) error
	Messages(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewChatController(service service.IChatService, hub *internalWS.Hub, log logger.ILogger) IChatController {
	return &chatController{service: service, hub: hub, logger: log}
}

func (c *chatController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Post("/chat", auth, c.Chat)
	r.Get("/ws/chat", auth, c.ServeWs)

	api := r.Group("/api", auth)
	api.Get("/paginate_files", c.PaginateFiles)
	api.Post("/skip_selection", c.SkipSelection)
	api.Get("/session_state", c.SessionState)
	api.Get("/new_chat", c.NewChat)
	api.Get("/chats", c.ListChats)
	api.Get("/messages/:chat_id", c.Messages)
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	res, err := c.service.Chat(ctx.UserContext(), caller(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) PaginateFiles(ctx *fiber.Ctx) error {
	page, err := c.service.PaginateFiles(ctx.UserContext(), caller(ctx), ctx.QueryInt("page", 1), ctx.Query("type"))
	if err != nil {
		return err
	}
	return ctx.JSON(page)
}

func (c *chatController) SkipSelection(ctx *fiber.Ctx) error {
	if err := c.service.SkipSelection(ctx.UserContext(), caller(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Selection skipped", nil))
}

func (c *chatController) SessionState(ctx *fiber.Ctx) error {
	res, err := c.service.SessionState(ctx.UserContext(), caller(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) NewChat(ctx *fiber.Ctx) error {
	res, err := c.service.NewChat(ctx.UserContext(), caller(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) ListChats(ctx *fiber.Ctx) error {
	res, err := c.service.ListChats(ctx.UserContext(), caller(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *chatController) Messages(ctx *fiber.Ctx) error {
	res, err := c.service.Messages(ctx.UserContext(), caller(ctx), ctx.Params("chat_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

// ServeWs upgrades to a websocket that carries chat turns in both directions
// and live notices from the hub.
func (c *chatController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	who := caller(ctx)

	handle := func(turnCtx context.Context, payload []byte) (interface{}, error) {
		var req dto.ChatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid chat frame")
		}
		if err := serverutils.ValidateStruct(&req); err != nil {
			return nil, err
		}
		return c.service.Chat(turnCtx, who, &req)
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("ChatController", "Starting WebSocket session", map[string]interface{}{"email": who.Email})
		internalWS.ServeWs(c.hub, conn, who.Email, handle)
		c.logger.Info("ChatController", "WebSocket session ended", map[string]interface{}{"email": who.Email})
	})(ctx)
}
