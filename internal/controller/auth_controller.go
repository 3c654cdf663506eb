package controller

import (
	"errors"
	"net/url"
	"time"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/logger"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const stateCookie = "echo_oauth_state"

type IAuthController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Login(ctx *fiber.Ctx) error
	Callback(ctx *fiber.Ctx) error
	CheckLogin(ctx *fiber.Ctx) error
	AdminEmails(ctx *fiber.Ctx) error
	Logout(ctx *fiber.Ctx) error
}

type authController struct {
	auth      service.IAuthService
	chat      service.IChatService
	hr        service.IHRDocumentService
	clientURL string
	logger    logger.ILogger
}

func NewAuthController(auth service.IAuthService, chat service.IChatService, hr service.IHRDocumentService, clientURL string, log logger.ILogger) IAuthController {
	return &authController{auth: auth, chat: chat, hr: hr, clientURL: clientURL, logger: log}
}

func (c *authController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Get("/login", c.Login)
	r.Get("/getAToken", c.Callback)
	r.Get("/check_login", auth, c.CheckLogin)
	r.Get("/admin_emails", auth, c.AdminEmails)
	r.Post("/logout", auth, c.Logout)
}

func (c *authController) Login(ctx *fiber.Ctx) error {
	state := uuid.NewString()
	ctx.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return ctx.Redirect(c.auth.LoginURL(state))
}

func (c *authController) Callback(ctx *fiber.Ctx) error {
	if msg := ctx.Query("error_description", ctx.Query("error")); msg != "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, msg))
	}
	state := ctx.Query("state")
	if state == "" || state != ctx.Cookies(stateCookie) {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid login state"))
	}
	code := ctx.Query("code")
	if code == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "Missing code"))
	}
	ctx.ClearCookie(stateCookie)

	res, err := c.auth.HandleCallback(ctx.UserContext(), code)
	if errors.Is(err, service.ErrDomainNotAllowed) {
		return ctx.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Access denied: unauthorized email domain"))
	}
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}

	q := url.Values{}
	q.Set("token", res.AccessToken)
	q.Set("email", res.UserEmail)
	return ctx.Redirect(c.clientURL + "/auth/callback?" + q.Encode())
}

func (c *authController) CheckLogin(ctx *fiber.Ctx) error {
	res, err := c.chat.CheckLogin(ctx.UserContext(), caller(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Logged in", res))
}

func (c *authController) AdminEmails(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success", dto.AdminEmailsResponse{AdminEmails: c.hr.AdminEmails()}))
}

func (c *authController) Logout(ctx *fiber.Ctx) error {
	if err := c.auth.Logout(ctx.UserContext(), caller(ctx).AccountID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Logged out", nil))
}
