package controller

import (
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

func caller(ctx *fiber.Ctx) service.Caller {
	accountID, email := serverutils.CurrentUser(ctx)
	return service.Caller{AccountID: accountID, Email: email}
}
