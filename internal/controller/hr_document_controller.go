package controller

import (
	"encoding/json"
	"errors"

	"echo-assistant-be/internal/dto"
	"echo-assistant-be/internal/pkg/serverutils"
	"echo-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHRDocumentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	List(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type hrDocumentController struct {
	service service.IHRDocumentService
}

func NewHRDocumentController(service service.IHRDocumentService) IHRDocumentController {
	return &hrDocumentController{service: service}
}

func (c *hrDocumentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	r.Post("/upload_hr_doc", auth, c.Upload)
	r.Get("/api/hr_documents", auth, c.List)
	r.Delete("/api/hr_documents", auth, c.Delete)
}

func hrError(err error) error {
	switch {
	case errors.Is(err, service.ErrNotHRAdmin):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUnsupportedFile), errors.Is(err, service.ErrInvalidFileName):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDocumentTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	}
	return err
}

func (c *hrDocumentController) List(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *hrDocumentController) Upload(ctx *fiber.Ctx) error {
	_, email := serverutils.CurrentUser(ctx)
	if !c.service.IsAdmin(email) {
		return hrError(service.ErrNotHRAdmin)
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded")
	}
	// Optional metadata sent alongside the file; the uploader always comes
	// from the session.
	if raw := ctx.FormValue("metadata"); raw != "" && !json.Valid([]byte(raw)) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid metadata")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := c.service.Upload(ctx.UserContext(), email, fh.Filename, f)
	if err != nil {
		return hrError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Document uploaded", res))
}

func (c *hrDocumentController) Delete(ctx *fiber.Ctx) error {
	var req dto.DeleteHRDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(&req); err != nil {
		return err
	}

	_, email := serverutils.CurrentUser(ctx)
	if err := c.service.Delete(ctx.UserContext(), email, req.Filename); err != nil {
		return hrError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document deleted", nil))
}
