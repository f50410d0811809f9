package uploadHandler

import (
	"errors"
	"time"

	"AirlineETL/internal/api/upload"
	contextPkg "AirlineETL/pkg/context"
	"AirlineETL/pkg/handlerUtil"
	"AirlineETL/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

const (
	requestTimeout = 10 * time.Second
	processTimeout = 2 * time.Minute
)

func (h *UploadHandler) Upload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), processTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing upload request")

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, upload.ErrNoFile, ctx.Path(), "parse_upload_form")
	}

	res, err := h.uploadService.Upload(c, file, ctx.FormValue("dataset"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, res)
	}
}

func (h *UploadHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, upload.ErrNoFile, ctx.Path(), "parse_detect_form")
	}

	res, err := h.uploadService.Detect(c, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *UploadHandler) GetUpload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID, errors.New("upload ID is required"), ctx.Path())
	}

	res, err := h.uploadService.GetUpload(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *UploadHandler) Process(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), processTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"upload_id":  ctx.Params("id"),
	}).Debug("Processing trigger received")

	var req upload.ProcessRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
	}
	if req.Dataset == "" {
		req.Dataset = ctx.Query("dataset")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	res, err := h.uploadService.Process(c, ctx.Params("id"), req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_upload")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *UploadHandler) Convert(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), requestTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, upload.ErrNoFile, ctx.Path(), "parse_convert_form")
	}

	res, err := h.uploadService.Convert(c, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "convert")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		ctx.Attachment(res.Filename)
		ctx.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return ctx.Status(fiber.StatusOK).SendString(res.CSV)
	}
}
