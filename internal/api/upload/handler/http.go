package uploadHandler

import (
	uploadService "AirlineETL/internal/api/upload/service"
	"AirlineETL/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type UploadHandler struct {
	log           *logrus.Logger
	validator     *validator.Validate
	middleware    middleware.Middleware
	uploadService uploadService.IUploadService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	uploadService uploadService.IUploadService,
) *UploadHandler {
	return &UploadHandler{
		log:           log,
		validator:     validate,
		middleware:    middleware,
		uploadService: uploadService,
	}
}

func (h *UploadHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	uploads := srv.Group("/uploads")
	uploads.Post("", h.middleware.NewUploadRateLimiter, h.Upload)
	uploads.Post("/detect", h.middleware.NewRateLimiter, h.Detect)
	uploads.Get("/:id", h.middleware.NewRateLimiter, h.GetUpload)
	uploads.Post("/:id/process", h.middleware.NewUploadRateLimiter, h.Process)
	uploads.Get("/:id/ws", wsMiddleware, websocket.New(h.watchProgress))

	srv.Post("/convert", h.middleware.NewUploadRateLimiter, h.Convert)
}
