package eligibilityHandler

import (
	eligibilityService "AirlineETL/internal/api/eligibility/service"
	"AirlineETL/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type EligibilityHandler struct {
	log                *logrus.Logger
	validator          *validator.Validate
	middleware         middleware.Middleware
	eligibilityService eligibilityService.IEligibilityService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	es eligibilityService.IEligibilityService,
) *EligibilityHandler {
	return &EligibilityHandler{
		log:                log,
		validator:          validate,
		middleware:         middleware,
		eligibilityService: es,
	}
}

func (h *EligibilityHandler) Start(srv fiber.Router) {
	srv.Post("/eligibility", h.middleware.NewRateLimiter, h.Check)
}
