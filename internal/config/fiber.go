package config

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// multipartOverhead leaves room for form boundaries and fields so that an
// oversized file is rejected by the service with a 413 body instead of a
// bare connection error.
const multipartOverhead = 1 << 20

func NewFiber(logger *logrus.Logger, cfg AppConfig) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:           "Airline ETL",
			BodyLimit:         int(cfg.MaxFileBytes) + multipartOverhead,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: cfg.Env != "test",
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
		})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowCredentials: cfg.CORSCredentials && !allowsAnyOrigin(cfg.FrontendURL),
		AllowHeaders:     "Origin, Content-Type, Accept, X-Request-ID",
		ExposeHeaders:    "X-Request-ID, Content-Disposition",
	}))

	logger.WithFields(logrus.Fields{
		"frontend_url": cfg.FrontendURL,
		"credentials":  cfg.CORSCredentials,
	}).Debug("CORS configured")

	return app
}
