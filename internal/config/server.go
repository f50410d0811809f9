package config

import (
	"context"
	"fmt"

	"AirlineETL/database/postgres"
	eligibilityHandler "AirlineETL/internal/api/eligibility/handler"
	eligibilityService "AirlineETL/internal/api/eligibility/service"
	uploadHandler "AirlineETL/internal/api/upload/handler"
	uploadRepository "AirlineETL/internal/api/upload/repository"
	uploadService "AirlineETL/internal/api/upload/service"
	"AirlineETL/internal/middleware"
	"AirlineETL/pkg/redis"
	"AirlineETL/pkg/s3"
	"AirlineETL/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	cfg         AppConfig
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithAppConfig(cfg AppConfig) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		if err := postgres.Migrate(context.Background(), db); err != nil {
			return err
		}
		s.db = db
		return nil
	}
}

func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client enables archiving of original uploads. It is a no-op unless
// STORE_UPLOADS is set.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if !s.cfg.StoreUploads {
			return nil
		}
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New(s.cfg.MaxFileBytes)
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Upload Domain
	uploadRepo := uploadRepository.New(s.db, s.log, s.cfg.BatchInsertSize)
	uploadServices := uploadService.NewUploadService(s.log, uploadRepo, s.redisServer, s.s3Client, s.utils, uploadService.Config{
		StoreUploads: s.cfg.StoreUploads,
		BatchSize:    s.cfg.BatchInsertSize,
	})
	uploadHandlers := uploadHandler.New(s.log, s.validator, s.middleware, uploadServices)

	// Eligibility
	eligibilityServices := eligibilityService.NewEligibilityService(s.log)
	eligibilityHandlers := eligibilityHandler.New(s.log, s.validator, s.middleware, eligibilityServices)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, uploadHandlers, eligibilityHandlers)
}

func (s *Server) Run() error {
	s.mount()

	port := s.cfg.Port
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) mount() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware(), s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}
}

func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()
	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}
	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
