package handlerUtil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"AirlineETL/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, h func(c *fiber.Ctx) error) (int, response.Body) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	raw, _ := io.ReadAll(resp.Body)
	var body response.Body
	_ = jsoniter.Unmarshal(raw, &body)
	return resp.StatusCode, body
}

func TestHandle(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	eh := New(logger)

	errNotFound := response.NewError(http.StatusNotFound, "upload not found")

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		errorMsg string
	}{
		{"domain", errNotFound, 404, "UPLOAD_NOT_FOUND", "upload not found"},
		{"wrapped domain", fmt.Errorf("%w: bad header", response.NewError(422, "file could not be parsed")), 422, "FILE_COULD_NOT_BE_PARSED", "file could not be parsed: bad header"},
		{"fiber", fiber.NewError(http.StatusUpgradeRequired, "Upgrade Required"), 426, "", "Upgrade Required"},
		{"unknown", errors.New("db exploded"), 500, "", "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := run(t, func(c *fiber.Ctx) error {
				return eh.Handle(c, "req-1", tt.err, c.Path(), "test")
			})
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.errorMsg, body.Error)
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	eh := New(logger)

	type form struct {
		Age int `validate:"gte=18"`
	}
	verr := validator.New().Struct(form{Age: 3})
	require.Error(t, verr)

	status, body := run(t, func(c *fiber.Ctx) error {
		return eh.HandleValidationError(c, "req-1", verr, c.Path())
	})

	assert.Equal(t, 400, status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "Validation failed: Age failed gte=18", body.Error)
}

func TestHandleSuccessAndTimeout(t *testing.T) {
	eh := New(logrus.New())

	status, _ := run(t, func(c *fiber.Ctx) error { return eh.HandleSuccess(c, 204, nil) })
	assert.Equal(t, 204, status)

	status, body := run(t, func(c *fiber.Ctx) error { return eh.HandleRequestTimeout(c) })
	assert.Equal(t, 408, status)
	assert.Equal(t, "REQUEST_TIMEOUT", body.Code)
}
