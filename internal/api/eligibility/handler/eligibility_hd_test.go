package eligibilityHandler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	eligibilityService "AirlineETL/internal/api/eligibility/service"
	"AirlineETL/internal/middleware"
	"AirlineETL/pkg/response"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	New(logger, validator.New(), middleware.New(logger), eligibilityService.NewEligibilityService(logger)).Start(app.Group("/api/v1"))
	return app
}

func post(t *testing.T, app *fiber.App, body string) (*http.Response, response.Body) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	var errBody response.Body
	if resp.StatusCode != http.StatusOK {
		require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&errBody))
	}
	return resp, errBody
}

func TestCheck(t *testing.T) {
	app := newTestApp()

	resp, _ := post(t, app, `{"full_name":"Budi Santoso","age":18,"annual_income":0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["message"])
}

func TestCheck_Validation(t *testing.T) {
	app := newTestApp()

	tests := []struct {
		name string
		body string
		rule string
	}{
		{"missing age", `{"full_name":"Budi","annual_income":10}`, "required"},
		{"too young", `{"full_name":"Budi","age":17,"annual_income":10}`, "gte=18"},
		{"too old", `{"full_name":"Budi","age":101,"annual_income":10}`, "lte=100"},
		{"negative income", `{"full_name":"Budi","age":40,"annual_income":-1}`, "gte=0"},
		{"short name", `{"full_name":"B","age":40,"annual_income":1}`, "min=2"},
		{"long name", `{"full_name":"` + strings.Repeat("a", 101) + `","age":40,"annual_income":1}`, "max=100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, app, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", body.Code)
			assert.Contains(t, body.Error, tt.rule)
		})
	}
}

func TestCheck_BlankNameAfterTrim(t *testing.T) {
	resp, body := post(t, newTestApp(), `{"full_name":"  x ","age":40,"annual_income":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "full name must not be blank", body.Error)
}

func TestCheck_MalformedJSON(t *testing.T) {
	resp, body := post(t, newTestApp(), `{"full_name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
}
