package config

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"AirlineETL/pkg/redis"
	"AirlineETL/pkg/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestLoadAppConfig_Defaults(t *testing.T) {
	for _, key := range []string{"APP_PORT", "APP_ENV", "FRONTEND_URL", "MAX_FILE_BYTES", "BATCH_INSERT_SIZE", "STORE_UPLOADS"} {
		t.Setenv(key, "")
	}

	cfg := LoadAppConfig()
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, utils.DefaultMaxFileBytes, cfg.MaxFileBytes)
	assert.Equal(t, 200, cfg.BatchInsertSize)
	assert.False(t, cfg.StoreUploads)
	assert.True(t, cfg.CORSCredentials)
}

func TestLoadAppConfig_WildcardOriginDropsCredentials(t *testing.T) {
	for _, origins := range []string{"*", "http://localhost:5173, *"} {
		t.Setenv("FRONTEND_URL", origins)

		cfg := LoadAppConfig()
		assert.Equal(t, origins, cfg.FrontendURL)
		assert.False(t, cfg.CORSCredentials)
	}
}

func TestNewFiber_WildcardOrigin(t *testing.T) {
	cfg := AppConfig{Env: "test", FrontendURL: "*", CORSCredentials: true, MaxFileBytes: 1024}

	var app *fiber.App
	require.NotPanics(t, func() { app = NewFiber(quietLogger(), cfg) })
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestLoadAppConfig_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "8080")
	t.Setenv("MAX_FILE_BYTES", "2048")
	t.Setenv("BATCH_INSERT_SIZE", "-5")
	t.Setenv("STORE_UPLOADS", "True")

	cfg := LoadAppConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.EqualValues(t, 2048, cfg.MaxFileBytes)
	assert.Equal(t, 200, cfg.BatchInsertSize)
	assert.True(t, cfg.StoreUploads)
}

func TestNewValidator_UsesJSONNames(t *testing.T) {
	type form struct {
		FullName string `json:"full_name" validate:"required"`
		Ignored  string `json:"-" validate:"max=1"`
	}

	err := NewValidator().Struct(form{Ignored: "xx"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := []string{}
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	assert.Contains(t, fields, "full_name")
}

func TestNewServer_RequiresFiberAndLogger(t *testing.T) {
	_, err := NewServer(WithLogger(quietLogger()))
	assert.Error(t, err)

	_, err = NewServer(WithFiber(NewFiber(quietLogger(), AppConfig{MaxFileBytes: 1024})))
	assert.Error(t, err)

	_, err = NewServer(WithMiddleware())
	assert.Error(t, err)
}

func TestWithS3Client_DisabledByDefault(t *testing.T) {
	s := &Server{}
	require.NoError(t, WithS3Client()(s))
	assert.Nil(t, s.s3Client)
}

func TestServer_RoutesAreMounted(t *testing.T) {
	logger := quietLogger()
	cfg := AppConfig{Env: "test", FrontendURL: "http://localhost:5173", MaxFileBytes: 1024, BatchInsertSize: 10}

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rc.Close()

	server, err := NewServer(
		WithFiber(NewFiber(logger, cfg)),
		WithLogger(logger),
		WithAppConfig(cfg),
		WithValidator(NewValidator()),
		WithDB(sqlx.NewDb(db, "postgres")),
		WithRedisServer(redis.NewWithClient(rc, 0)),
		WithMiddleware(),
		WithS3Client(),
		WithUtils(),
	)
	require.NoError(t, err)
	assert.EqualValues(t, 1024, server.utils.MaxFileBytes())

	server.RegisterHandler()
	server.mount()

	resp, err := server.engine.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility",
		strings.NewReader(`{"full_name":"Ada Lovelace","age":36,"annual_income":1000}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = server.engine.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = server.engine.Test(httptest.NewRequest(http.MethodGet, "/api/v1/uploads/01A/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
