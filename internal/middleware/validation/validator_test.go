package validation

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/rfps/discover", func(c *fiber.Ctx) error {
		sources, _ := c.Locals(LocalsSources).([]string)
		return c.JSON(fiber.Map{"sources": sources})
	})
	app.Post("/api/v1/rfps", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	return app
}

func post(t *testing.T, app *fiber.App, path, contentType, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	resp, err := app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestMiddleware_Discovery(t *testing.T) {
	app := newApp(Config{MaxSources: 2})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{name: "valid", body: `{"sources":[" rfp_001.json ","https://x.example.com/a.pdf\u0000"]}`, wantCode: 200, wantBody: `{"sources":["rfp_001.json","https://x.example.com/a.pdf"]}`},
		{name: "missing sources", body: `{}`, wantCode: 400},
		{name: "too many", body: `{"sources":["a","b","c"]}`, wantCode: 400},
		{name: "non-string", body: `{"sources":[1]}`, wantCode: 400},
		{name: "blank", body: `{"sources":["  "]}`, wantCode: 400},
		{name: "bad json", body: `{"sources":`, wantCode: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, app, "/api/v1/rfps/discover", "application/json", tt.body)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, body)
			}
		})
	}
}

func TestMiddleware_ContentType(t *testing.T) {
	app := newApp(Config{})

	code, _ := post(t, app, "/api/v1/rfps", "text/xml", `<rfp/>`)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, code)

	code, _ = post(t, app, "/api/v1/rfps", "application/json", `{}`)
	assert.Equal(t, fiber.StatusCreated, code)
}

func TestMiddleware_BodySize(t *testing.T) {
	app := newApp(Config{MaxDocumentSize: 8})

	code, _ := post(t, app, "/api/v1/rfps", "application/json", `{"id":"too long"}`)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, code)
}
