package validation

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LocalsSources is the fiber.Locals key holding the cleaned discovery
// source list.
const LocalsSources = "discovery_sources"

const maxSourceLength = 2048

type Config struct {
	MaxSources          int
	MaxDocumentSize     int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxSources == 0 {
		cfg.MaxSources = 50
	}
	if cfg.MaxDocumentSize == 0 {
		cfg.MaxDocumentSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get(fiber.HeaderContentType)
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}

			if len(c.Body()) > cfg.MaxDocumentSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Request body exceeds maximum size",
				})
			}
		}

		if c.Method() == fiber.MethodPost && strings.HasSuffix(c.Path(), "/rfps/discover") {
			var req struct {
				Sources []interface{} `json:"sources"`
			}
			if err := json.Unmarshal(c.Body(), &req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if len(req.Sources) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "sources must be a non-empty list",
				})
			}
			if len(req.Sources) > cfg.MaxSources {
				cfg.Logger.Warn("Discovery request over source limit",
					zap.String("ip", c.IP()),
					zap.Int("sources", len(req.Sources)),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Too many sources",
				})
			}

			sources := make([]string, 0, len(req.Sources))
			for _, raw := range req.Sources {
				s, ok := raw.(string)
				if !ok {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Every source must be a string",
					})
				}
				s = sanitizeString(s)
				if s == "" || len(s) > maxSourceLength {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Sources must be non-empty and at most 2048 characters",
					})
				}
				sources = append(sources, s)
			}

			c.Locals(LocalsSources, sources)
		}

		return c.Next()
	}
}

func sanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
