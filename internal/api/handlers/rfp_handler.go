package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/ingestion"
	"github.com/rfp-agent/backend/internal/middleware/validation"
	"github.com/rfp-agent/backend/internal/pipeline"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/internal/storage/models"
	"github.com/rfp-agent/backend/pkg/logger"
)

type DocumentStore interface {
	ListDocuments(ctx context.Context) ([]rfp.Document, error)
	GetDocument(ctx context.Context, name string) (*rfp.Document, error)
	SaveDocument(ctx context.Context, name string, raw []byte) (*rfp.Document, error)
}

type RunHistory interface {
	GetRunHistory(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// runRequest selects the RFP to process: an inline document or the name of
// a stored one.
type runRequest struct {
	Name string          `json:"name"`
	RFP  json.RawMessage `json:"rfp"`
}

type RFPHandler struct {
	store        DocumentStore
	ingestor     *ingestion.Ingestor
	orchestrator *pipeline.Orchestrator
	history      RunHistory
}

// NewRFPHandler wires the REST surface. history may be nil.
func NewRFPHandler(store DocumentStore, ingestor *ingestion.Ingestor, orchestrator *pipeline.Orchestrator, history RunHistory) *RFPHandler {
	return &RFPHandler{
		store:        store,
		ingestor:     ingestor,
		orchestrator: orchestrator,
		history:      history,
	}
}

type rfpListing struct {
	Name       string `json:"name"`
	ID         rfp.ID `json:"id"`
	Title      string `json:"title"`
	DueDate    string `json:"due_date"`
	ScopeItems int    `json:"scope_items"`
}

func (h *RFPHandler) ListRFPs(c *fiber.Ctx) error {
	docs, err := h.store.ListDocuments(c.UserContext())
	if err != nil {
		logger.Error("Failed to list RFPs", zap.Error(err))
		return respondError(c, err, "Failed to list RFPs")
	}

	listing := make([]rfpListing, 0, len(docs))
	for _, d := range docs {
		listing = append(listing, rfpListing{
			Name:       d.Name,
			ID:         d.RFP.ID,
			Title:      d.RFP.Title,
			DueDate:    d.RFP.DueDate,
			ScopeItems: len(d.RFP.Scope),
		})
	}

	return c.JSON(fiber.Map{
		"rfps": listing,
	})
}

func (h *RFPHandler) GetRFP(c *fiber.Ctx) error {
	doc, err := h.store.GetDocument(c.UserContext(), c.Params("name"))
	if err != nil {
		return respondError(c, err, "Failed to load RFP")
	}

	return c.JSON(fiber.Map{
		"name": doc.Name,
		"rfp":  doc.RFP,
	})
}

// UploadRFP stores an RFP sent either as a multipart "file" field or as a raw
// JSON body. The name comes from the uploaded filename, the "name" query
// parameter, or the document id.
func (h *RFPHandler) UploadRFP(c *fiber.Ctx) error {
	name := c.Query("name")
	var raw []byte

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A file field is required",
			})
		}
		f, err := fh.Open()
		if err != nil {
			logger.Error("Failed to open upload", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to read upload",
			})
		}
		defer f.Close()

		raw, err = io.ReadAll(f)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to read upload",
			})
		}
		if name == "" {
			name = fh.Filename
		}
	} else {
		raw = append([]byte(nil), c.Body()...)
	}

	if name == "" {
		parsed, err := rfp.Parse(raw)
		if err != nil {
			return respondError(c, err, "Failed to parse RFP")
		}
		if parsed.ID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A name is required when the RFP has no id",
			})
		}
		name = "rfp_" + parsed.ID.String()
	}

	doc, err := h.store.SaveDocument(c.UserContext(), name, raw)
	if err != nil {
		logger.Warn("RFP upload rejected", zap.String("name", name), zap.Error(err))
		return respondError(c, err, "Failed to store RFP")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name": doc.Name,
		"rfp":  doc.RFP,
	})
}

func (h *RFPHandler) RunPipeline(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	doc, err := resolveRequest(c.UserContext(), h.store, req)
	if err != nil {
		return respondError(c, err, "Failed to resolve RFP")
	}

	report := h.orchestrator.Run(c.UserContext(), *doc)
	return c.JSON(report)
}

func (h *RFPHandler) RunDefault(c *fiber.Ctx) error {
	report, err := h.orchestrator.RunDefault(c.UserContext())
	if err != nil {
		logger.Warn("Default pipeline run failed", zap.Error(err))
		return respondError(c, err, "Failed to run pipeline")
	}
	return c.JSON(report)
}

func (h *RFPHandler) Discover(c *fiber.Ctx) error {
	sources, ok := c.Locals(validation.LocalsSources).([]string)
	if !ok {
		var req struct {
			Sources []string `json:"sources"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		sources = req.Sources
	}

	records := h.ingestor.Discover(c.UserContext(), sources)
	return c.JSON(fiber.Map{
		"records": records,
	})
}

func (h *RFPHandler) Insight(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	doc, err := resolveRequest(c.UserContext(), h.store, req)
	if err != nil {
		return respondError(c, err, "Failed to resolve RFP")
	}

	return c.JSON(ingestion.Insight(*doc))
}

func (h *RFPHandler) RunHistory(c *fiber.Ctx) error {
	if h.history == nil {
		return c.JSON(fiber.Map{
			"runs": []models.RunRecord{},
		})
	}

	runs, err := h.history.GetRunHistory(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		logger.Error("Failed to load run history", zap.Error(err))
		return respondError(c, err, "Failed to load run history")
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

func resolveRequest(ctx context.Context, store DocumentStore, req runRequest) (*rfp.RFP, error) {
	if len(req.RFP) > 0 && string(req.RFP) != "null" {
		return rfp.Parse(req.RFP)
	}
	if req.Name != "" {
		doc, err := store.GetDocument(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		return &doc.RFP, nil
	}
	return nil, fmt.Errorf("%w: either name or rfp is required", errBadRequest)
}

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, ingestion.ErrNoDocumentFound), errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, rfp.ErrMalformedDocument), errors.Is(err, models.ErrInvalidName), errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError maps err to a status. Client errors carry the error text;
// server errors only the generic message.
func respondError(c *fiber.Ctx, err error, message string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// Register mounts the RFP routes on an /api/v1 router.
func (h *RFPHandler) Register(api fiber.Router) {
	api.Get("/rfps", h.ListRFPs)
	api.Post("/rfps", h.UploadRFP)
	api.Post("/rfps/discover", h.Discover)
	api.Post("/rfps/insight", h.Insight)
	api.Get("/rfps/:name", h.GetRFP)

	api.Post("/pipeline/run", h.RunPipeline)
	api.Post("/pipeline/run-default", h.RunDefault)

	api.Get("/runs", h.RunHistory)
}
