package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/ingestion"
	"github.com/rfp-agent/backend/internal/pipeline"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
)

// WebSocketHandler runs the pipeline on request and streams the audit log
// line by line, finishing with the report.
type WebSocketHandler struct {
	store        DocumentStore
	resolver     pipeline.DefaultResolver
	orchestrator *pipeline.Orchestrator
}

func NewWebSocketHandler(store DocumentStore, resolver pipeline.DefaultResolver, orchestrator *pipeline.Orchestrator) *WebSocketHandler {
	return &WebSocketHandler{
		store:        store,
		resolver:     resolver,
		orchestrator: orchestrator,
	}
}

type wsRequest struct {
	Type string `json:"type"`
	runRequest
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsRequest
		err := c.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Failed to read WebSocket message", zap.Error(err))
			}
			break
		}

		var doc *rfp.RFP
		switch msg.Type {
		case "run":
			doc, err = resolveRequest(context.Background(), h.store, msg.runRequest)
		case "run_default":
			doc, err = h.resolveDefault(context.Background())
		default:
			continue
		}

		if err != nil {
			logger.Warn("WebSocket run rejected", zap.String("type", msg.Type), zap.Error(err))
			if sendErr := h.sendError(c, err.Error()); sendErr != nil {
				break
			}
			continue
		}

		if err := h.streamRun(c, *doc); err != nil {
			logger.Error("Failed to stream run", zap.Error(err))
			break
		}
	}
}

func (h *WebSocketHandler) resolveDefault(ctx context.Context) (*rfp.RFP, error) {
	if h.resolver == nil {
		return nil, ingestion.ErrNoDocumentFound
	}
	doc, err := h.resolver.ResolveDefault(ctx)
	if err != nil {
		return nil, err
	}
	return &doc.RFP, nil
}

func (h *WebSocketHandler) streamRun(c *websocket.Conn, doc rfp.RFP) error {
	if err := h.sendChunk(c, "status", "Running pipeline..."); err != nil {
		return err
	}

	var writeErr error
	report := h.orchestrator.RunStream(context.Background(), doc, func(line string) {
		if writeErr == nil {
			writeErr = h.sendChunk(c, "log", line)
		}
	})
	if writeErr != nil {
		return writeErr
	}

	return h.sendComplete(c, report)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	msg := map[string]interface{}{
		"type":    msgType,
		"content": content,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, report rfp.Report) error {
	msg := map[string]interface{}{
		"type":   "complete",
		"report": report,
	}

	return c.WriteJSON(msg)
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) error {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	return c.WriteJSON(msg)
}
