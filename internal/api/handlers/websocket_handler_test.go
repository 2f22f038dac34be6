package handlers

import (
	"net"
	"testing"
	"time"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfp-agent/backend/internal/rfp"
)

type wsMessage struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Error   string      `json:"error"`
	Report  *rfp.Report `json:"report"`
}

func dialRunSocket(t *testing.T, seed bool) *fastws.Conn {
	t.Helper()

	store, ingestor, orchestrator := newTestPipeline(t, seed)

	app := fiber.New()
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/run", websocket.New(NewWebSocketHandler(store, ingestor, orchestrator).HandleConnection))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	conn, _, err := fastws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws/run", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readMessage(t *testing.T, conn *fastws.Conn) wsMessage {
	t.Helper()
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readRun consumes one run: a status message, the log lines, then the report.
func readRun(t *testing.T, conn *fastws.Conn) ([]string, *rfp.Report) {
	t.Helper()

	status := readMessage(t, conn)
	require.Equal(t, "status", status.Type)
	assert.Equal(t, "Running pipeline...", status.Content)

	var lines []string
	for {
		msg := readMessage(t, conn)
		switch msg.Type {
		case "log":
			lines = append(lines, msg.Content)
		case "complete":
			require.NotNil(t, msg.Report)
			return lines, msg.Report
		default:
			t.Fatalf("unexpected message type %q", msg.Type)
		}
	}
}

func TestWebSocketHandler_StreamsRun(t *testing.T) {
	conn := dialRunSocket(t, true)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "run", "name": "rfp_001.json"}))
	lines, report := readRun(t, conn)

	assert.Equal(t, rfp.ID("RFP-001"), report.RFPID)
	assert.Equal(t, report.Logs, lines)
	require.NotEmpty(t, lines)
	assert.Equal(t, "[Sales Agent]", lines[0])
	assert.Equal(t, "✔ Pipeline completed successfully", lines[len(lines)-1])
	require.Len(t, report.Pricing.PricingTable, 1)
	assert.Equal(t, 550.0, report.Pricing.PricingTable[0].TotalCost)
}

func TestWebSocketHandler_ErrorsKeepConnectionOpen(t *testing.T) {
	conn := dialRunSocket(t, true)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "run", "name": "missing.json"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "document not found")

	// unknown types are ignored, so the next reply belongs to run_default
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "run_default"}))
	_, report := readRun(t, conn)
	assert.Equal(t, rfp.ID("RFP-001"), report.RFPID)
}

func TestWebSocketHandler_RunDefaultWithEmptyStore(t *testing.T) {
	conn := dialRunSocket(t, false)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "run_default"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.NotEmpty(t, msg.Error)
}
