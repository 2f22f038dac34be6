package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/internal/storage/models"
	"github.com/rfp-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rfp_documents (
		name TEXT PRIMARY KEY,
		rfp_id TEXT NOT NULL,
		title TEXT,
		due_date TEXT,
		raw_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rfp_documents_rfp_id ON rfp_documents(rfp_id);

	CREATE TABLE IF NOT EXISTS run_history (
		run_id TEXT PRIMARY KEY,
		rfp_id TEXT NOT NULL,
		title TEXT,
		item_count INTEGER NOT NULL,
		total_cost REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_history_created ON run_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_run_history_rfp ON run_history(rfp_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// SaveDocument validates raw as an RFP and upserts it under name.
func (c *Client) SaveDocument(ctx context.Context, name string, raw []byte) (*rfp.Document, error) {
	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	parsed, err := rfp.Parse(raw)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &models.StoredDocument{
		Name:      name,
		RFPID:     parsed.ID.String(),
		Title:     parsed.Title,
		DueDate:   parsed.DueDate,
		RawJSON:   raw,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	return &rfp.Document{Name: name, RFP: *parsed}, nil
}

func (c *Client) InsertDocument(ctx context.Context, doc *models.StoredDocument) error {
	query := `
		INSERT INTO rfp_documents (name, rfp_id, title, due_date, raw_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			rfp_id = excluded.rfp_id,
			title = excluded.title,
			due_date = excluded.due_date,
			raw_json = excluded.raw_json,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		doc.Name,
		doc.RFPID,
		doc.Title,
		doc.DueDate,
		string(doc.RawJSON),
		doc.CreatedAt.Unix(),
		doc.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted", zap.String("name", doc.Name), zap.String("rfp_id", doc.RFPID))
	return nil
}

func (c *Client) GetDocument(ctx context.Context, name string) (*rfp.Document, error) {
	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	var raw string
	err = c.db.QueryRowContext(ctx, `SELECT raw_json FROM rfp_documents WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	parsed, err := rfp.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &rfp.Document{Name: name, RFP: *parsed}, nil
}

// ListDocuments returns stored RFPs ordered by name. Rows that no longer parse
// are skipped.
func (c *Client) ListDocuments(ctx context.Context) ([]rfp.Document, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, raw_json FROM rfp_documents ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []rfp.Document
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		parsed, err := rfp.Parse([]byte(raw))
		if err != nil {
			logger.Warn("Skipping unparseable stored RFP", zap.String("name", name), zap.Error(err))
			continue
		}
		docs = append(docs, rfp.Document{Name: name, RFP: *parsed})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func (c *Client) InsertRunRecord(ctx context.Context, record *models.RunRecord) error {
	query := `
		INSERT INTO run_history (run_id, rfp_id, title, item_count, total_cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.RunID,
		record.RFPID,
		record.Title,
		record.ItemCount,
		record.TotalCost,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert run record: %w", err)
	}

	logger.Info("Run recorded",
		zap.String("run_id", record.RunID),
		zap.String("rfp_id", record.RFPID),
		zap.Float64("total_cost", record.TotalCost),
	)

	return nil
}

// GetRunHistory returns the most recent runs first.
func (c *Client) GetRunHistory(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT run_id, rfp_id, title, item_count, total_cost, created_at
		FROM run_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	records := []models.RunRecord{}
	for rows.Next() {
		var r models.RunRecord
		var createdAt int64

		err := rows.Scan(&r.RunID, &r.RFPID, &r.Title, &r.ItemCount, &r.TotalCost, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, nil
}
