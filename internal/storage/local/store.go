// Package local serves RFP documents from a directory of JSON files.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/internal/storage/models"
	"github.com/rfp-agent/backend/pkg/logger"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create RFP directory: %w", err)
	}

	logger.Info("Local RFP store initialized", zap.String("dir", dir))
	return &Store{dir: dir}, nil
}

// ListDocuments returns every parseable *.json file in name order. Files that
// do not parse are skipped.
func (s *Store) ListDocuments(ctx context.Context) ([]rfp.Document, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read RFP directory: %w", err)
	}

	docs := make([]rfp.Document, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		doc, err := s.read(entry.Name())
		if err != nil {
			logger.Warn("Skipping unreadable RFP file", zap.String("name", entry.Name()), zap.Error(err))
			continue
		}
		docs = append(docs, *doc)
	}

	return docs, nil
}

func (s *Store) GetDocument(ctx context.Context, name string) (*rfp.Document, error) {
	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	return s.read(name)
}

// SaveDocument validates raw as an RFP and writes it under name, replacing
// any existing file.
func (s *Store) SaveDocument(ctx context.Context, name string, raw []byte) (*rfp.Document, error) {
	name, err := models.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	parsed, err := rfp.Parse(raw)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write RFP file: %w", err)
	}

	logger.Info("RFP stored", zap.String("name", name), zap.String("rfp_id", parsed.ID.String()))
	return &rfp.Document{Name: name, RFP: *parsed}, nil
}

func (s *Store) read(name string) (*rfp.Document, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read RFP file: %w", err)
	}

	parsed, err := rfp.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &rfp.Document{Name: name, RFP: *parsed}, nil
}
