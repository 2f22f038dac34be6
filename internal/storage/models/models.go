package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidName = errors.New("invalid document name")
)

// StoredDocument is the persisted form of an RFP document.
type StoredDocument struct {
	Name      string
	RFPID     string
	Title     string
	DueDate   string
	RawJSON   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunRecord summarises one pipeline run. The audit log is not kept.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	RFPID     string    `json:"rfp_id"`
	Title     string    `json:"title"`
	ItemCount int       `json:"item_count"`
	TotalCost float64   `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeName rejects names that would escape a store and adds a .json
// extension when missing.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		name += ".json"
	}
	return name, nil
}
