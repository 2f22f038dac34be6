package pricing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/pkg/logger"
	"github.com/rfp-agent/backend/pkg/utils"
)

var (
	keyColumns   = []string{"sku", "test", "name"}
	priceColumns = []string{"price", "cost", "unit_price"}
)

// PriceTable maps a key (SKU or test label) to a price and remembers the
// order keys were loaded in.
type PriceTable struct {
	keys   []string
	prices map[string]float64
}

func NewPriceTable() PriceTable {
	return PriceTable{prices: make(map[string]float64)}
}

// Set adds or overwrites key. An overwritten key keeps its original position.
func (t *PriceTable) Set(key string, price float64) {
	if t.prices == nil {
		t.prices = make(map[string]float64)
	}
	if _, ok := t.prices[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.prices[key] = price
}

func (t PriceTable) Get(key string) (float64, bool) {
	p, ok := t.prices[key]
	return p, ok
}

func (t PriceTable) Len() int { return len(t.keys) }

func (t PriceTable) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// LoadPriceTable reads a CSV keyed by sku, test or name with a price, cost or
// unit_price column. Unparseable prices load as 0.
func LoadPriceTable(path string) (PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return PriceTable{}, fmt.Errorf("failed to open price table: %w", err)
	}
	defer f.Close()

	table, err := ReadPriceTable(f)
	if err != nil {
		return PriceTable{}, fmt.Errorf("failed to read price table %s: %w", path, err)
	}

	logger.Info("Price table loaded", zap.String("path", path), zap.Int("entries", table.Len()))
	return table, nil
}

func ReadPriceTable(r io.Reader) (PriceTable, error) {
	table := NewPriceTable()

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return table, nil
	}
	if err != nil {
		return table, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	firstOf := func(row []string, names []string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(row) {
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return table, err
		}

		key := firstOf(row, keyColumns)
		if key == "" {
			continue
		}
		table.Set(key, utils.ParseFloatOr(firstOf(row, priceColumns), 0))
	}

	return table, nil
}
