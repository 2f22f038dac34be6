package matching

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
	"github.com/rfp-agent/backend/pkg/utils"
)

// LoadCatalog reads the product catalog CSV (sku, voltage, conductor,
// insulation_thickness_mm). An unparseable thickness loads as 0.
func LoadCatalog(path string) ([]rfp.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	products, err := ReadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	logger.Info("Product catalog loaded", zap.String("path", path), zap.Int("products", len(products)))
	return products, nil
}

func ReadCatalog(r io.Reader) ([]rfp.Product, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var products []rfp.Product
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		products = append(products, rfp.Product{
			SKU: field(row, "sku"),
			Specs: rfp.ProductSpecs{
				Voltage:               field(row, rfp.SpecVoltage),
				Conductor:             field(row, rfp.SpecConductor),
				InsulationThicknessMM: utils.ParseFloatOr(field(row, rfp.SpecInsulationThickness), 0),
			},
		})
	}

	return products, nil
}
