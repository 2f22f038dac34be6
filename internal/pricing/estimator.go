// Package pricing turns technical match output into a costed line-item table.
package pricing

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/audit"
	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
	"github.com/rfp-agent/backend/pkg/utils"
)

const defaultQuantity = 1.0

type Estimator struct {
	productPrices PriceTable
	testPrices    PriceTable
}

func NewEstimator(productPrices, testPrices PriceTable) *Estimator {
	return &Estimator{
		productPrices: productPrices,
		testPrices:    testPrices,
	}
}

// QuantityMap indexes requested quantities by item id; later entries win.
func QuantityMap(entries []rfp.QuantityEntry) map[rfp.ID]float64 {
	m := make(map[rfp.ID]float64, len(entries))
	for _, e := range entries {
		m[e.ItemID] = e.QuantityKM
	}
	return m
}

// ResolveQuantity returns the requested quantity for itemID, or 1 when it is
// missing or not positive.
func ResolveQuantity(itemID rfp.ID, quantities map[rfp.ID]float64) float64 {
	q, ok := quantities[itemID]
	if !ok || q <= 0 {
		return defaultQuantity
	}
	return q
}

// FuzzyTestPrice finds the test price whose label contains, or is contained
// by, testName (case-insensitive). Among several such labels the one sharing
// the longest text with testName wins, then the one closest in length, then
// the lexicographically smallest label.
func (e *Estimator) FuzzyTestPrice(testName string) (float64, bool) {
	query := strings.ToLower(strings.TrimSpace(testName))
	if query == "" {
		return 0, false
	}

	var (
		bestKey     string
		bestOverlap = -1
		bestDelta   int
	)

	for _, key := range e.testPrices.keys {
		label := strings.ToLower(strings.TrimSpace(key))
		if label == "" {
			continue
		}

		var overlap int
		switch {
		case strings.Contains(query, label):
			overlap = len(label)
		case strings.Contains(label, query):
			overlap = len(query)
		default:
			continue
		}
		delta := abs(len(label) - len(query))

		better := overlap > bestOverlap ||
			(overlap == bestOverlap && delta < bestDelta) ||
			(overlap == bestOverlap && delta == bestDelta && key < bestKey)
		if better {
			bestKey, bestOverlap, bestDelta = key, overlap, delta
		}
	}

	if bestOverlap < 0 {
		return 0, false
	}
	price, _ := e.testPrices.Get(bestKey)
	return price, true
}

type testCharge struct {
	name  string
	price float64
}

// Price costs every matched item in order: the top-ranked SKU's unit price
// times the requested quantity, plus the sum of fuzzy-matched test prices.
func (e *Estimator) Price(match rfp.TechnicalMatch, tests []string, quantities []rfp.QuantityEntry) (rfp.PricingOutput, audit.Log) {
	var log audit.Log
	log.Addf("✔ Loaded product pricing table (%d SKUs)", e.productPrices.Len())
	log.Addf("✔ Loaded test pricing table (%d tests)", e.testPrices.Len())

	charges := make([]testCharge, 0, len(tests))
	var testCost float64
	for _, t := range tests {
		price, ok := e.FuzzyTestPrice(t)
		if !ok {
			log.Addf("⚠ No test price matched for %q, using 0", t)
			metrics.UnmatchedTests.Inc()
		}
		charges = append(charges, testCharge{name: t, price: price})
		testCost += price
	}
	details := renderTestDetails(charges)

	qty := QuantityMap(quantities)
	out := rfp.PricingOutput{PricingTable: make([]rfp.PricingEntry, 0, len(match.Items))}

	for _, item := range match.Items {
		log.Addf("✔ Calculating pricing for item %s", item.ItemID)

		var sku *string
		unitPrice := 0.0
		if len(item.Top3) > 0 {
			selected := item.Top3[0].SKU
			sku = &selected

			p, ok := e.productPrices.Get(selected)
			if !ok {
				log.Addf("⚠ No unit price for SKU %s, using 0", selected)
				logger.Warn("SKU missing from product price table",
					zap.String("item_id", item.ItemID.String()),
					zap.String("sku", selected),
				)
			}
			unitPrice = p
		} else {
			log.Addf("⚠ No candidate SKU for item %s", item.ItemID)
		}

		quantity := ResolveQuantity(item.ItemID, qty)
		material := unitPrice * quantity

		out.PricingTable = append(out.PricingTable, rfp.PricingEntry{
			ItemID:       item.ItemID,
			RFPItem:      item.RFPItem,
			SKUSelected:  sku,
			UnitPrice:    unitPrice,
			Qty:          quantity,
			MaterialCost: material,
			TestCost:     testCost,
			TestDetails:  details,
			TotalCost:    material + testCost,
		})
	}

	log.Addf("✔ Calculated pricing for %d items", len(out.PricingTable))
	return out, log
}

func renderTestDetails(charges []testCharge) string {
	parts := make([]string, 0, len(charges))
	for _, c := range charges {
		parts = append(parts, fmt.Sprintf("%s: %s", c.name, utils.FormatFloat(c.price)))
	}
	return strings.Join(parts, "; ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
