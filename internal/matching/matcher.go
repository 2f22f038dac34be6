// Package matching ranks catalog products against the specs of each RFP scope item.
package matching

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rfp-agent/backend/internal/audit"
	"github.com/rfp-agent/backend/internal/metrics"
	"github.com/rfp-agent/backend/internal/rfp"
	"github.com/rfp-agent/backend/pkg/logger"
)

const (
	voltageWeight    = 40
	conductorWeight  = 40
	insulationWeight = 20

	// TopN is the number of candidates kept per scope item.
	TopN = 3

	minInsulationTolerance = 0.2
	insulationToleranceRel = 0.2
)

type Matcher struct {
	products []rfp.Product
}

// NewMatcher copies products; the catalog is read-only afterwards.
func NewMatcher(products []rfp.Product) *Matcher {
	catalog := make([]rfp.Product, len(products))
	copy(catalog, products)
	return &Matcher{products: catalog}
}

func (m *Matcher) CatalogSize() int {
	return len(m.products)
}

// Score returns 0..100: 40 for a voltage match, 40 for a conductor match and
// 20 when insulation thickness falls within tolerance of the requested value.
func Score(requested rfp.Specs, product rfp.ProductSpecs) int {
	score := 0

	if sameText(requested.String(rfp.SpecVoltage), product.Voltage) {
		score += voltageWeight
	}
	if sameText(requested.String(rfp.SpecConductor), product.Conductor) {
		score += conductorWeight
	}

	want := requested.Number(rfp.SpecInsulationThickness)
	if math.Abs(want-product.InsulationThicknessMM) <= insulationTolerance(want)+1e-9 {
		score += insulationWeight
	}

	return score
}

func insulationTolerance(requested float64) float64 {
	if requested <= 0 {
		return minInsulationTolerance
	}
	return math.Max(minInsulationTolerance, insulationToleranceRel*requested)
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// MatchItem scores the whole catalog against one item and keeps the best
// TopN, ordered by score descending then SKU ascending.
func (m *Matcher) MatchItem(item rfp.TechnicalItem) rfp.ItemMatch {
	candidates := make([]rfp.MatchCandidate, 0, len(m.products))
	for _, p := range m.products {
		candidates = append(candidates, rfp.MatchCandidate{
			SKU:          p.SKU,
			ProductSpecs: p.Specs,
			SpecMatchPct: Score(item.Specs, p.Specs),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].SpecMatchPct != candidates[j].SpecMatchPct {
			return candidates[i].SpecMatchPct > candidates[j].SpecMatchPct
		}
		return candidates[i].SKU < candidates[j].SKU
	})

	if len(candidates) > TopN {
		candidates = candidates[:TopN]
	}

	return rfp.ItemMatch{
		ItemID:  item.ItemID,
		RFPItem: item.Description,
		Top3:    candidates,
	}
}

// ProcessScope matches every scope item in order and returns the audit lines
// it produced alongside the result.
func (m *Matcher) ProcessScope(summary rfp.TechnicalSummary) (rfp.TechnicalMatch, audit.Log) {
	var log audit.Log
	result := rfp.TechnicalMatch{Items: make([]rfp.ItemMatch, 0, len(summary.Scope))}

	for _, item := range summary.Scope {
		log.Addf("✔ Matching item %s (%s)", item.ItemID, item.Description)

		matched := m.MatchItem(item)
		log.Addf("✔ Found %d matching SKUs", len(matched.Top3))

		if len(matched.Top3) > 0 {
			metrics.TopMatchScore.Observe(float64(matched.Top3[0].SpecMatchPct))
		} else {
			logger.Warn("No catalog candidates for scope item",
				zap.String("rfp_id", summary.ID.String()),
				zap.String("item_id", item.ItemID.String()),
			)
		}

		result.Items = append(result.Items, matched)
	}

	logger.Debug("Scope matched",
		zap.String("rfp_id", summary.ID.String()),
		zap.Int("items", len(result.Items)),
		zap.Int("catalog_size", len(m.products)),
	)

	return result, log
}
