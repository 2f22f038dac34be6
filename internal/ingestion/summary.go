package ingestion

import "github.com/rfp-agent/backend/internal/rfp"

// SummarizeForMatching projects an RFP onto what catalog matching needs.
func SummarizeForMatching(doc rfp.RFP) rfp.TechnicalSummary {
	summary := rfp.TechnicalSummary{
		ID:      doc.ID,
		Title:   doc.Title,
		DueDate: doc.DueDate,
		Scope:   make([]rfp.TechnicalItem, 0, len(doc.Scope)),
	}

	for _, item := range doc.Scope {
		specs := item.Specs
		if specs == nil {
			specs = rfp.Specs{}
		}
		summary.Scope = append(summary.Scope, rfp.TechnicalItem{
			ItemID:      item.ItemID,
			Description: item.Description,
			Specs:       specs,
		})
	}

	return summary
}

// SummarizeForPricing projects an RFP onto required tests and per-item quantities.
func SummarizeForPricing(doc rfp.RFP) rfp.PricingSummary {
	tests := doc.Tests
	if tests == nil {
		tests = []string{}
	}

	summary := rfp.PricingSummary{
		ID:         doc.ID,
		Title:      doc.Title,
		Tests:      tests,
		Quantities: make([]rfp.QuantityEntry, 0, len(doc.Scope)),
	}

	for _, item := range doc.Scope {
		summary.Quantities = append(summary.Quantities, rfp.QuantityEntry{
			ItemID:     item.ItemID,
			QuantityKM: item.RequestedQuantity(),
		})
	}

	return summary
}
