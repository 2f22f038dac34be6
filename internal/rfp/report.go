package rfp

// TechnicalSummary is the view of an RFP handed to catalog matching.
type TechnicalSummary struct {
	ID      ID              `json:"id"`
	Title   string          `json:"title"`
	DueDate string          `json:"due_date"`
	Scope   []TechnicalItem `json:"scope"`
}

type TechnicalItem struct {
	ItemID      ID     `json:"item_id"`
	Description string `json:"description"`
	Specs       Specs  `json:"specs"`
}

// PricingSummary is the view of an RFP handed to cost estimation.
type PricingSummary struct {
	ID         ID              `json:"id"`
	Title      string          `json:"title"`
	Tests      []string        `json:"tests"`
	Quantities []QuantityEntry `json:"quantities"`
}

type QuantityEntry struct {
	ItemID     ID      `json:"item_id"`
	QuantityKM float64 `json:"quantity_km"`
}

type ProductSpecs struct {
	Voltage               string  `json:"voltage"`
	Conductor             string  `json:"conductor"`
	InsulationThicknessMM float64 `json:"insulation_thickness_mm"`
}

type Product struct {
	SKU   string
	Specs ProductSpecs
}

type MatchCandidate struct {
	SKU          string       `json:"sku"`
	ProductSpecs ProductSpecs `json:"product_specs"`
	SpecMatchPct int          `json:"spec_match_pct"`
}

type ItemMatch struct {
	ItemID  ID               `json:"item_id"`
	RFPItem string           `json:"rfp_item"`
	Top3    []MatchCandidate `json:"top3"`
}

type TechnicalMatch struct {
	Items []ItemMatch `json:"items"`
}

type SpecComparison struct {
	ItemID     ID               `json:"item_id"`
	RFPItem    string           `json:"rfp_item"`
	RFPSpecs   Specs            `json:"rfp_specs"`
	Candidates []MatchCandidate `json:"candidates"`
}

// PricingEntry is one costed line. SKUSelected is nil when the item had no candidates.
type PricingEntry struct {
	ItemID       ID      `json:"item_id"`
	RFPItem      string  `json:"rfp_item"`
	SKUSelected  *string `json:"sku_selected"`
	UnitPrice    float64 `json:"unit_price"`
	Qty          float64 `json:"qty"`
	MaterialCost float64 `json:"material_cost"`
	TestCost     float64 `json:"test_cost"`
	TestDetails  string  `json:"test_details"`
	TotalCost    float64 `json:"total_cost"`
}

type PricingOutput struct {
	PricingTable []PricingEntry `json:"pricing_table"`
}

// GrandTotal sums TotalCost across the table.
func (p PricingOutput) GrandTotal() float64 {
	var total float64
	for _, e := range p.PricingTable {
		total += e.TotalCost
	}
	return total
}

type SalesSummary struct {
	ForTechnical TechnicalSummary `json:"for_technical"`
	ForPricing   PricingSummary   `json:"for_pricing"`
}

// Report is the terminal output of one pipeline run.
type Report struct {
	RunID          string           `json:"run_id"`
	RFPID          ID               `json:"rfp_id"`
	RFPTitle       string           `json:"rfp_title"`
	DueDate        string           `json:"due_date"`
	SalesSummary   SalesSummary     `json:"sales_summary"`
	TechnicalMatch TechnicalMatch   `json:"technical_match"`
	SpecComparison []SpecComparison `json:"spec_comparison"`
	Pricing        PricingOutput    `json:"pricing"`
	Logs           []string         `json:"logs"`
}

// SalesInsight is the qualitative sales-fit view of an RFP.
type SalesInsight struct {
	BusinessRequirements []string `json:"business_requirements"`
	Budget               string   `json:"budget"`
	Timeline             string   `json:"timeline"`
	SalesFitScore        int      `json:"sales_fit_score"`
}
