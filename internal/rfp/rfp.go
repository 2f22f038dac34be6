// Package rfp holds the data contracts shared by every pipeline stage:
// the incoming RFP document, the role summaries derived from it, and the
// match, pricing and report shapes produced downstream.
package rfp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rfp-agent/backend/pkg/utils"
)

var ErrMalformedDocument = errors.New("malformed RFP document")

// ID is an identifier that may arrive as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Quantity decodes leniently: numbers, numeric strings and null are accepted,
// anything unparseable becomes 0 and is later resolved to the default.
type Quantity float64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*q = 0
		return nil
	}
	*q = Quantity(utils.AsFloat(raw, 0))
	return nil
}

// Specs maps a spec name (voltage, conductor, insulation_thickness_mm, ...)
// to a string or numeric value.
type Specs map[string]interface{}

const (
	SpecVoltage             = "voltage"
	SpecConductor           = "conductor"
	SpecInsulationThickness = "insulation_thickness_mm"
	SpecQuantity            = "quantity_km"
)

// String renders the value under key as text; absent keys give "".
func (s Specs) String(key string) string {
	switch v := s[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return utils.FormatFloat(v)
	default:
		return fmt.Sprint(v)
	}
}

// Number returns the numeric value under key, 0 when absent or unparseable.
func (s Specs) Number(key string) float64 {
	return utils.AsFloat(s[key], 0)
}

type ScopeItem struct {
	ItemID      ID       `json:"item_id"`
	Description string   `json:"description"`
	Specs       Specs    `json:"specs"`
	QuantityKM  Quantity `json:"quantity_km,omitempty"`
}

// RequestedQuantity is the item-level quantity, then the quantity nested in
// specs, then 1.
func (s ScopeItem) RequestedQuantity() float64 {
	if s.QuantityKM > 0 {
		return float64(s.QuantityKM)
	}
	if q := s.Specs.Number(SpecQuantity); q > 0 {
		return q
	}
	return 1
}

type RFP struct {
	ID      ID          `json:"id"`
	Title   string      `json:"title"`
	DueDate string      `json:"due_date"`
	Scope   []ScopeItem `json:"scope"`
	Tests   []string    `json:"tests"`
}

// Parse decodes a structured RFP document. Any decoding failure is reported
// as ErrMalformedDocument.
func Parse(data []byte) (*RFP, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}

	var doc RFP
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// Document is an RFP held by a local store, addressed by its file or record name.
type Document struct {
	Name string
	RFP  RFP
}

// DiscoveryRecord is one result of scanning a source location. RFP is nil
// when the location could not be resolved to a document.
type DiscoveryRecord struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
	Source  string `json:"source"`
	RFP     *RFP   `json:"rfp"`
}
