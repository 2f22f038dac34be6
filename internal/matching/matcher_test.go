package matching

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfp-agent/backend/internal/rfp"
)

func product(sku, voltage, conductor string, thickness float64) rfp.Product {
	return rfp.Product{SKU: sku, Specs: rfp.ProductSpecs{Voltage: voltage, Conductor: conductor, InsulationThicknessMM: thickness}}
}

func TestScore(t *testing.T) {
	p := rfp.ProductSpecs{Voltage: "11kV", Conductor: "Copper", InsulationThicknessMM: 2.0}

	tests := []struct {
		name  string
		specs rfp.Specs
		want  int
	}{
		{name: "exact", specs: rfp.Specs{"voltage": "11kV", "conductor": "Copper", "insulation_thickness_mm": 2.0}, want: 100},
		{name: "case and whitespace", specs: rfp.Specs{"voltage": " 11KV ", "conductor": "copper", "insulation_thickness_mm": 2.0}, want: 100},
		{name: "voltage only", specs: rfp.Specs{"voltage": "11kV", "conductor": "Aluminium", "insulation_thickness_mm": 5.0}, want: 40},
		{name: "conductor and insulation", specs: rfp.Specs{"voltage": "33kV", "conductor": "COPPER", "insulation_thickness_mm": 2.3}, want: 60},
		{name: "relative tolerance edge", specs: rfp.Specs{"insulation_thickness_mm": 2.4}, want: 20},
		{name: "outside tolerance", specs: rfp.Specs{"insulation_thickness_mm": 2.6}, want: 0},
		{name: "thickness as string", specs: rfp.Specs{"voltage": "11kV", "insulation_thickness_mm": "2"}, want: 60},
		{name: "unparseable thickness is zero", specs: rfp.Specs{"insulation_thickness_mm": "thick"}, want: 0},
		{name: "numeric voltage", specs: rfp.Specs{"voltage": 11.0}, want: 0},
		{name: "unknown keys ignored", specs: rfp.Specs{"colour": "red", "voltage": "11kV"}, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.specs, p))
		})
	}
}

func TestScore_AbsoluteToleranceWhenRequestedZero(t *testing.T) {
	thin := rfp.ProductSpecs{InsulationThicknessMM: 0.2}
	assert.Equal(t, 20, Score(rfp.Specs{"voltage": "x", "conductor": "y"}, thin))

	thick := rfp.ProductSpecs{InsulationThicknessMM: 0.3}
	assert.Equal(t, 0, Score(rfp.Specs{"voltage": "x", "conductor": "y"}, thick))
}

func TestScore_RangeAndCaseSymmetry(t *testing.T) {
	products := []rfp.ProductSpecs{
		{Voltage: "11kV", Conductor: "Copper", InsulationThicknessMM: 2},
		{Voltage: "1.1kV", Conductor: "Aluminium", InsulationThicknessMM: 0.8},
		{},
	}
	specs := []rfp.Specs{
		{"voltage": "11kV", "conductor": "Copper", "insulation_thickness_mm": 2.0},
		{"voltage": "1.1KV", "conductor": "aluminium"},
		{},
	}
	allowed := map[int]bool{0: true, 20: true, 40: true, 60: true, 80: true, 100: true}

	for _, p := range products {
		for _, s := range specs {
			got := Score(s, p)
			assert.True(t, allowed[got], "unexpected score %d", got)

			upper := rfp.Specs{}
			for k, v := range s {
				if str, ok := v.(string); ok {
					upper[k] = strings.ToUpper(str)
				} else {
					upper[k] = v
				}
			}
			assert.Equal(t, got, Score(upper, p))
		}
	}
}

func TestMatchItem_SingleProductScenario(t *testing.T) {
	m := NewMatcher([]rfp.Product{product("A1", "11kV", "Copper", 2.0)})

	got := m.MatchItem(rfp.TechnicalItem{
		ItemID:      "1",
		Description: "MV cable",
		Specs:       rfp.Specs{"voltage": "11kV", "conductor": "Copper", "insulation_thickness_mm": 2.0},
	})

	require.Len(t, got.Top3, 1)
	assert.Equal(t, "A1", got.Top3[0].SKU)
	assert.Equal(t, 100, got.Top3[0].SpecMatchPct)
	assert.Equal(t, rfp.ID("1"), got.ItemID)
	assert.Equal(t, "MV cable", got.RFPItem)
}

func TestMatchItem_OrderingAndTieBreak(t *testing.T) {
	catalog := []rfp.Product{
		product("C3", "11kV", "Aluminium", 9),
		product("B2", "11kV", "Copper", 9),
		product("A9", "11kV", "Aluminium", 9),
		product("Z1", "11kV", "Copper", 2),
		product("E5", "", "", 0),
	}
	item := rfp.TechnicalItem{ItemID: "1", Specs: rfp.Specs{"voltage": "11kV", "conductor": "Copper", "insulation_thickness_mm": 2.0}}

	got := NewMatcher(catalog).MatchItem(item)
	require.Len(t, got.Top3, 3)
	assert.Equal(t, []string{"Z1", "B2", "A9"}, []string{got.Top3[0].SKU, got.Top3[1].SKU, got.Top3[2].SKU})
	assert.Equal(t, []int{100, 80, 40}, []int{got.Top3[0].SpecMatchPct, got.Top3[1].SpecMatchPct, got.Top3[2].SpecMatchPct})

	reversed := make([]rfp.Product, len(catalog))
	for i, p := range catalog {
		reversed[len(catalog)-1-i] = p
	}
	assert.Equal(t, got, NewMatcher(reversed).MatchItem(item))
}

func TestMatchItem_EmptySpecProductScoresZero(t *testing.T) {
	m := NewMatcher([]rfp.Product{product("EMPTY", "", "", 0)})
	got := m.MatchItem(rfp.TechnicalItem{Specs: rfp.Specs{"voltage": "11kV", "conductor": "Copper", "insulation_thickness_mm": 2.0}})

	require.Len(t, got.Top3, 1)
	assert.Equal(t, 0, got.Top3[0].SpecMatchPct)
}

func TestMatchItem_EmptyCatalog(t *testing.T) {
	got := NewMatcher(nil).MatchItem(rfp.TechnicalItem{ItemID: "1"})
	assert.NotNil(t, got.Top3)
	assert.Empty(t, got.Top3)
}

func TestProcessScope_PreservesOrderAndLogs(t *testing.T) {
	m := NewMatcher([]rfp.Product{
		product("A1", "11kV", "Copper", 2.0),
		product("B1", "33kV", "Aluminium", 4.0),
	})
	summary := rfp.TechnicalSummary{
		ID: "RFP-1",
		Scope: []rfp.TechnicalItem{
			{ItemID: "2", Description: "HV feeder", Specs: rfp.Specs{"voltage": "33kV"}},
			{ItemID: "1", Description: "MV feeder", Specs: rfp.Specs{"voltage": "11kV"}},
		},
	}

	got, log := m.ProcessScope(summary)

	require.Len(t, got.Items, 2)
	assert.Equal(t, rfp.ID("2"), got.Items[0].ItemID)
	assert.Equal(t, "B1", got.Items[0].Top3[0].SKU)
	assert.Equal(t, rfp.ID("1"), got.Items[1].ItemID)
	assert.Equal(t, "A1", got.Items[1].Top3[0].SKU)

	assert.Equal(t, []string{
		"✔ Matching item 2 (HV feeder)",
		"✔ Found 2 matching SKUs",
		"✔ Matching item 1 (MV feeder)",
		"✔ Found 2 matching SKUs",
	}, log.Lines())
}

func TestReadCatalog(t *testing.T) {
	data := "sku,voltage,conductor,insulation_thickness_mm\n" +
		"A1,11kV,Copper,2.0\n" +
		"B2, 1.1kV ,Aluminium,n/a\n" +
		"C3,33kV\n"

	products, err := ReadCatalog(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, products, 3)

	assert.Equal(t, product("A1", "11kV", "Copper", 2.0), products[0])
	assert.Equal(t, product("B2", "1.1kV", "Aluminium", 0), products[1])
	assert.Equal(t, product("C3", "33kV", "", 0), products[2])
}

func TestReadCatalog_Empty(t *testing.T) {
	products, err := ReadCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, products)
}
