package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfp-agent/backend/internal/rfp"
)

func TestExtractField(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		labels []string
		want   string
	}{
		{
			name:   "label is case-insensitive, value keeps case",
			text:   "RFP Title: Supply of 11kV Cables\nDue Date: 2025-03-31",
			labels: titleLabels,
			want:   "Supply of 11kV Cables",
		},
		{
			name:   "due date",
			text:   "RFP Title: Supply of 11kV Cables\nDue Date: 2025-03-31",
			labels: dueLabels,
			want:   "2025-03-31",
		},
		{
			name:   "leading punctuation stripped",
			text:   "Request for Proposal - Cable Works\n",
			labels: titleLabels,
			want:   "Cable Works",
		},
		{
			name:   "empty value falls through to next label",
			text:   "Title:\nDue: next Friday",
			labels: []string{"title:", "due:"},
			want:   "next Friday",
		},
		{
			name:   "no label",
			text:   "nothing useful here",
			labels: titleLabels,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractField(tt.text, tt.labels))
		})
	}
}

func TestExtractScope(t *testing.T) {
	text := "Scope of Supply\n" +
		"Item 1: XLPE power cable\n" +
		"Voltage: 11kV, Conductor: Copper, Insulation: 2.5 mm\n" +
		"\n" +
		"Item 2: LV cable\n" +
		"Insulation thickness 1.2mm\n" +
		"Conductor: Aluminium\n" +
		"\n" +
		"Notes: insulation to be XLPE\n"

	items := ExtractScope(text)
	require.Len(t, items, 2)

	assert.Equal(t, rfp.ID("1"), items[0].ItemID)
	assert.Equal(t, "Item 1: XLPE power cable", items[0].Description)
	assert.Equal(t, "11kV", items[0].Specs[rfp.SpecVoltage])
	assert.Equal(t, "Copper", items[0].Specs[rfp.SpecConductor])
	assert.Equal(t, 2.5, items[0].Specs[rfp.SpecInsulationThickness])
	assert.Equal(t, rfp.Quantity(1), items[0].QuantityKM)

	assert.Equal(t, rfp.ID("2"), items[1].ItemID)
	assert.Equal(t, "Item 2: LV cable", items[1].Description)
	assert.Equal(t, "Aluminium", items[1].Specs[rfp.SpecConductor])
	assert.Equal(t, 1.2, items[1].Specs[rfp.SpecInsulationThickness])
	assert.NotContains(t, items[1].Specs, rfp.SpecVoltage)
}

func TestExtractScope_Edges(t *testing.T) {
	t.Run("voltage units are normalised", func(t *testing.T) {
		items := ExtractScope("Cable A\nVoltage: 230 V\nCable B\nRated voltage 1.1 KV")
		require.Len(t, items, 2)
		assert.Equal(t, "230V", items[0].Specs[rfp.SpecVoltage])
		assert.Equal(t, "1.1kV", items[1].Specs[rfp.SpecVoltage])
	})

	t.Run("voltage followed by a unit suffix", func(t *testing.T) {
		items := ExtractScope("Cable A\nRated voltage: 230VAC\nConductor: copper")
		require.Len(t, items, 2)
		assert.Equal(t, "Cable A", items[0].Description)
		assert.Equal(t, "230V", items[0].Specs[rfp.SpecVoltage])
		assert.Equal(t, "Rated voltage: 230VAC", items[1].Description)
		assert.Equal(t, "Copper", items[1].Specs[rfp.SpecConductor])
	})

	t.Run("description falls back to item number", func(t *testing.T) {
		items := ExtractScope("Voltage: 33kV")
		require.Len(t, items, 1)
		assert.Equal(t, "Item 1", items[0].Description)
	})

	t.Run("lookback is limited", func(t *testing.T) {
		items := ExtractScope("Cable A\n\n\n\nVoltage 11kV")
		require.Len(t, items, 1)
		assert.Equal(t, "Item 1", items[0].Description)
	})

	t.Run("insulation alone never completes an item", func(t *testing.T) {
		assert.Empty(t, ExtractScope("Cable\nInsulation 3 mm\nInsulation colour red"))
	})

	t.Run("keyword without a value", func(t *testing.T) {
		assert.Empty(t, ExtractScope("Voltage to be confirmed\nConductor TBD"))
	})

	t.Run("empty text", func(t *testing.T) {
		items := ExtractScope("")
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestSplitTests(t *testing.T) {
	assert.Equal(t, []string{"Dielectric Test", "Salt Spray", "Bend"}, splitTests("Dielectric Test; Salt Spray, Bend ,"))
	assert.Equal(t, []string{}, splitTests(""))
}
