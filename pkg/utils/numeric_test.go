package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloatOr(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback float64
		want     float64
	}{
		{name: "plain", input: "12.5", want: 12.5},
		{name: "padded", input: "  7 ", want: 7},
		{name: "comma grouped", input: "1,250.50", want: 1250.5},
		{name: "empty", input: "", fallback: 3, want: 3},
		{name: "garbage", input: "n/a", want: 0},
		{name: "nan", input: "NaN", fallback: -1, want: -1},
		{name: "infinity", input: "+Inf", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFloatOr(tt.input, tt.fallback))
		})
	}
}

func TestAsFloat(t *testing.T) {
	assert.Equal(t, 2.0, AsFloat(2.0, 0))
	assert.Equal(t, 4.0, AsFloat(4, 0))
	assert.Equal(t, 1.5, AsFloat("1.5", 0))
	assert.Equal(t, 9.0, AsFloat(json.Number("9"), 0))
	assert.Equal(t, 0.0, AsFloat(nil, 0))
	assert.Equal(t, 0.0, AsFloat(true, 0))
	assert.Equal(t, 1.0, AsFloat(math.NaN(), 1))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "50", FormatFloat(50))
	assert.Equal(t, "0", FormatFloat(0))
	assert.Equal(t, "1250.5", FormatFloat(1250.5))
}

func TestShortHash(t *testing.T) {
	full := HashString("https://example.com/rfp.pdf")
	assert.Len(t, full, 32)
	assert.Equal(t, full[:12], ShortHash("https://example.com/rfp.pdf", 12))
	assert.Equal(t, full, ShortHash("https://example.com/rfp.pdf", 0))
}
