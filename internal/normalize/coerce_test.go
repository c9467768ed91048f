package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

func TestToNumber(t *testing.T) {
	tests := []struct {
		name string
		in   model.Value
		want float64
		ok   bool
	}{
		{"absent", model.Absent(), 0, false},
		{"empty", model.Str(""), 0, false},
		{"blank", model.Str("   "), 0, false},
		{"plain", model.Str("3.25"), 3.25, true},
		{"padded", model.Str(" 42 "), 42, true},
		{"decimal comma", model.Str("1,5"), 1.5, true},
		{"exponent", model.Str("1e3"), 1000, true},
		{"number", model.Num(2.5), 2.5, true},
		{"garbage", model.Str("abc"), 0, false},
		{"two commas", model.Str("1,234,5"), 0, false},
		{"nan string", model.Str("NaN"), 0, false},
		{"inf string", model.Str("Inf"), 0, false},
		{"nan number", model.Num(math.NaN()), 0, false},
		{"inf number", model.Num(math.Inf(1)), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestToYear(t *testing.T) {
	tests := []struct {
		name string
		in   model.Value
		want int
		ok   bool
	}{
		{"absent", model.Absent(), 0, false},
		{"plain", model.Str("2014"), 2014, true},
		{"date", model.Str("2014-06"), 2014, true},
		{"prose", model.Str("Discovered 2014"), 2014, true},
		{"number", model.Num(2009), 2009, true},
		{"short", model.Str("99"), 0, false},
		{"first run wins", model.Str("20151999"), 2015, true},
		{"none", model.Str("unknown"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToYear(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
