package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

var yearRe = regexp.MustCompile(`[0-9]{4}`)

// ToNumber coerces a cell to a finite float. A single decimal comma is
// accepted ("1,5" → 1.5). Empty, unparseable and non-finite inputs are absent.
func ToNumber(v model.Value) (float64, bool) {
	if v.IsEmpty() {
		return 0, false
	}
	if f, ok := v.Number(); ok {
		return f, isFinite(f)
	}

	s := strings.TrimSpace(v.String())
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(f) {
		return 0, false
	}
	return f, true
}

// ToYear extracts the first four-digit run from a cell ("Discovered 2014" →
// 2014, "2014-06" → 2014). Inputs without one are absent.
func ToYear(v model.Value) (int, bool) {
	if v.IsEmpty() {
		return 0, false
	}
	m := yearRe.FindString(v.String())
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
