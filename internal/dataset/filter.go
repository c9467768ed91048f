package dataset

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Filter narrows the table. Zero fields do not constrain. Rows with an absent
// radius or year pass every bound on that column; only the name query drops
// rows that lack the value.
type Filter struct {
	Name      string   `json:"name,omitempty"`
	MinRadius *float64 `json:"minRadius,omitempty"`
	MaxRadius *float64 `json:"maxRadius,omitempty"`
	MinYear   *int     `json:"minYear,omitempty"`
	MaxYear   *int     `json:"maxYear,omitempty"`
}

// Match reports whether row passes f.
func (f Filter) Match(row *model.CanonicalRow) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Name)); q != "" {
		if row.Name == nil || !strings.Contains(strings.ToLower(*row.Name), q) {
			return false
		}
	}
	if f.MinRadius != nil && row.Radius != nil && *row.Radius < *f.MinRadius {
		return false
	}
	if f.MaxRadius != nil && row.Radius != nil && *row.Radius > *f.MaxRadius {
		return false
	}
	if f.MinYear != nil && row.DiscoveryYear != nil && *row.DiscoveryYear < *f.MinYear {
		return false
	}
	if f.MaxYear != nil && row.DiscoveryYear != nil && *row.DiscoveryYear > *f.MaxYear {
		return false
	}
	return true
}

// Apply returns the rows that pass f, in their original order.
func (f Filter) Apply(rows []model.CanonicalRow) []model.CanonicalRow {
	out := make([]model.CanonicalRow, 0, len(rows))
	for i := range rows {
		if f.Match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

// SortBy orders rows in place by a canonical column. Numbers compare
// numerically, text compares with numeric-aware, case-insensitive
// collation. Absent values always sort last.
func SortBy(rows []model.CanonicalRow, field model.FieldID, desc bool) error {
	if !field.IsKnown() {
		return eris.Errorf("dataset: unknown sort field %q", field)
	}

	if field.IsNumeric() {
		sort.SliceStable(rows, func(i, j int) bool {
			a, aok := rows[i].Float(field)
			b, bok := rows[j].Float(field)
			return less(aok, bok, func() bool {
				if desc {
					return a > b
				}
				return a < b
			})
		})
		return nil
	}

	col := collate.New(language.Arabic, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i].Text(field)
		b, bok := rows[j].Text(field)
		return less(aok, bok, func() bool {
			c := col.CompareString(a, b)
			if desc {
				return c > 0
			}
			return c < 0
		})
	})
	return nil
}

func less(aok, bok bool, cmp func() bool) bool {
	switch {
	case aok && bok:
		return cmp()
	case aok:
		return true
	default:
		return false
	}
}
