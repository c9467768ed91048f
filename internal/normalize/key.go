// Package normalize maps heterogeneous exoplanet table rows onto the
// canonical row schema and fills in physically derived quantities.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// NormalizeKey folds a column header into its comparison form:
// BOM stripped, NBSP as space, NFKC composed, lower-cased, and reduced to
// letters, digits and underscores. Arabic and other non-Latin letters survive.
//
// "Period (d)" → "periodd", " PERIOD " → "period", "نصف القطر" → "نصفالقطر"
func NormalizeKey(s string) string {
	s = strings.ReplaceAll(s, "\uFEFF", "")
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index is a record keyed by normalized header. When two headers fold to the
// same key, the later column wins, even if its cell is empty.
type Index map[string]model.Value

// NewIndex builds the normalized lookup table for one record.
func NewIndex(rec model.RawRecord) Index {
	idx := make(Index, rec.Len())
	for _, f := range rec.Fields {
		idx[NormalizeKey(f.Key)] = f.Value
	}
	return idx
}

// Lookup returns the value of the first candidate, in priority order, whose
// normalized name is present with a non-empty value.
func (ix Index) Lookup(candidates ...string) model.Value {
	for _, c := range candidates {
		if v, ok := ix[NormalizeKey(c)]; ok && !v.IsEmpty() {
			return v
		}
	}
	return model.Absent()
}

// lookupFolded is Lookup for candidates that are already normalized.
func (ix Index) lookupFolded(keys []string) model.Value {
	for _, k := range keys {
		if v, ok := ix[k]; ok && !v.IsEmpty() {
			return v
		}
	}
	return model.Absent()
}

// Resolve returns the first non-empty value among candidates in rec.
func Resolve(rec model.RawRecord, candidates ...string) model.Value {
	return NewIndex(rec).Lookup(candidates...)
}
