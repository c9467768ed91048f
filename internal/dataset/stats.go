package dataset

import (
	"sort"
	"strings"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// SmallPlanetRadius is the upper bound, in Earth radii, of a "small" planet.
const SmallPlanetRadius = 1.5

// Habitable-zone proxy bounds.
const (
	EarthLikeMinRadius = 0.8
	EarthLikeMaxRadius = 1.5
	EarthLikeMinTeq    = 180.0
	EarthLikeMaxTeq    = 310.0
)

// Disposition buckets.
const (
	DispositionConfirmed     = "CONFIRMED"
	DispositionCandidate     = "CANDIDATE"
	DispositionFalsePositive = "FALSE POSITIVE"
	DispositionOther         = "OTHER"
)

// Dispositions lists the buckets in display order.
var Dispositions = []string{DispositionConfirmed, DispositionCandidate, DispositionFalsePositive, DispositionOther}

// YearCount is one bar of the discovery histogram.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// YearHistogram counts rows per discovery year, ascending. Rows without a
// year are skipped.
func YearHistogram(rows []model.CanonicalRow) []YearCount {
	counts := make(map[int]int)
	for _, r := range rows {
		if r.DiscoveryYear != nil {
			counts[*r.DiscoveryYear]++
		}
	}
	out := make([]YearCount, 0, len(counts))
	for y, c := range counts {
		out = append(out, YearCount{Year: y, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Summary holds the headline KPIs of a table.
type Summary struct {
	Total                  int            `json:"total"`
	Named                  int            `json:"named"`
	WithYear               int            `json:"withYear"`
	Small                  int            `json:"small"`
	DerivedSemiMajorAxis   int            `json:"derivedSemiMajorAxis"`
	DerivedEquilibriumTemp int            `json:"derivedEquilibriumTemp"`
	EarthLike              int            `json:"earthLike"`
	Dispositions           map[string]int `json:"dispositions"`
}

// Summarize computes the KPIs for rows.
func Summarize(rows []model.CanonicalRow) Summary {
	s := Summary{Total: len(rows), Dispositions: make(map[string]int, len(Dispositions))}
	for _, d := range Dispositions {
		s.Dispositions[d] = 0
	}
	for i := range rows {
		r := &rows[i]
		if r.Name != nil {
			s.Named++
		}
		if r.DiscoveryYear != nil {
			s.WithYear++
		}
		if r.Radius != nil && *r.Radius <= SmallPlanetRadius {
			s.Small++
		}
		if r.SemiMajorAxisDerived {
			s.DerivedSemiMajorAxis++
		}
		if r.EquilibriumTempDerived {
			s.DerivedEquilibriumTemp++
		}
		if IsEarthLike(r) {
			s.EarthLike++
		}
		s.Dispositions[Disposition(r.Label)]++
	}
	return s
}

// Disposition buckets a free-text label by substring of its upper-cased form.
// Rules apply in order CONFIRMED, CANDIDATE, FALSE, so "NOT CONFIRMED" is
// confirmed.
func Disposition(label string) string {
	u := strings.ToUpper(label)
	switch {
	case strings.Contains(u, "CONFIRMED"):
		return DispositionConfirmed
	case strings.Contains(u, "CANDIDATE"):
		return DispositionCandidate
	case strings.Contains(u, "FALSE"):
		return DispositionFalsePositive
	default:
		return DispositionOther
	}
}

// GroupByDisposition splits rows into the four disposition buckets.
func GroupByDisposition(rows []model.CanonicalRow) map[string][]model.CanonicalRow {
	out := make(map[string][]model.CanonicalRow, len(Dispositions))
	for _, d := range Dispositions {
		out[d] = nil
	}
	for _, r := range rows {
		d := Disposition(r.Label)
		out[d] = append(out[d], r)
	}
	return out
}

// IsEarthLike reports whether r falls inside the Earth-like radius and
// temperature window. Both values must be present.
func IsEarthLike(r *model.CanonicalRow) bool {
	if r.Radius == nil || r.EquilibriumTemp == nil {
		return false
	}
	rad, teq := *r.Radius, *r.EquilibriumTemp
	return rad >= EarthLikeMinRadius && rad <= EarthLikeMaxRadius &&
		teq >= EarthLikeMinTeq && teq <= EarthLikeMaxTeq
}

// EarthLike returns the Earth-like subset of rows.
func EarthLike(rows []model.CanonicalRow) []model.CanonicalRow {
	var out []model.CanonicalRow
	for i := range rows {
		if IsEarthLike(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}
