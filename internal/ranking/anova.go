// Package ranking scores numeric features by how well they separate the
// classes of a categorical target, using one-way ANOVA.
package ranking

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMinSamples is the smallest number of valid samples a feature needs
// before it is scored.
const DefaultMinSamples = 10

// Result is the one-way ANOVA outcome for a single feature.
type Result struct {
	F          float64
	PValue     float64
	SampleSize int
	Groups     int
}

// FScore runs one-way ANOVA over pre-bucketed samples. Degrees of freedom
// are floored at one. A zero within-group mean square yields F = 0 and a
// p-value of 1. Buckets are summed in key order so repeated calls agree
// bit for bit.
func FScore(groups map[string][]float64) Result {
	keys := make([]string, 0, len(groups))
	for key, xs := range groups {
		if len(xs) > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var all []float64
	k := len(keys)
	for _, key := range keys {
		all = append(all, groups[key]...)
	}
	n := len(all)
	res := Result{SampleSize: n, Groups: k, PValue: 1}
	if n == 0 {
		return res
	}

	grand := stat.Mean(all, nil)
	var ssb, ssw float64
	for _, key := range keys {
		xs := groups[key]
		m := stat.Mean(xs, nil)
		d := m - grand
		ssb += float64(len(xs)) * d * d
		for _, x := range xs {
			e := x - m
			ssw += e * e
		}
	}

	dfb := float64(max(k-1, 1))
	dfw := float64(max(n-k, 1))
	msw := ssw / dfw
	if msw == 0 {
		return res
	}

	res.F = (ssb / dfb) / msw
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		res.F = 0
		return res
	}
	res.PValue = distuv.F{D1: dfb, D2: dfw}.Survival(res.F)
	return res
}
