package dataset

import (
	"sort"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Grid counts discoveries per method (rows) and year (columns).
type Grid struct {
	Years   []int    `json:"years"`
	Methods []string `json:"methods"`
	Counts  [][]int  `json:"counts"`
}

// YearMethodGrid builds the method × year count surface. Every method seen
// gets a row, even when none of its rows carry a year.
func YearMethodGrid(rows []model.CanonicalRow) Grid {
	yset := make(map[int]struct{})
	mset := make(map[string]struct{})
	for i := range rows {
		if y := rows[i].DiscoveryYear; y != nil {
			yset[*y] = struct{}{}
		}
		mset[methodOf(&rows[i])] = struct{}{}
	}

	g := Grid{Years: make([]int, 0, len(yset)), Methods: make([]string, 0, len(mset))}
	for y := range yset {
		g.Years = append(g.Years, y)
	}
	for m := range mset {
		g.Methods = append(g.Methods, m)
	}
	sort.Ints(g.Years)
	sort.Strings(g.Methods)

	iy := make(map[int]int, len(g.Years))
	for i, y := range g.Years {
		iy[y] = i
	}
	im := make(map[string]int, len(g.Methods))
	for i, m := range g.Methods {
		im[m] = i
	}

	g.Counts = make([][]int, len(g.Methods))
	for i := range g.Counts {
		g.Counts[i] = make([]int, len(g.Years))
	}
	for i := range rows {
		y := rows[i].DiscoveryYear
		if y == nil {
			continue
		}
		g.Counts[im[methodOf(&rows[i])]][iy[*y]]++
	}
	return g
}
