package dataset

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/exoplanet-cli/internal/model"
)

// Columns extracts numeric columns as aligned slices. Absent cells are nil.
func Columns(rows []model.CanonicalRow, fields []model.FieldID) (map[model.FieldID][]*float64, error) {
	if err := checkNumeric(fields); err != nil {
		return nil, err
	}
	out := make(map[model.FieldID][]*float64, len(fields))
	for _, f := range fields {
		col := make([]*float64, len(rows))
		for i := range rows {
			if v, ok := rows[i].Float(f); ok {
				col[i] = &v
			}
		}
		out[f] = col
	}
	return out, nil
}

// CompleteCases returns, per field, the values of rows where every field is
// present. The returned slices share one length and row alignment.
func CompleteCases(rows []model.CanonicalRow, fields []model.FieldID) ([][]float64, error) {
	if err := checkNumeric(fields); err != nil {
		return nil, err
	}
	out := make([][]float64, len(fields))
	vals := make([]float64, len(fields))
rows:
	for i := range rows {
		for j, f := range fields {
			v, ok := rows[i].Float(f)
			if !ok {
				continue rows
			}
			vals[j] = v
		}
		for j := range fields {
			out[j] = append(out[j], vals[j])
		}
	}
	return out, nil
}

// Matrix is a symmetric correlation matrix over Fields.
type Matrix struct {
	Method string          `json:"method,omitempty"`
	Fields []model.FieldID `json:"fields"`
	Values [][]float64     `json:"values"`
}

// Correlation computes pairwise-complete Pearson correlations. A pair with
// fewer than two complete observations or zero variance correlates at 0.
func Correlation(rows []model.CanonicalRow, fields []model.FieldID) (Matrix, error) {
	if err := checkNumeric(fields); err != nil {
		return Matrix{}, err
	}
	m := Matrix{Fields: fields, Values: make([][]float64, len(fields))}
	for i := range fields {
		m.Values[i] = make([]float64, len(fields))
	}
	for i := range fields {
		for j := i; j < len(fields); j++ {
			c := pearson(rows, fields[i], fields[j])
			m.Values[i][j] = c
			m.Values[j][i] = c
		}
	}
	return m, nil
}

// CorrelationByMethod computes one matrix for all rows, labelled "All",
// followed by one per discovery method in name order. Rows without a method
// fall under model.DefaultLabel.
func CorrelationByMethod(rows []model.CanonicalRow, fields []model.FieldID) ([]Matrix, error) {
	all, err := Correlation(rows, fields)
	if err != nil {
		return nil, err
	}
	all.Method = "All"

	byMethod := make(map[string][]model.CanonicalRow)
	for _, r := range rows {
		byMethod[methodOf(&r)] = append(byMethod[methodOf(&r)], r)
	}
	methods := make([]string, 0, len(byMethod))
	for k := range byMethod {
		methods = append(methods, k)
	}
	sort.Strings(methods)

	out := []Matrix{all}
	for _, name := range methods {
		m, _ := Correlation(byMethod[name], fields)
		m.Method = name
		out = append(out, m)
	}
	return out, nil
}

func pearson(rows []model.CanonicalRow, a, b model.FieldID) float64 {
	var xs, ys []float64
	for i := range rows {
		x, xok := rows[i].Float(a)
		y, yok := rows[i].Float(b)
		if xok && yok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	c := stat.Correlation(xs, ys, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

func checkNumeric(fields []model.FieldID) error {
	if len(fields) == 0 {
		return eris.New("dataset: at least one column is required")
	}
	for _, f := range fields {
		if !f.IsNumeric() {
			return eris.Errorf("dataset: %q is not a numeric column", f)
		}
	}
	return nil
}

func methodOf(r *model.CanonicalRow) string {
	if r.DiscoveryMethod == nil || *r.DiscoveryMethod == "" {
		return model.DefaultLabel
	}
	return *r.DiscoveryMethod
}
