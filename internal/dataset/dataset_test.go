package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/normalize"
)

func ptr[T any](v T) *T { return &v }

func planet(name string, radius float64, year int, method string) model.CanonicalRow {
	return model.CanonicalRow{
		Name:            ptr(name),
		Label:           model.DefaultLabel,
		Radius:          ptr(radius),
		DiscoveryYear:   ptr(year),
		DiscoveryMethod: ptr(method),
	}
}

func sampleRows() []model.CanonicalRow {
	return []model.CanonicalRow{
		planet("Kepler-22 b", 2.1, 2011, "Transit"),
		planet("Proxima Cen b", 1.07, 2016, "Radial Velocity"),
		planet("TRAPPIST-1 e", 0.92, 2017, "Transit"),
		{Label: "CANDIDATE", Radius: ptr(11.0)},
	}
}

func names(rows []model.CanonicalRow) []string {
	var out []string
	for _, r := range rows {
		if r.Name == nil {
			out = append(out, "")
			continue
		}
		out = append(out, *r.Name)
	}
	return out
}

func TestSession_EmptyHasNoDataset(t *testing.T) {
	s := NewSession(nil, normalize.BatchOptions{})
	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestSession_LoadSwapsSnapshot(t *testing.T) {
	s := NewSession(nil, normalize.BatchOptions{})
	raw := []model.RawRecord{
		model.RecordOf("pl_name", "a", "pl_orbper", "365.25"),
		model.RecordOf("pl_name", "b"),
	}

	first, err := s.Load(context.Background(), "first.csv", raw)
	require.NoError(t, err)
	assert.Equal(t, "first.csv", first.Source)
	assert.Equal(t, "default", first.Dialect)
	assert.NotEmpty(t, first.ID)
	require.Len(t, first.Rows, 2)
	assert.InDelta(t, 1.0, *first.Rows[0].SemiMajorAxis, 1e-12)

	second, err := s.Load(context.Background(), "second.csv", raw[:1])
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, second, cur)
	// The old snapshot is untouched.
	assert.Len(t, first.Rows, 2)

	ev := Event(cur)
	assert.Equal(t, 1, ev.Rows)
	assert.Equal(t, "second.csv", ev.Source)
}

func TestSession_LoadCancelled(t *testing.T) {
	s := NewSession(nil, normalize.BatchOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx, "x", []model.RawRecord{model.RecordOf("a", "1")})
	assert.Error(t, err)
	_, err = s.Current()
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestSession_ConcurrentReaders(t *testing.T) {
	s := NewSession(nil, normalize.BatchOptions{})
	_, err := s.Load(context.Background(), "seed", []model.RawRecord{model.RecordOf("pl_name", "a")})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				snap, err := s.Current()
				assert.NoError(t, err)
				assert.Len(t, snap.Rows, len(snap.Raw))
			}
		}()
	}
	for range 10 {
		_, err := s.Load(context.Background(), "reload", []model.RawRecord{model.RecordOf("pl_name", "b"), model.RecordOf("pl_name", "c")})
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestFilter(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"Kepler-22 b", "Proxima Cen b", "TRAPPIST-1 e", ""}},
		{"name", Filter{Name: " kepler "}, []string{"Kepler-22 b"}},
		{"min radius", Filter{MinRadius: ptr(2.0)}, []string{"Kepler-22 b", ""}},
		{"max radius", Filter{MaxRadius: ptr(1.5)}, []string{"Proxima Cen b", "TRAPPIST-1 e"}},
		{"year range", Filter{MinYear: ptr(2012), MaxYear: ptr(2016)}, []string{"Proxima Cen b", ""}},
		{"absent year passes min", Filter{MinYear: ptr(3000)}, []string{""}},
		{"absent year passes max", Filter{MaxYear: ptr(1900)}, []string{""}},
		{"radius window", Filter{MinRadius: ptr(50.0), MaxRadius: ptr(60.0)}, nil},
		{"absent name fails query", Filter{Name: "e"}, []string{"Kepler-22 b", "Proxima Cen b", "TRAPPIST-1 e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(tt.filter.Apply(rows)))
		})
	}
}

func TestFilter_AbsentRadiusPassesBounds(t *testing.T) {
	row := model.CanonicalRow{Name: ptr("KOI-7016.01"), Label: "CANDIDATE"}
	f := Filter{MinRadius: ptr(0.5), MaxRadius: ptr(1.5)}
	assert.True(t, f.Match(&row))

	row.Radius = ptr(2.0)
	assert.False(t, f.Match(&row))
}

func TestSortBy_Numeric(t *testing.T) {
	rows := sampleRows()
	rows = append(rows, model.CanonicalRow{Name: ptr("no radius"), Label: model.DefaultLabel})

	require.NoError(t, SortBy(rows, model.FieldRadius, false))
	assert.Equal(t, []string{"TRAPPIST-1 e", "Proxima Cen b", "Kepler-22 b", "", "no radius"}, names(rows))

	require.NoError(t, SortBy(rows, model.FieldRadius, true))
	assert.Equal(t, []string{"", "Kepler-22 b", "Proxima Cen b", "TRAPPIST-1 e", "no radius"}, names(rows))
}

func TestSortBy_Text(t *testing.T) {
	rows := []model.CanonicalRow{
		{Name: ptr("Kepler-10 b")},
		{Name: ptr("kepler-2 b")},
		{},
		{Name: ptr("Alpha")},
	}
	require.NoError(t, SortBy(rows, model.FieldName, false))
	assert.Equal(t, []string{"Alpha", "kepler-2 b", "Kepler-10 b", ""}, names(rows))
}

func TestSortBy_UnknownField(t *testing.T) {
	assert.Error(t, SortBy(sampleRows(), model.FieldID("mass"), false))
}

func TestYearHistogram(t *testing.T) {
	rows := append(sampleRows(), planet("x", 1, 2011, "Transit"))
	assert.Equal(t, []YearCount{{2011, 2}, {2016, 1}, {2017, 1}}, YearHistogram(rows))
	assert.Empty(t, YearHistogram(nil))
}

func TestDisposition(t *testing.T) {
	tests := map[string]string{
		"CONFIRMED":      DispositionConfirmed,
		"confirmed":      DispositionConfirmed,
		"Candidate":      DispositionCandidate,
		"FALSE POSITIVE": DispositionFalsePositive,
		"false alarm":    DispositionFalsePositive,
		"Other":          DispositionOther,
		"":               DispositionOther,
		"NOT CONFIRMED":  DispositionConfirmed, // substring match, first rule wins
	}
	for in, want := range tests {
		assert.Equal(t, want, Disposition(in), in)
	}
}

func TestSummarize(t *testing.T) {
	rows := sampleRows()
	rows[2].EquilibriumTemp = ptr(251.0)
	rows[2].EquilibriumTempDerived = true
	rows[1].SemiMajorAxisDerived = true

	s := Summarize(rows)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Named)
	assert.Equal(t, 3, s.WithYear)
	assert.Equal(t, 2, s.Small)
	assert.Equal(t, 1, s.DerivedSemiMajorAxis)
	assert.Equal(t, 1, s.DerivedEquilibriumTemp)
	assert.Equal(t, 1, s.EarthLike)
	assert.Equal(t, map[string]int{
		DispositionConfirmed:     0,
		DispositionCandidate:     1,
		DispositionFalsePositive: 0,
		DispositionOther:         3,
	}, s.Dispositions)
}

func TestGroupByDisposition(t *testing.T) {
	g := GroupByDisposition(sampleRows())
	assert.Len(t, g, 4)
	assert.Len(t, g[DispositionCandidate], 1)
	assert.Len(t, g[DispositionOther], 3)
	assert.Empty(t, g[DispositionConfirmed])
}

func TestEarthLike(t *testing.T) {
	rows := []model.CanonicalRow{
		{Name: ptr("in"), Radius: ptr(1.0), EquilibriumTemp: ptr(255.0)},
		{Name: ptr("edge"), Radius: ptr(1.5), EquilibriumTemp: ptr(310.0)},
		{Name: ptr("hot"), Radius: ptr(1.0), EquilibriumTemp: ptr(700.0)},
		{Name: ptr("big"), Radius: ptr(2.0), EquilibriumTemp: ptr(255.0)},
		{Name: ptr("no teq"), Radius: ptr(1.0)},
	}
	assert.Equal(t, []string{"in", "edge"}, names(EarthLike(rows)))
}

func TestColumns(t *testing.T) {
	rows := sampleRows()
	cols, err := Columns(rows, []model.FieldID{model.FieldRadius, model.FieldDiscoveryYear})
	require.NoError(t, err)

	require.Len(t, cols[model.FieldRadius], 4)
	assert.InDelta(t, 2.1, *cols[model.FieldRadius][0], 1e-12)
	assert.Nil(t, cols[model.FieldDiscoveryYear][3])
	assert.InDelta(t, 2016, *cols[model.FieldDiscoveryYear][1], 1e-12)

	_, err = Columns(rows, []model.FieldID{model.FieldName})
	assert.Error(t, err)
	_, err = Columns(rows, nil)
	assert.Error(t, err)
}

func TestCompleteCases(t *testing.T) {
	out, err := CompleteCases(sampleRows(), []model.FieldID{model.FieldRadius, model.FieldDiscoveryYear})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []float64{2.1, 1.07, 0.92}, out[0])
	assert.Equal(t, []float64{2011, 2016, 2017}, out[1])
}

func TestCorrelation(t *testing.T) {
	rows := []model.CanonicalRow{
		{Period: ptr(1.0), Radius: ptr(2.0), DiscoveryYear: ptr(2000)},
		{Period: ptr(2.0), Radius: ptr(4.0), DiscoveryYear: ptr(2000)},
		{Period: ptr(3.0), Radius: ptr(6.0), DiscoveryYear: ptr(2000)},
		{Period: ptr(4.0)},
	}
	m, err := Correlation(rows, []model.FieldID{model.FieldPeriod, model.FieldRadius, model.FieldDiscoveryYear})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, m.Values[0][0], 1e-12)
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-12)
	assert.InDelta(t, 1.0, m.Values[1][0], 1e-12)
	// Constant year has zero variance.
	assert.Equal(t, 0.0, m.Values[0][2])
	assert.Equal(t, 0.0, m.Values[2][2])
}

func TestCorrelation_TooFewPairs(t *testing.T) {
	rows := []model.CanonicalRow{{Period: ptr(1.0), Radius: ptr(2.0)}}
	m, err := Correlation(rows, []model.FieldID{model.FieldPeriod, model.FieldRadius})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}}, m.Values)
}

func TestCorrelationByMethod(t *testing.T) {
	rows := []model.CanonicalRow{
		{Period: ptr(1.0), Radius: ptr(1.0), DiscoveryMethod: ptr("Transit")},
		{Period: ptr(2.0), Radius: ptr(2.0), DiscoveryMethod: ptr("Transit")},
		{Period: ptr(1.0), Radius: ptr(2.0)},
		{Period: ptr(2.0), Radius: ptr(1.0)},
	}
	ms, err := CorrelationByMethod(rows, []model.FieldID{model.FieldPeriod, model.FieldRadius})
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, "All", ms[0].Method)
	assert.Equal(t, model.DefaultLabel, ms[1].Method)
	assert.InDelta(t, -1.0, ms[1].Values[0][1], 1e-12)
	assert.Equal(t, "Transit", ms[2].Method)
	assert.InDelta(t, 1.0, ms[2].Values[0][1], 1e-12)
}

func TestYearMethodGrid(t *testing.T) {
	rows := append(sampleRows(), planet("y", 1, 2017, "Transit"))
	g := YearMethodGrid(rows)

	assert.Equal(t, []int{2011, 2016, 2017}, g.Years)
	assert.Equal(t, []string{model.DefaultLabel, "Radial Velocity", "Transit"}, g.Methods)
	assert.Equal(t, [][]int{
		{0, 0, 0},
		{0, 1, 0},
		{1, 0, 2},
	}, g.Counts)
}

func TestWriteCSV(t *testing.T) {
	rows := []model.CanonicalRow{
		{Name: ptr(`Kepler "22" b, prime`), Label: "CONFIRMED", Period: ptr(289.86), DiscoveryYear: ptr(2011)},
		{Label: model.DefaultLabel},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "name", recs[0][0])
	assert.Len(t, recs[0], len(model.AllFields))
	assert.Equal(t, `Kepler "22" b, prime`, recs[1][0])
	assert.Equal(t, "CONFIRMED", recs[1][1])
	assert.Equal(t, "2011", recs[1][5])
	assert.Equal(t, "289.86", recs[1][6])
	assert.Equal(t, "", recs[2][0])
	assert.Equal(t, "Other", recs[2][1])
}
