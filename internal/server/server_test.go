package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/fetcher"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/normalize"
	"github.com/sells-group/exoplanet-cli/internal/store"
)

const archiveCSV = `pl_name,hostname,discoverymethod,disc_year,pl_orbper,pl_rade,st_teff,st_rad,disposition
Kepler-22 b,Kepler-22,Transit,2011,289.86,2.38,5518,0.98,CONFIRMED
TOI-700 d,TOI-700,Transit,2020,37.42,1.07,3480,0.42,CONFIRMED
Proxima Cen b,Proxima Cen,Radial Velocity,2016,11.19,1.07,3050,0.14,CONFIRMED
K00752.02,Kepler-227,Transit,2013,54.42,2.83,5455,0.93,FALSE POSITIVE
Nameless,,Imaging,,,,,,CANDIDATE
`

type fakeClient struct {
	settings model.APISettings
	records  []model.RawRecord
	err      error
	lastReq  model.PredictRequest
}

func (f *fakeClient) FetchRecords(context.Context) ([]model.RawRecord, error) {
	return f.records, f.err
}

func (f *fakeClient) Predict(_ context.Context, req model.PredictRequest) (*model.PredictResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	label, prob := "CONFIRMED", 0.87
	return &model.PredictResponse{Label: &label, Prob: &prob, Raw: map[string]any{"label": label, "prob": prob}}, nil
}

type testEnv struct {
	srv    *httptest.Server
	store  *store.SQLiteStore
	client *fakeClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	fc := &fakeClient{}
	s := New(Deps{
		Session:     dataset.NewSession(normalize.New(nil), normalize.BatchOptions{}),
		Store:       st,
		Loader:      &fetcher.Loader{},
		APIDefaults: model.APISettings{BaseURL: "https://api.example.org"},
		NewClient: func(s model.APISettings) api.Client {
			fc.settings = s
			return fc
		},
	})
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return &testEnv{srv: hs, store: st, client: fc}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) upload(t *testing.T) model.LoadEvent {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/datasets?name=ps.csv", archiveCSV)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.LoadEvent](t, resp)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestNoDatasetIs404(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/datasets/current", "/rows", "/features", "/summary", "/charts/years", "/export.csv"} {
		resp := e.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestUploadAndRows(t *testing.T) {
	e := newTestEnv(t)
	ev := e.upload(t)
	assert.Equal(t, "ps.csv", ev.Source)
	assert.Equal(t, 5, ev.Rows)

	resp := e.do(t, http.MethodGet, "/datasets/current", "")
	assert.Equal(t, ev.ID, decode[model.LoadEvent](t, resp).ID)

	resp = e.do(t, http.MethodGet, "/rows?max_radius=1.5&sort=discoveryYear&desc=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[rowsResponse](t, resp)
	require.Equal(t, 3, got.Total)
	assert.Equal(t, "TOI-700 d", *got.Rows[0].Name)
	assert.Equal(t, "Proxima Cen b", *got.Rows[1].Name)
	// No radius, no year: passes the bound and sorts last.
	assert.Equal(t, "Nameless", *got.Rows[2].Name)

	resp = e.do(t, http.MethodGet, "/rows?offset=1&limit=2", "")
	got = decode[rowsResponse](t, resp)
	assert.Equal(t, 5, got.Total)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "TOI-700 d", *got.Rows[0].Name)

	resp = e.do(t, http.MethodGet, "/rows?min_year=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	for _, q := range []string{"min_radius=NaN", "max_radius=Inf", "max_radius=-inf"} {
		resp = e.do(t, http.MethodGet, "/rows?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
	resp = e.do(t, http.MethodGet, "/rows?sort=colour", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	loads, err := e.store.ListLoads(context.Background(), store.LoadFilter{})
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, ev.ID, loads[0].ID)
}

func TestUploadRejectsLocalSource(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/datasets?source=/etc/passwd", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadBadBody(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/datasets?name=rows.json", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSummaryAndCharts(t *testing.T) {
	e := newTestEnv(t)
	e.upload(t)

	sum := decode[dataset.Summary](t, e.do(t, http.MethodGet, "/summary", ""))
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 4, sum.WithYear)
	assert.Equal(t, 1, sum.Dispositions[dataset.DispositionFalsePositive])

	years := decode[[]dataset.YearCount](t, e.do(t, http.MethodGet, "/charts/years", ""))
	require.Len(t, years, 4)
	assert.Equal(t, 2011, years[0].Year)

	grid := decode[dataset.Grid](t, e.do(t, http.MethodGet, "/charts/grid", ""))
	assert.Contains(t, grid.Methods, "Transit")

	disp := decode[map[string]int](t, e.do(t, http.MethodGet, "/charts/dispositions", ""))
	assert.Equal(t, 3, disp[dataset.DispositionConfirmed])
	assert.Equal(t, 1, disp[dataset.DispositionCandidate])
}

func TestColumnsAndCorrelation(t *testing.T) {
	e := newTestEnv(t)
	e.upload(t)

	cols := decode[map[string][]*float64](t, e.do(t, http.MethodGet, "/columns?fields=period,radius", ""))
	require.Len(t, cols["period"], 5)
	assert.Nil(t, cols["period"][4])

	complete := decode[map[string][]float64](t, e.do(t, http.MethodGet, "/columns?fields=period,radius&complete=true", ""))
	assert.Len(t, complete["radius"], 4)

	m := decode[dataset.Matrix](t, e.do(t, http.MethodGet, "/correlation?fields=period,radius", ""))
	assert.InDelta(t, 1.0, m.Values[0][0], 1e-9)

	ms := decode[[]dataset.Matrix](t, e.do(t, http.MethodGet, "/correlation?fields=period,radius&by_method=true", ""))
	assert.Equal(t, "All", ms[0].Method)

	resp := e.do(t, http.MethodGet, "/correlation?fields=name", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeatures(t *testing.T) {
	e := newTestEnv(t)
	e.upload(t)

	resp := e.do(t, http.MethodGet, "/features?target=disposition&features=pl_orbper,pl_rade&min_samples=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scores := decode[[]model.FeatureScore](t, resp)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.Equal(t, 4, s.SampleSize)
	}

	resp = e.do(t, http.MethodGet, "/features?mode=canonical&features=radius&min_samples=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scores = decode[[]model.FeatureScore](t, resp)
	require.Len(t, scores, 1)
	assert.Equal(t, "radius", scores[0].Feature)

	resp = e.do(t, http.MethodGet, "/features?mode=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	e.upload(t)

	resp := e.do(t, http.MethodGet, "/export.csv", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
}

func TestEarthLike(t *testing.T) {
	e := newTestEnv(t)
	e.upload(t)

	got := decode[rowsResponse](t, e.do(t, http.MethodGet, "/earth-like", ""))
	for _, r := range got.Rows {
		assert.True(t, dataset.IsEarthLike(&r))
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	got := decode[model.APISettings](t, e.do(t, http.MethodGet, "/settings", ""))
	assert.Equal(t, "https://api.example.org", got.BaseURL)
	assert.Equal(t, api.DefaultDataPath, got.DataPath)

	resp := e.do(t, http.MethodPut, "/settings", `{"base_url":"https://ml.example.org/","predict_path":"score"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got = decode[model.APISettings](t, resp)
	assert.Equal(t, "https://ml.example.org/", got.BaseURL)
	assert.Equal(t, "score", got.PredictPath)
	assert.Equal(t, api.DefaultDataPath, got.DataPath)

	resp = e.do(t, http.MethodPut, "/settings", `nope`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredict(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/predict", `{"period":9.48,"radius":2.26,"discoveryYear":2011,"discoveryMethod":null}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "CONFIRMED", body["label"])
	require.NotNil(t, e.client.lastReq.Period)
	assert.InDelta(t, 9.48, *e.client.lastReq.Period, 1e-9)
	assert.Nil(t, e.client.lastReq.DiscoveryMethod)
	assert.Equal(t, "https://api.example.org", e.client.settings.BaseURL)

	e.client.err = eris.New("upstream down")
	resp = e.do(t, http.MethodPost, "/predict", `{}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestLoadRemote(t *testing.T) {
	e := newTestEnv(t)
	e.client.records = []model.RawRecord{
		model.RecordOf("koi_period", 9.48, "predicted_label", "CONFIRMED"),
	}

	resp := e.do(t, http.MethodPost, "/datasets/remote", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	ev := decode[model.LoadEvent](t, resp)
	assert.Equal(t, "https://api.example.org/predictions", ev.Source)
	assert.Equal(t, 1, ev.Rows)

	loads := decode[[]model.LoadEvent](t, e.do(t, http.MethodGet, "/loads?limit=5", ""))
	require.Len(t, loads, 1)
	assert.Equal(t, ev.ID, loads[0].ID)
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)
	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, e.srv.URL+"/rows", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
		return resp
	}

	assert.Equal(t, "http://localhost:5173", preflight("http://localhost:5173").Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight("https://evil.example").Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginGuard_RejectsForeignWrites(t *testing.T) {
	e := newTestEnv(t)
	post := func(origin string) int {
		req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/datasets?name=ps.csv", strings.NewReader(archiveCSV))
		require.NoError(t, err)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, post("https://evil.example"))
	assert.Equal(t, http.StatusCreated, post("http://127.0.0.1:8080"))
	assert.Equal(t, http.StatusCreated, post(""))

	resp := e.do(t, http.MethodGet, "/datasets/current", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"http://localhost:*", "https://dash.example.org"}
	assert.True(t, originAllowed(patterns, "http://localhost:3000"))
	assert.True(t, originAllowed(patterns, "HTTPS://dash.example.org"))
	assert.False(t, originAllowed(patterns, "http://localhost.evil.example"))
	assert.False(t, originAllowed(patterns, "https://example.org"))
	assert.True(t, originAllowed([]string{"*"}, "https://anything.example"))
}

func TestPage(t *testing.T) {
	rows := make([]model.CanonicalRow, 5)
	assert.Len(t, page(rows, 0, 0), 5)
	assert.Len(t, page(rows, 3, 10), 2)
	assert.Empty(t, page(rows, 9, 1))
}
