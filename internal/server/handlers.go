package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/api"
	"github.com/sells-group/exoplanet-cli/internal/dataset"
	"github.com/sells-group/exoplanet-cli/internal/fetcher"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/ranking"
	"github.com/sells-group/exoplanet-cli/internal/store"
)

// httpError carries the status a handler error should be reported with.
type httpError struct {
	status int
	err    error
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error { return &httpError{status: http.StatusBadRequest, err: err} }
func badGateway(err error) error { return &httpError{status: http.StatusBadGateway, err: err} }

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var he *httpError
	switch {
	case errors.As(err, &he):
		status = he.status
	case errors.Is(err, dataset.ErrNoDataset):
		status = http.StatusNotFound
	}
	if status >= 500 {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := s.deps.Store.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleLoadDataset loads ?source= (http, https or ftp) or, without it, the
// request body parsed according to ?name=.
func (s *Server) handleLoadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		source string
		recs   []model.RawRecord
		err    error
	)

	if source = strings.TrimSpace(r.URL.Query().Get("source")); source != "" {
		if !isRemote(source) {
			writeError(w, r, badRequest(eris.Errorf("source must be an http, https or ftp url: %q", source)))
			return
		}
		if s.deps.Loader == nil {
			writeError(w, r, eris.New("server: no remote loader configured"))
			return
		}
		recs, err = s.deps.Loader.Load(ctx, source)
		if err != nil {
			writeError(w, r, badGateway(err))
			return
		}
	} else {
		source = r.URL.Query().Get("name")
		if source == "" {
			source = "upload"
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUpload))
		if err != nil {
			writeError(w, r, badRequest(eris.Wrap(err, "read upload")))
			return
		}
		recs, err = fetcher.ParseRecords(ctx, source, body)
		if err != nil {
			writeError(w, r, badRequest(err))
			return
		}
	}

	s.load(w, r, source, recs)
}

func (s *Server) handleLoadRemote(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	recs, err := s.deps.NewClient(settings).FetchRecords(r.Context())
	if err != nil {
		writeError(w, r, badGateway(err))
		return
	}
	s.load(w, r, api.JoinURL(settings.BaseURL, settings.DataPath), recs)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, source string, recs []model.RawRecord) {
	snap, err := s.deps.Session.Load(r.Context(), source, recs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev := dataset.Event(snap)
	if err := s.deps.Store.RecordLoad(r.Context(), ev); err != nil {
		zap.L().Warn("server: record load failed", zap.String("id", ev.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset.Event(snap))
}

type rowsResponse struct {
	Total int                  `json:"total"`
	Rows  []model.CanonicalRow `json:"rows"`
}

// handleRows filters, sorts and pages the canonical rows.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter, err := parseFilter(q.Get)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	rows := filter.Apply(snap.Rows)

	if key := q.Get("sort"); key != "" {
		if err := dataset.SortBy(rows, model.FieldID(key), q.Get("desc") == "true"); err != nil {
			writeError(w, r, badRequest(err))
			return
		}
	}

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Total: len(rows), Rows: page(rows, offset, limit)})
}

func (s *Server) handleEarthLike(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows := dataset.EarthLike(snap.Rows)
	writeJSON(w, http.StatusOK, rowsResponse{Total: len(rows), Rows: rows})
}

// handleFeatures ranks features. Query values override the configured
// defaults: mode, target, features (comma separated), min_samples.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := s.deps.Ranking
	q := r.URL.Query()
	if v := q.Get("mode"); v != "" {
		req.Mode = ranking.Mode(v)
	}
	if v := q.Get("target"); v != "" {
		req.Target = v
	}
	if v := splitList(q.Get("features")); len(v) > 0 {
		req.Features = v
	}
	if req.MinSamples, err = intParam(q.Get("min_samples"), req.MinSamples); err != nil {
		writeError(w, r, badRequest(err))
		return
	}

	scores, err := req.Run(snap.Raw, snap.Rows)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset.Summarize(snap.Rows))
}

// handleColumns returns aligned columns, or only complete cases when
// complete=true.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	fields := fieldList(r.URL.Query().Get("fields"), model.NumericFields)

	if r.URL.Query().Get("complete") == "true" {
		cols, err := dataset.CompleteCases(snap.Rows, fields)
		if err != nil {
			writeError(w, r, badRequest(err))
			return
		}
		out := make(map[model.FieldID][]float64, len(fields))
		for i, f := range fields {
			out[f] = cols[i]
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	cols, err := dataset.Columns(snap.Rows, fields)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	fields := fieldList(r.URL.Query().Get("fields"), model.NumericFields)

	if r.URL.Query().Get("by_method") == "true" {
		ms, err := dataset.CorrelationByMethod(snap.Rows, fields)
		if err != nil {
			writeError(w, r, badRequest(err))
			return
		}
		writeJSON(w, http.StatusOK, ms)
		return
	}

	m, err := dataset.Correlation(snap.Rows, fields)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="exoplanets.csv"`)
	if err := dataset.WriteCSV(w, snap.Rows); err != nil {
		zap.L().Error("server: export failed", zap.Error(err))
	}
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset.YearHistogram(snap.Rows))
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataset.YearMethodGrid(snap.Rows))
}

func (s *Server) handleDispositions(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Session.Current()
	if err != nil {
		writeError(w, r, err)
		return
	}
	groups := dataset.GroupByDisposition(snap.Rows)
	out := make(map[string]int, len(dataset.Dispositions))
	for _, d := range dataset.Dispositions {
		out[d] = len(groups[d])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req model.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest(eris.Wrap(err, "decode predict request")))
		return
	}

	settings, err := s.settings(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := s.deps.NewClient(settings).Predict(r.Context(), req)
	if err != nil {
		writeError(w, r, badGateway(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"label": resp.Label,
		"prob":  resp.Prob,
		"raw":   resp.Raw,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in model.APISettings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, r, badRequest(eris.Wrap(err, "decode settings")))
		return
	}
	in = api.WithDefaults(in)
	if err := s.deps.Store.SaveSettings(r.Context(), in); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleGetSettings(w, r)
}

func (s *Server) handleLoads(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	loads, err := s.deps.Store.ListLoads(r.Context(), store.LoadFilter{
		Source: r.URL.Query().Get("source"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loads == nil {
		loads = []model.LoadEvent{}
	}
	writeJSON(w, http.StatusOK, loads)
}

// settings returns the stored API settings, or the configured defaults when
// none are stored.
func (s *Server) settings(r *http.Request) (model.APISettings, error) {
	stored, err := s.deps.Store.GetSettings(r.Context())
	if err != nil {
		return model.APISettings{}, err
	}
	if stored == nil {
		return api.WithDefaults(s.deps.APIDefaults), nil
	}
	return api.WithDefaults(*stored), nil
}

func isRemote(source string) bool {
	for _, p := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(source, p) {
			return true
		}
	}
	return false
}

func parseFilter(get func(string) string) (dataset.Filter, error) {
	f := dataset.Filter{Name: get("name")}
	var err error
	if f.MinRadius, err = floatParam("min_radius", get("min_radius")); err != nil {
		return f, err
	}
	if f.MaxRadius, err = floatParam("max_radius", get("max_radius")); err != nil {
		return f, err
	}
	if f.MinYear, err = yearParam("min_year", get("min_year")); err != nil {
		return f, err
	}
	if f.MaxYear, err = yearParam("max_year", get("max_year")); err != nil {
		return f, err
	}
	return f, nil
}

func floatParam(name, v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, eris.Errorf("%s: invalid number %q", name, v)
	}
	return &f, nil
}

func yearParam(name, v string) (*int, error) {
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, eris.Errorf("%s: invalid year %q", name, v)
	}
	return &n, nil
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid non-negative integer %q", v)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fieldList(v string, def []model.FieldID) []model.FieldID {
	names := splitList(v)
	if len(names) == 0 {
		return def
	}
	out := make([]model.FieldID, len(names))
	for i, n := range names {
		out[i] = model.FieldID(n)
	}
	return out
}

// page slices rows[offset:offset+limit]. A zero limit means no limit.
func page(rows []model.CanonicalRow, offset, limit int) []model.CanonicalRow {
	if offset >= len(rows) {
		return []model.CanonicalRow{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
