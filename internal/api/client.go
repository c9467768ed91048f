// Package api talks to the remote prediction service: listing its stored
// predictions and scoring single candidates.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/exoplanet-cli/internal/fetcher"
	"github.com/sells-group/exoplanet-cli/internal/model"
	"github.com/sells-group/exoplanet-cli/internal/resilience"
)

const (
	// DefaultDataPath is where the service lists stored predictions.
	DefaultDataPath = "/predictions"
	// DefaultPredictPath is where the service scores one candidate.
	DefaultPredictPath = "/predict"
)

// Client is the remote prediction service.
type Client interface {
	FetchRecords(ctx context.Context) ([]model.RawRecord, error)
	Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPolicy overrides the retry policy used for every request.
func WithPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.policy = p
	}
}

type httpClient struct {
	settings model.APISettings
	http     *http.Client
	policy   resilience.Policy
}

// NewClient creates a client for the endpoints in settings. Blank paths fall
// back to DefaultDataPath and DefaultPredictPath.
func NewClient(settings model.APISettings, opts ...Option) Client {
	settings = WithDefaults(settings)
	c := &httpClient{
		settings: settings,
		http:     &http.Client{Timeout: 30 * time.Second},
		policy:   resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithDefaults fills blank paths and trims whitespace.
func WithDefaults(s model.APISettings) model.APISettings {
	s.BaseURL = strings.TrimSpace(s.BaseURL)
	s.DataPath = strings.TrimSpace(s.DataPath)
	s.PredictPath = strings.TrimSpace(s.PredictPath)
	if s.DataPath == "" {
		s.DataPath = DefaultDataPath
	}
	if s.PredictPath == "" {
		s.PredictPath = DefaultPredictPath
	}
	return s
}

// JoinURL joins base and path. An empty base returns path unchanged;
// otherwise trailing slashes are trimmed from base and path gets a leading
// slash when it lacks one.
func JoinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

func (c *httpClient) FetchRecords(ctx context.Context) ([]model.RawRecord, error) {
	url := JoinURL(c.settings.BaseURL, c.settings.DataPath)

	body, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	recs, err := fetcher.ReadJSONRecords(ctx, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "api: decode records")
	}
	zap.L().Info("api: fetched records", zap.String("url", url), zap.Int("records", len(recs)))
	return recs, nil
}

func (c *httpClient) Predict(ctx context.Context, req model.PredictRequest) (*model.PredictResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "api: marshal predict request")
	}

	url := JoinURL(c.settings.BaseURL, c.settings.PredictPath)
	body, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return nil, err
	}
	return DecodePrediction(body)
}

// DecodePrediction reads the loosely typed prediction reply. Label may be
// any scalar; prob must be numeric to be kept.
func DecodePrediction(body []byte) (*model.PredictResponse, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "api: unmarshal predict response")
	}

	resp := &model.PredictResponse{Raw: raw}
	switch v := raw["label"].(type) {
	case string:
		resp.Label = &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		resp.Label = &s
	case bool:
		s := strconv.FormatBool(v)
		resp.Label = &s
	}
	if p, ok := raw["prob"].(float64); ok {
		resp.Prob = &p
	}
	return resp, nil
}

// do sends one request under the retry policy and returns the 2xx body.
func (c *httpClient) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	p := c.policy
	if p.OnRetry == nil {
		p.OnRetry = resilience.LogRetry("api", method+" "+url)
	}

	return resilience.DoVal(ctx, p, func(ctx context.Context) ([]byte, error) {
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, eris.Wrap(err, "api: create request")
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "api: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "api: read response")
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, resilience.StatusError("api", resp.StatusCode, string(body))
		}
		return body, nil
	})
}
